package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/now/internal/storage"
)

// reconcileDelay debounces the full pass that follows renames.
const reconcileDelay = 200 * time.Millisecond

// Handler receives vault changes seen by Watch. Ids are vault-relative
// slash paths of note files.
type Handler interface {
	FileChanged(id string)
	FileRemoved(id string)
	// Reconcile asks for a full comparison of the vault with the note set.
	Reconcile()
}

// Watch runs an fsnotify watcher on root until ctx is cancelled and reports
// note file changes to h.
//
// Directories created at runtime are added to the watch list and their notes
// reported. fsnotify only reports the old path of a rename, so renames are
// reported as removals followed by a debounced Reconcile.
func Watch(ctx context.Context, root string, logger *slog.Logger, h Handler) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			logger.Debug("watcher: reconcile")
			h.Reconcile()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if hidden(info.Name()) {
						continue
					}
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					reportDir(root, ev.Name, h)
					continue
				}
			}

			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil || !storage.IsNote(rel) {
				continue
			}
			id := filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				logger.Debug("watcher: changed", slog.String("id", id), slog.String("op", ev.Op.String()))
				h.FileChanged(id)

			case ev.Op&fsnotify.Remove != 0:
				logger.Debug("watcher: removed", slog.String("id", id))
				h.FileRemoved(id)

			case ev.Op&fsnotify.Rename != 0:
				logger.Debug("watcher: renamed away", slog.String("id", id))
				h.FileRemoved(id)
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reportDir reports the notes already present in a newly created directory.
func reportDir(root, dir string, h Handler) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil || !storage.IsNote(rel) {
			return nil
		}
		h.FileChanged(filepath.ToSlash(rel))
		return nil
	})
}

// addDirsRecursive adds root and all its visible subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && hidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
