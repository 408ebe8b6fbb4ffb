// Package noteservice owns the workspace: the note set, the current Graph
// Index and the storage and index behind them. Every mutation rebuilds the
// index in full; readers always see the last completed index.
package noteservice

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/text/language"

	"github.com/starford/now/internal/bookmark"
	"github.com/starford/now/internal/checksum"
	"github.com/starford/now/internal/graph"
	"github.com/starford/now/internal/index"
	"github.com/starford/now/internal/models"
	"github.com/starford/now/internal/parser"
	"github.com/starford/now/internal/storage"
	"github.com/starford/now/internal/views"
)

// State is the rebuild state of the workspace.
type State int32

const (
	StateIdle State = iota
	StateRebuilding
)

func (s State) String() string {
	if s == StateRebuilding {
		return "rebuilding"
	}
	return "idle"
}

// Publisher is notified about changes, typically the SSE broker.
type Publisher interface {
	NoteSaved(id string)
	NoteDeleted(id string)
	IndexRebuilt(nodes, edges int)
}

type nopPublisher struct{}

func (nopPublisher) NoteSaved(string)      {}
func (nopPublisher) NoteDeleted(string)    {}
func (nopPublisher) IndexRebuilt(int, int) {}

// Options configure the projections and collaborators of a Service.
type Options struct {
	Graph     []graph.Option
	Collation language.Tag
	Style     views.Style
	Board     views.BoardConfig
	// Enricher labels bookmarks; nil disables EnrichBookmark.
	Enricher  bookmark.Enricher
	Publisher Publisher
}

// Service is the workspace. It is safe for concurrent use.
type Service struct {
	store  storage.Provider
	db     index.NoteIndex
	logger *slog.Logger
	opts   Options

	// writeMu serializes mutations and therefore rebuilds.
	writeMu sync.Mutex

	mu       sync.RWMutex
	notes    map[string]*models.Note
	sums     map[string]string
	idx      *models.GraphIndex
	resolver *graph.Resolver

	state atomic.Int32
}

// New creates an empty workspace. Call Load to read the vault.
func New(store storage.Provider, db index.NoteIndex, logger *slog.Logger, opts Options) *Service {
	if opts.Publisher == nil {
		opts.Publisher = nopPublisher{}
	}
	if opts.Board.TaskType == "" && len(opts.Board.Columns) == 0 {
		opts.Board = views.DefaultBoard()
	}
	if opts.Style == (views.Style{}) {
		opts.Style = views.DefaultStyle()
	}
	return &Service{
		store:    store,
		db:       db,
		logger:   logger,
		opts:     opts,
		notes:    map[string]*models.Note{},
		sums:     map[string]string{},
		idx:      graph.Build(nil),
		resolver: graph.NewResolver(nil),
	}
}

// State reports whether a rebuild is in progress.
func (s *Service) State() State {
	return State(s.state.Load())
}

// Load reads every note of the vault, rebuilds the index and brings the
// SQLite index up to date. Unreadable files are skipped; a vault that cannot
// be listed loads as empty.
func (s *Service) Load(_ context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	notes := map[string]*models.Note{}
	sums := map[string]string{}

	metas, err := s.store.List("")
	if err != nil {
		s.logger.Error("load: list vault failed", slog.String("error", err.Error()))
	}
	for _, m := range metas {
		data, err := s.store.Read(m.Path)
		if err != nil {
			s.logger.Warn("load: read failed", slog.String("id", m.Path), slog.String("error", err.Error()))
			continue
		}
		notes[m.Path] = s.parse(m.Path, data)
		sums[m.Path] = checksum.Sum(data)
	}

	s.mu.Lock()
	s.notes, s.sums = notes, sums
	s.mu.Unlock()

	idx := s.rebuildLocked()

	docs := make([]index.Document, 0, len(notes))
	for _, id := range slices.Sorted(maps.Keys(notes)) {
		docs = append(docs, index.DocumentOf(notes[id], sums[id]))
	}
	stats, err := index.Sync(s.db, docs, s.logger)
	if err != nil {
		s.logger.Error("load: index sync failed", slog.String("error", err.Error()))
	}
	s.persistGraph(idx)

	s.logger.Info("load: workspace ready",
		slog.Int("notes", len(notes)),
		slog.Int("edges", len(idx.Edges)),
		slog.Int("indexed", stats.Upserted),
		slog.Int("removed", stats.Removed))
	return nil
}

func (s *Service) parse(id string, data []byte) *models.Note {
	n, err := parser.ParseNote(id, data)
	var fmErr *parser.FrontmatterError
	if errors.As(err, &fmErr) {
		s.logger.Warn("parse: invalid front matter", slog.String("id", id), slog.String("error", fmErr.Err.Error()))
	}
	return n
}

// rebuildLocked builds a new Graph Index from the current note set and
// publishes it. The caller holds writeMu.
func (s *Service) rebuildLocked() *models.GraphIndex {
	s.state.Store(int32(StateRebuilding))
	defer s.state.Store(int32(StateIdle))

	notes := s.sortedNotes()
	idx := graph.Build(notes, s.opts.Graph...)
	resolver := graph.NewResolver(notes)

	s.mu.Lock()
	s.idx, s.resolver = idx, resolver
	s.mu.Unlock()

	s.logger.Debug("rebuild: done", slog.Int("nodes", len(idx.Nodes)), slog.Int("edges", len(idx.Edges)))
	s.opts.Publisher.IndexRebuilt(len(idx.Nodes), len(idx.Edges))
	return idx
}

// sortedNotes copies the note set in id order.
func (s *Service) sortedNotes() []models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, *n)
	}
	slices.SortFunc(out, func(a, b models.Note) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// commitLocked applies changed and removed notes to the in-memory set,
// rebuilds, then persists. Persistence failures are logged only; the
// in-memory index is already current.
func (s *Service) commitLocked(changed map[string]*models.Note, sums map[string]string, removed []string) *models.GraphIndex {
	s.mu.Lock()
	for id, n := range changed {
		s.notes[id] = n
		s.sums[id] = sums[id]
	}
	for _, id := range removed {
		delete(s.notes, id)
		delete(s.sums, id)
	}
	s.mu.Unlock()

	idx := s.rebuildLocked()

	for id, n := range changed {
		if err := s.db.UpsertNote(index.DocumentOf(n, sums[id]).Row, n.Content); err != nil {
			s.logger.Warn("persist: upsert failed", slog.String("id", id), slog.String("error", err.Error()))
		}
	}
	for _, id := range removed {
		if err := s.db.DeleteNote(id); err != nil {
			s.logger.Warn("persist: delete failed", slog.String("id", id), slog.String("error", err.Error()))
		}
	}
	s.persistGraph(idx)

	for id := range changed {
		s.opts.Publisher.NoteSaved(id)
	}
	for _, id := range removed {
		s.opts.Publisher.NoteDeleted(id)
	}
	return idx
}

func (s *Service) persistGraph(idx *models.GraphIndex) {
	if err := s.db.ReplaceGraph(idx); err != nil {
		s.logger.Warn("persist: replace graph failed", slog.String("error", err.Error()))
	}
}

// Index returns the current Graph Index. It must not be modified.
func (s *Service) Index() *models.GraphIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx
}

// Notes returns a copy of the note set in id order.
func (s *Service) Notes() []models.Note {
	return s.sortedNotes()
}

func (s *Service) lookup(id string) (models.Note, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok {
		return models.Note{}, "", false
	}
	return *n, s.sums[id], true
}
