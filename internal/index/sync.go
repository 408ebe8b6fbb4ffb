package index

import (
	"log/slog"

	"github.com/starford/now/internal/models"
)

// Document is one note prepared for indexing.
type Document struct {
	Row  NoteRow
	Body string
}

// SyncStats reports what Sync changed.
type SyncStats struct {
	Upserted int
	Removed  int
	Failed   int
}

// DocumentOf converts a parsed note and its file checksum into a Document.
func DocumentOf(n *models.Note, sum string) Document {
	return Document{
		Row:  NoteRow{ID: n.ID, Title: n.Title, Checksum: sum, Metadata: n.Metadata},
		Body: n.Content,
	}
}

// Sync brings the notes table in line with docs:
//   - new or changed documents are upserted
//   - indexed notes missing from docs are deleted
//
// Per-note failures are logged and counted; only a failure to read the
// current state aborts the pass.
func Sync(db NoteIndex, docs []Document, logger *slog.Logger) (SyncStats, error) {
	var stats SyncStats
	checksums, err := db.AllChecksums()
	if err != nil {
		return stats, err
	}

	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		seen[d.Row.ID] = struct{}{}
		if cs, ok := checksums[d.Row.ID]; ok && cs == d.Row.Checksum {
			continue
		}
		if err := db.UpsertNote(d.Row, d.Body); err != nil {
			stats.Failed++
			logger.Warn("sync: index failed", slog.String("id", d.Row.ID), slog.String("error", err.Error()))
			continue
		}
		stats.Upserted++
		logger.Debug("sync: indexed", slog.String("id", d.Row.ID))
	}

	for id := range checksums {
		if _, ok := seen[id]; ok {
			continue
		}
		if err := db.DeleteNote(id); err != nil {
			stats.Failed++
			logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
			continue
		}
		stats.Removed++
		logger.Debug("sync: removed stale", slog.String("id", id))
	}
	return stats, nil
}
