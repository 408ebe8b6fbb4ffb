package noteservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/starford/now/internal/apperr"
	"github.com/starford/now/internal/graph"
	"github.com/starford/now/internal/index"
	"github.com/starford/now/internal/render"
	"github.com/starford/now/internal/views"
)

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Checksum  string            `json:"checksum"`
	Metadata  map[string]string `json:"metadata"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ListNotes returns a page of indexed notes, newest first, and the total.
func (s *Service) ListNotes(_ context.Context, limit, offset int) ([]NoteListItem, int, error) {
	rows, total, err := s.db.ListNotes(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, len(rows))
	for i, r := range rows {
		items[i] = NoteListItem{
			ID:        r.ID,
			Title:     r.Title,
			Checksum:  r.Checksum,
			Metadata:  nonNilMap(r.Metadata),
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	res, err := s.db.Search(query, limit)
	return nonNilSlice(res), err
}

// NotesInContext returns the ids tagged with path or below it. Paths that
// are not in the current contexts tree are not found.
func (s *Service) NotesInContext(_ context.Context, path string) ([]string, error) {
	path = strings.Trim(path, "/")
	if _, ok := graph.Lookup(s.Index().Contexts, path); !ok {
		return nil, fmt.Errorf("noteservice: context %q: %w", path, apperr.ErrNotFound)
	}
	ids, err := s.db.NotesInContext(path)
	return nonNilSlice(ids), err
}

// GraphView returns the styled graph.
func (s *Service) GraphView() views.GraphView {
	return views.Graph(s.Index(), s.opts.Style)
}

// TOC returns the table of contents.
func (s *Service) TOC() views.TOCView {
	return views.TOC(s.Index(), s.opts.Collation)
}

// Contexts returns the contexts tree.
func (s *Service) Contexts() []views.ContextNode {
	return views.Contexts(s.Index(), s.opts.Collation)
}

// Backlinks returns the notes pointing at id, read from the SQLite edges
// table that every commit replaces.
func (s *Service) Backlinks(_ context.Context, id string) ([]views.Backlink, error) {
	if _, _, ok := s.lookup(id); !ok {
		return nil, fmt.Errorf("noteservice: note %s: %w", id, apperr.ErrNotFound)
	}
	edges, err := s.db.Backlinks(id)
	if err != nil {
		return nil, err
	}
	return views.BacklinksOf(s.Index(), edges), nil
}

// Board returns the kanban board.
func (s *Service) Board() views.BoardView {
	return views.Board(s.Notes(), s.opts.Board)
}

// RenderHTML renders a note body with its annotations linked.
func (s *Service) RenderHTML(_ context.Context, id string) (string, error) {
	n, _, ok := s.lookup(id)
	if !ok {
		return "", fmt.Errorf("noteservice: note %s: %w", id, apperr.ErrNotFound)
	}
	return render.HTML(n.Content, s.Resolve)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
