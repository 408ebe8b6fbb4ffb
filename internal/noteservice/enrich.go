package noteservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/now/internal/apperr"
	"github.com/starford/now/internal/bookmark"
)

// EnrichBookmark turns the last bare URL of a note into a [title](url)
// bookmark. Notes without a bare URL are returned unchanged. When the page
// cannot be labelled the error is returned and the note is left as is.
func (s *Service) EnrichBookmark(ctx context.Context, id string) (*NoteDetail, error) {
	if s.opts.Enricher == nil {
		return nil, fmt.Errorf("noteservice: bookmark enrichment disabled: %w", apperr.ErrInvalid)
	}

	n, sum, ok := s.lookup(id)
	if !ok {
		return nil, fmt.Errorf("noteservice: note %s: %w", id, apperr.ErrNotFound)
	}
	m, found := bookmark.LastBareURL(n.Content)
	if !found {
		return s.detail(n, sum), nil
	}

	// The fetch runs without holding writeMu; the save below re-checks that
	// the note did not change meanwhile.
	label, err := s.opts.Enricher.Label(ctx, m.URL)
	if err != nil {
		s.logger.Warn("enrich: label failed", slog.String("id", id), slog.String("url", m.URL), slog.String("error", err.Error()))
		return nil, fmt.Errorf("noteservice: enrich %s: %w", id, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur, curSum, ok := s.lookup(id)
	if !ok {
		return nil, fmt.Errorf("noteservice: note %s: %w", id, apperr.ErrNotFound)
	}
	if curSum != sum {
		return nil, fmt.Errorf("noteservice: note %s changed during enrichment: %w", id, apperr.ErrConflict)
	}
	content := bookmark.Apply(cur.Content, m, label)
	return s.writeLocked(id, NoteInput{Title: cur.Title, Content: content, Metadata: cur.Metadata}, false)
}
