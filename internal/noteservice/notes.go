package noteservice

import (
	"context"
	"fmt"
	"maps"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/now/internal/apperr"
	"github.com/starford/now/internal/checksum"
	"github.com/starford/now/internal/models"
	"github.com/starford/now/internal/parser"
	"github.com/starford/now/internal/storage"
	"github.com/starford/now/internal/views"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	models.Note
	Checksum  string            `json:"checksum"`
	Group     string            `json:"group"`
	Contexts  []string          `json:"contexts"`
	Bookmarks []models.Bookmark `json:"bookmarks"`
	Backlinks []views.Backlink  `json:"backlinks"`
}

// NoteInput is the editable part of a note. A nil Metadata keeps the
// note's current metadata on save.
type NoteInput struct {
	Title    string
	Content  string
	Metadata map[string]string
}

// NewID returns a fresh, time-ordered note id.
func NewID() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("noteservice: new id: %w", err)
	}
	return u.String() + storage.NoteExt, nil
}

// GetNote returns a note with its backlinks, bookmarks and contexts.
func (s *Service) GetNote(_ context.Context, id string) (*NoteDetail, error) {
	n, sum, ok := s.lookup(id)
	if !ok {
		return nil, fmt.Errorf("noteservice: note %s: %w", id, apperr.ErrNotFound)
	}
	return s.detail(n, sum), nil
}

func (s *Service) detail(n models.Note, sum string) *NoteDetail {
	idx := s.Index()
	d := &NoteDetail{
		Note:      n,
		Checksum:  sum,
		Contexts:  noteContexts(n.Content),
		Bookmarks: parser.Bookmarks(n.Content),
		Backlinks: views.Backlinks(idx, n.ID),
	}
	if d.Bookmarks == nil {
		d.Bookmarks = []models.Bookmark{}
	}
	if d.Metadata == nil {
		d.Metadata = map[string]string{}
	}
	for _, node := range idx.Nodes {
		if node.ID == n.ID {
			d.Group = node.Group
			break
		}
	}
	return d
}

func noteContexts(content string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for segs := range parser.TagPaths(content) {
		p := strings.Join(segs, "/")
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// CreateNote writes a new note under a fresh id.
func (s *Service) CreateNote(_ context.Context, in NoteInput) (*NoteDetail, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("noteservice: create: empty title: %w", apperr.ErrInvalid)
	}
	id, err := NewID()
	if err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.writeLocked(id, in, true)
}

// SaveNote replaces a note's title, content and metadata. A non-empty
// ifMatch must equal the checksum of the file currently on disk.
func (s *Service) SaveNote(_ context.Context, id string, in NoteInput, ifMatch string) (*NoteDetail, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("noteservice: save: empty title: %w", apperr.ErrInvalid)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur, _, ok := s.lookup(id)
	if !ok {
		return nil, fmt.Errorf("noteservice: note %s: %w", id, apperr.ErrNotFound)
	}
	existing, err := s.store.Read(id)
	if err != nil {
		return nil, err
	}
	if !checksum.Matches(existing, ifMatch) {
		return nil, fmt.Errorf("noteservice: note %s changed: %w", id, apperr.ErrConflict)
	}
	if in.Metadata == nil {
		in.Metadata = cur.Metadata
	}
	return s.writeLocked(id, in, false)
}

// writeLocked renders, stores and commits a note. The caller holds writeMu.
func (s *Service) writeLocked(id string, in NoteInput, create bool) (*NoteDetail, error) {
	n := &models.Note{
		ID:       id,
		Title:    strings.TrimSpace(in.Title),
		Content:  in.Content,
		Metadata: maps.Clone(in.Metadata),
	}
	data, err := parser.RenderNote(n)
	if err != nil {
		return nil, err
	}
	if create {
		err = s.store.Create(id, data)
	} else {
		err = s.store.Write(id, data)
	}
	if err != nil {
		return nil, err
	}

	// Re-read what was written so memory matches what the next load sees.
	saved := s.parse(id, data)
	sum := checksum.Sum(data)
	s.commitLocked(map[string]*models.Note{id: saved}, map[string]string{id: sum}, nil)
	return s.detail(*saved, sum), nil
}

// DeleteNote removes a note from the vault.
func (s *Service) DeleteNote(_ context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, _, ok := s.lookup(id); !ok {
		return fmt.Errorf("noteservice: note %s: %w", id, apperr.ErrNotFound)
	}
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.commitLocked(nil, nil, []string{id})
	return nil
}

// Resolve returns the id of the note titled name.
func (s *Service) Resolve(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolver.Resolve(name)
}

// OpenReference returns the target of an @Name reference, creating an empty
// note titled name when no note has that title.
func (s *Service) OpenReference(ctx context.Context, name string) (*NoteDetail, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, fmt.Errorf("noteservice: open reference: empty name: %w", apperr.ErrInvalid)
	}
	if id, ok := s.Resolve(name); ok {
		d, err := s.GetNote(ctx, id)
		return d, false, err
	}

	id, err := NewID()
	if err != nil {
		return nil, false, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	// Another writer may have created it while we waited.
	if existing, ok := s.Resolve(name); ok {
		n, sum, _ := s.lookup(existing)
		return s.detail(n, sum), false, nil
	}
	d, err := s.writeLocked(id, NoteInput{Title: name}, true)
	return d, err == nil, err
}

// MoveCard sets the board status of a task note.
func (s *Service) MoveCard(_ context.Context, id, status string) (*NoteDetail, error) {
	if !s.opts.Board.HasStatus(status) {
		return nil, fmt.Errorf("noteservice: unknown status %q: %w", status, apperr.ErrInvalid)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	n, sum, ok := s.lookup(id)
	if !ok {
		return nil, fmt.Errorf("noteservice: note %s: %w", id, apperr.ErrNotFound)
	}
	if n.Metadata[views.StatusKey] == status {
		return s.detail(n, sum), nil
	}
	meta := maps.Clone(n.Metadata)
	if meta == nil {
		meta = map[string]string{}
	}
	meta[views.StatusKey] = status
	return s.writeLocked(id, NoteInput{Title: n.Title, Content: n.Content, Metadata: meta}, false)
}

// MoveNote renames a note file. The target is cleaned to the slash form
// the vault walk produces, so "sub//a.md" becomes "sub/a.md". References
// resolve by title, so edges to the note survive the move.
func (s *Service) MoveNote(_ context.Context, id, to string) (*NoteDetail, error) {
	to = path.Clean(filepath.ToSlash(strings.TrimSpace(to)))
	if !storage.IsNote(to) {
		return nil, fmt.Errorf("noteservice: move to %q: not a note path: %w", to, apperr.ErrInvalid)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	n, sum, ok := s.lookup(id)
	if !ok {
		return nil, fmt.Errorf("noteservice: note %s: %w", id, apperr.ErrNotFound)
	}
	if to == id {
		return s.detail(n, sum), nil
	}
	if err := s.store.Move(id, to); err != nil {
		return nil, err
	}
	n.ID = to
	s.commitLocked(map[string]*models.Note{to: &n}, map[string]string{to: sum}, []string{id})
	return s.detail(n, sum), nil
}
