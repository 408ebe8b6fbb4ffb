package index

import "github.com/starford/now/internal/models"

// NoteIndex is the persistence side of the workspace. Consumers depend on
// this interface rather than *DB so tests can swap it out.
type NoteIndex interface {
	UpsertNote(n NoteRow, body string) error
	DeleteNote(id string) error
	AllChecksums() (map[string]string, error)
	ListNotes(limit, offset int) ([]NoteRow, int, error)
	ReplaceGraph(idx *models.GraphIndex) error
	Search(query string, limit int) ([]SearchResult, error)
	Backlinks(target string) ([]models.Edge, error)
	NotesInContext(path string) ([]string, error)
	Close() error
}

var _ NoteIndex = (*DB)(nil)
