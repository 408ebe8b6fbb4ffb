package graph

import (
	"strings"

	"github.com/starford/now/internal/models"
)

// Resolver maps note titles, compared case-insensitively, to note ids.
//
// When several notes share a title the lexicographically smallest id wins.
// New notes get time-ordered ids, so this is the first-created note.
type Resolver struct {
	byTitle map[string]string
}

// NewResolver indexes the titles of notes.
func NewResolver(notes []models.Note) *Resolver {
	r := &Resolver{byTitle: make(map[string]string, len(notes))}
	for _, n := range notes {
		key := titleKey(n.Title)
		if key == "" {
			continue
		}
		if cur, ok := r.byTitle[key]; !ok || n.ID < cur {
			r.byTitle[key] = n.ID
		}
	}
	return r
}

// Resolve returns the id of the note titled name.
func (r *Resolver) Resolve(name string) (string, bool) {
	id, ok := r.byTitle[titleKey(name)]
	return id, ok
}

func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
