package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/now/internal/index"
	"github.com/starford/now/internal/noteservice"
)

const maxBodyBytes = 10 << 20

// NoteRequest is the request body for creating or saving a note.
type NoteRequest struct {
	Title    string            `json:"title" example:"Hello"`
	Content  string            `json:"content" example:"see @World #proj/x"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Validate validates the request.
func (r *NoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 500)),
	)
}

func (r *NoteRequest) input() noteservice.NoteInput {
	return noteservice.NoteInput{Title: r.Title, Content: r.Content, Metadata: r.Metadata}
}

// MoveCardRequest is the request body for moving a board card.
type MoveCardRequest struct {
	Status string `json:"status" example:"erledigt"`
}

// Validate validates the request.
func (r *MoveCardRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Status, validation.Required),
	)
}

// MoveNoteRequest is the request body for renaming a note file.
type MoveNoteRequest struct {
	To string `json:"to" example:"archive/hello.md"`
}

// Validate validates the request.
func (r *MoveNoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.To, validation.Required),
	)
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes"`
	Total int            `json:"total" example:"42"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results"`
}

// ResolveResponse is the answer to a reference lookup.
type ResolveResponse struct {
	Name    string      `json:"name"`
	Created bool        `json:"created"`
	Note    *NoteDetail `json:"note"`
}

// ContextNotesResponse lists the notes filed under a context path.
type ContextNotesResponse struct {
	Path  string   `json:"path"`
	Notes []string `json:"notes"`
}

// HTMLResponse carries a rendered note body.
type HTMLResponse struct {
	ID   string `json:"id"`
	HTML string `json:"html"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	State  string `json:"state,omitempty"`
}
