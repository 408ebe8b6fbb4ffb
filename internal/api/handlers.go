package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/now/internal/noteservice"
)

const (
	htmlSuffix   = "/html"
	enrichSuffix = "/enrich"
	moveSuffix   = "/move"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// wildcardID extracts the note id from the route wildcard.
// Supports encoded slashes (e.g. topics%2Fnote.md).
func wildcardID(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

// ListNotes handles GET /api/notes.
//
//	@Summary	List notes, most recently updated first
//	@Tags		notes
//	@Param		limit	query		int	false	"Page size"
//	@Param		offset	query		int	false	"Page offset"
//	@Success	200		{object}	NoteListResponse
//	@Router		/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	items, total, err := h.svc.ListNotes(r.Context(), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		writeError(w, r, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/* and GET /api/notes/*/html.
//
//	@Summary	Get a note, or its rendered HTML body
//	@Tags		notes
//	@Param		id	path		string	true	"Note id"
//	@Success	200	{object}	NoteDetail
//	@Failure	404	{object}	errResponse
//	@Router		/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := wildcardID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	if base, ok := strings.CutSuffix(id, htmlSuffix); ok {
		html, err := h.svc.RenderHTML(r.Context(), base)
		if err != nil {
			writeError(w, r, "render note", err)
			return
		}
		writeJSON(w, http.StatusOK, HTMLResponse{ID: base, HTML: html})
		return
	}
	note, err := h.svc.GetNote(r.Context(), id)
	if err != nil {
		writeError(w, r, "get note", err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(note.Checksum))
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary	Create a note under a fresh id
//	@Tags		notes
//	@Param		body	body		NoteRequest	true	"Note to create"
//	@Success	201		{object}	NoteDetail
//	@Failure	400		{object}	errResponse
//	@Router		/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.input())
	if err != nil {
		writeError(w, r, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// SaveNote handles PUT /api/notes/*.
//
//	@Summary	Save a note with optimistic concurrency
//	@Tags		notes
//	@Param		id			path		string		true	"Note id"
//	@Param		If-Match	header		string		false	"Checksum of the version being replaced"
//	@Param		body		body		NoteRequest	true	"New title, content and metadata"
//	@Success	200			{object}	NoteDetail
//	@Failure	409			{object}	errResponse
//	@Router		/notes/{id} [put]
func (h *Handler) SaveNote(w http.ResponseWriter, r *http.Request) {
	id := wildcardID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	note, err := h.svc.SaveNote(r.Context(), id, req.input(), ifMatch)
	if err != nil {
		writeError(w, r, "save note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/*.
//
//	@Summary	Delete a note
//	@Tags		notes
//	@Param		id	path	string	true	"Note id"
//	@Success	204	"Note deleted"
//	@Failure	404	{object}	errResponse
//	@Router		/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := wildcardID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	if err := h.svc.DeleteNote(r.Context(), id); err != nil {
		writeError(w, r, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NoteAction handles POST /api/notes/*/enrich and POST /api/notes/*/move.
func (h *Handler) NoteAction(w http.ResponseWriter, r *http.Request) {
	raw := wildcardID(r)
	if id, ok := strings.CutSuffix(raw, enrichSuffix); ok && id != "" {
		h.enrichBookmark(w, r, id)
		return
	}
	if id, ok := strings.CutSuffix(raw, moveSuffix); ok && id != "" {
		h.moveNote(w, r, id)
		return
	}
	writeJSON(w, http.StatusNotFound, errorBody("not found"))
}

// enrichBookmark handles POST /api/notes/*/enrich.
//
//	@Summary	Label the last bare URL of a note with its page title
//	@Tags		notes
//	@Param		id	path		string	true	"Note id"
//	@Success	200	{object}	NoteDetail
//	@Failure	502	{object}	errResponse
//	@Router		/notes/{id}/enrich [post]
func (h *Handler) enrichBookmark(w http.ResponseWriter, r *http.Request, id string) {
	note, err := h.svc.EnrichBookmark(r.Context(), id)
	if err != nil {
		if isDomainError(err) {
			writeError(w, r, "enrich bookmark", err)
			return
		}
		writeJSON(w, http.StatusBadGateway, errorBody("bookmark lookup failed"))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// moveNote handles POST /api/notes/*/move.
//
//	@Summary	Rename a note file
//	@Tags		notes
//	@Param		id		path		string				true	"Note id"
//	@Param		body	body		MoveNoteRequest		true	"Target id"
//	@Success	200		{object}	NoteDetail
//	@Failure	409		{object}	errResponse
//	@Router		/notes/{id}/move [post]
func (h *Handler) moveNote(w http.ResponseWriter, r *http.Request, id string) {
	var req MoveNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.svc.MoveNote(r.Context(), id, req.To)
	if err != nil {
		writeError(w, r, "move note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Resolve handles GET /api/resolve?name=.
//
//	@Summary	Find the note an @Name reference points to
//	@Tags		references
//	@Param		name	query		string	true	"Reference name"
//	@Success	200		{object}	ResolveResponse
//	@Failure	404		{object}	errResponse
//	@Router		/resolve [get]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'name' is required"))
		return
	}
	id, ok := h.svc.Resolve(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), id)
	if err != nil {
		writeError(w, r, "resolve", err)
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{Name: name, Note: note})
}

// OpenReference handles POST /api/resolve?name=.
//
//	@Summary	Open an @Name reference, creating the note if needed
//	@Tags		references
//	@Param		name	query		string	true	"Reference name"
//	@Success	200		{object}	ResolveResponse
//	@Success	201		{object}	ResolveResponse
//	@Router		/resolve [post]
func (h *Handler) OpenReference(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	note, created, err := h.svc.OpenReference(r.Context(), name)
	if err != nil {
		writeError(w, r, "open reference", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, ResolveResponse{Name: strings.TrimSpace(name), Created: created, Note: note})
}

// Search handles GET /api/search.
//
//	@Summary	Full-text search across notes
//	@Tags		search
//	@Param		q		query		string	true	"Search query"
//	@Param		limit	query		int		false	"Max results"
//	@Success	200		{object}	SearchResponse
//	@Router		/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	results, err := h.svc.Search(r.Context(), q, queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
