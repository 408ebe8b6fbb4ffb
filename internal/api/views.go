package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/starford/now/internal/apperr"
)

func isDomainError(err error) bool {
	return errors.Is(err, apperr.ErrNotFound) ||
		errors.Is(err, apperr.ErrConflict) ||
		errors.Is(err, apperr.ErrInvalid) ||
		errors.Is(err, apperr.ErrAlreadyExists)
}

// Graph handles GET /api/graph and returns the raw Graph Index.
func (h *Handler) Graph(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Index())
}

// GraphView handles GET /api/graph/view.
func (h *Handler) GraphView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.GraphView())
}

// TOC handles GET /api/toc.
func (h *Handler) TOC(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.TOC())
}

// Contexts handles GET /api/contexts.
func (h *Handler) Contexts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Contexts())
}

// ContextNotes handles GET /api/contexts/notes?path=.
func (h *Handler) ContextNotes(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(r.URL.Query().Get("path"), "/")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	ids, err := h.svc.NotesInContext(r.Context(), path)
	if err != nil {
		writeError(w, r, "context notes", err)
		return
	}
	writeJSON(w, http.StatusOK, ContextNotesResponse{Path: path, Notes: ids})
}

// Backlinks handles GET /api/backlinks/*.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	id := wildcardID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	bl, err := h.svc.Backlinks(r.Context(), id)
	if err != nil {
		writeError(w, r, "backlinks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "backlinks": bl})
}

// Board handles GET /api/board.
func (h *Handler) Board(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Board())
}

// MoveCard handles PUT /api/board/cards/*.
func (h *Handler) MoveCard(w http.ResponseWriter, r *http.Request) {
	id := wildcardID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	var req MoveCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.svc.MoveCard(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, "move card", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}
