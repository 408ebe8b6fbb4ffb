package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/now/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *noteservice.Service, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	// Notes CRUD. GET /notes/{id}/html and POST /notes/{id}/{enrich,move}
	// share the wildcard routes; note ids always end in .md.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/*", h.GetNote)
	r.Put("/notes/*", h.SaveNote)
	r.Delete("/notes/*", h.DeleteNote)
	r.Post("/notes/*", h.NoteAction)

	// References.
	r.Get("/resolve", h.Resolve)
	r.Post("/resolve", h.OpenReference)

	// Views.
	r.Get("/graph", h.Graph)
	r.Get("/graph/view", h.GraphView)
	r.Get("/toc", h.TOC)
	r.Get("/contexts", h.Contexts)
	r.Get("/contexts/notes", h.ContextNotes)
	r.Get("/backlinks/*", h.Backlinks)
	r.Get("/board", h.Board)
	r.Put("/board/cards/*", h.MoveCard)

	// Search.
	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// Health mounts the liveness and readiness probes.
func Health(r chi.Router, svc *noteservice.Service) {
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", State: svc.State().String()})
	})
}
