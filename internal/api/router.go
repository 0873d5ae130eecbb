package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/papernotes/internal/paperservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// passes may be nil, in which case the trigger routes answer 503.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *paperservice.Service, passes Passes, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, passes)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/papers", h.ListPapers)
	r.Get("/papers/{year}/{id}", h.GetPaper)
	r.Get("/search", h.Search)
	r.Get("/candidates", h.Candidates)

	r.Post("/generate", h.Generate)
	r.Post("/tag", h.Tag)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}
	return r
}
