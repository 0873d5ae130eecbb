package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/papernotes/internal/apperr"
	"github.com/starford/papernotes/internal/index"
	"github.com/starford/papernotes/internal/models"
	"github.com/starford/papernotes/internal/paperservice"
	"github.com/starford/papernotes/internal/pipeline"
)

// Passes triggers the batch passes.
type Passes interface {
	Generate(ctx context.Context) (pipeline.GenerateReport, error)
	Tag(ctx context.Context) (pipeline.TagReport, error)
}

// Handler holds API route handlers.
type Handler struct {
	svc    *paperservice.Service
	passes Passes
}

// NewHandler creates a new Handler.
func NewHandler(svc *paperservice.Service, passes Passes) *Handler {
	return &Handler{svc: svc, passes: passes}
}

// ListPapers handles GET /papers.
//
// Query: tag, year, untagged (bool), limit, offset.
func (h *Handler) ListPapers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	untagged, _ := strconv.ParseBool(q.Get("untagged"))

	items, total, err := h.svc.ListPapers(r.Context(), index.ListFilter{
		Tag:      q.Get("tag"),
		Year:     q.Get("year"),
		Untagged: untagged,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		slog.Error("list papers failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if items == nil {
		items = []models.Paper{}
	}
	writeJSON(w, http.StatusOK, PaperListResponse{Papers: items, Total: total})
}

// GetPaper handles GET /papers/{year}/{id}.
func (h *Handler) GetPaper(w http.ResponseWriter, r *http.Request) {
	year, id := chi.URLParam(r, "year"), chi.URLParam(r, "id")
	paper, err := h.svc.GetPaper(r.Context(), year, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get paper failed", slog.String("year", year), slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, paper)
}

// Search handles GET /search?q=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []paperservice.SearchHit{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Candidates handles GET /candidates: notes the next tag pass would touch.
func (h *Handler) Candidates(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Candidates(r.Context())
	if err != nil {
		slog.Error("candidates failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, PaperListResponse{Papers: items, Total: len(items)})
}

// Generate handles POST /generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	if h.passes == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("pipeline disabled"))
		return
	}
	rep, err := h.passes.Generate(r.Context())
	if err != nil {
		writePassError(w, "generate", err)
		return
	}
	created := rep.Created
	if created == nil {
		created = []string{}
	}
	writeJSON(w, http.StatusOK, GenerateResponse{
		Unchanged: rep.Unchanged,
		Rows:      rep.Rows,
		Created:   created,
		Existing:  rep.Existing,
		Blank:     rep.Blank,
		Skipped:   rep.Skipped,
	})
}

// Tag handles POST /tag.
func (h *Handler) Tag(w http.ResponseWriter, r *http.Request) {
	if h.passes == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("pipeline disabled"))
		return
	}
	rep, err := h.passes.Tag(r.Context())
	if err != nil {
		writePassError(w, "tag", err)
		return
	}
	tagged := make(map[string][]string, len(rep.Tagged))
	for p, tags := range rep.Tagged {
		tagged[p] = tags
	}
	writeJSON(w, http.StatusOK, TagResponse{Candidates: rep.Candidates, Tagged: tagged, Skipped: rep.Skipped})
}

func writePassError(w http.ResponseWriter, pass string, err error) {
	var cfgErr *apperr.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{Error: cfgErr.Reason, Field: cfgErr.Field})
	case errors.Is(err, pipeline.ErrPassUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
	default:
		slog.Error("pass failed", slog.String("pass", pass), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
