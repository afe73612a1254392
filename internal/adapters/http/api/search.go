package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/maisearch/internal/domain/model"
)

// SearchDependencies defines the interface for title searches.
type SearchDependencies interface {
	SearchTitle(ctx context.Context, query string, limit int) ([]model.Song, error)
}

// SearchHandler handles fuzzy title searches.
type SearchHandler struct {
	deps SearchDependencies
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(deps SearchDependencies) *SearchHandler {
	return &SearchHandler{deps: deps}
}

type searchResponse struct {
	Query string       `json:"query"`
	Songs []model.Song `json:"songs"`
}

// HandleSearch handles GET /search?q=...&limit=N requests. A search that
// matches nothing answers 200 with an empty list.
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	if !q.Has("q") {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing q", ErrBadRequest))
		return
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_limit", fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest))
			return
		}
		limit = n
	}
	songs, err := h.deps.SearchTitle(r.Context(), q.Get("q"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if songs == nil {
		songs = []model.Song{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: q.Get("q"), Songs: songs})
}
