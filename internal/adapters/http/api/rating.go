package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	service "github.com/okian/maisearch/internal/app"
)

// RatingDependencies defines the interface for single chart ratings.
type RatingDependencies interface {
	Rating(ds, achievement float64) service.RatingResult
}

// RatingHandler computes single chart ratings.
type RatingHandler struct {
	deps RatingDependencies
}

// NewRatingHandler creates a new rating handler.
func NewRatingHandler(deps RatingDependencies) *RatingHandler {
	return &RatingHandler{deps: deps}
}

// HandleRating handles GET /rating?ds=14.4&achievement=100.5 requests.
func (h *RatingHandler) HandleRating(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ds, err := parseNonNegative(r, "ds")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	achievement, err := parseNonNegative(r, "achievement")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Rating(ds, achievement))
}

func parseNonNegative(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: missing %s", ErrBadRequest, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative number", ErrBadRequest, name)
	}
	return v, nil
}
