// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/maisearch/internal/adapters/catalog"
	"github.com/okian/maisearch/internal/adapters/feed"
	service "github.com/okian/maisearch/internal/app"
	"github.com/okian/maisearch/internal/domain/best"
	"github.com/okian/maisearch/internal/domain/model"
	"github.com/okian/maisearch/internal/domain/search"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SongByID(ctx context.Context, id int) (model.Song, error)
	SearchTitle(ctx context.Context, query string, limit int) ([]model.Song, error)
	Rating(ds, achievement float64) service.RatingResult
	BuildBoard(ctx context.Context, standard, deluxe []service.ScoreInput) (*best.Board, error)
	Refresh(ctx context.Context) (service.RefreshResult, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	songsHandler   *SongsHandler
	searchHandler  *SearchHandler
	ratingHandler  *RatingHandler
	bestHandler    *BestHandler
	refreshHandler *RefreshHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		songsHandler:   NewSongsHandler(deps),
		searchHandler:  NewSearchHandler(deps),
		ratingHandler:  NewRatingHandler(deps),
		bestHandler:    NewBestHandler(deps),
		refreshHandler: NewRefreshHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/songs/", MetricsMiddleware(s.songsHandler.HandleGetSong, "songs"))
	mux.HandleFunc("/search", MetricsMiddleware(s.searchHandler.HandleSearch, "search"))
	mux.HandleFunc("/rating", MetricsMiddleware(s.ratingHandler.HandleRating, "rating"))
	mux.HandleFunc("/best", MetricsMiddleware(s.bestHandler.HandlePostBest, "best"))
	mux.HandleFunc("/refresh", MetricsMiddleware(s.refreshHandler.HandlePostRefresh, "refresh"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service and store errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, search.ErrInvalidLimit),
		errors.Is(err, service.ErrInvalidScore):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, catalog.ErrUnavailable),
		errors.Is(err, service.ErrNotStarted),
		errors.Is(err, service.ErrNoFeed),
		errors.Is(err, feed.ErrFetch),
		errors.Is(err, feed.ErrNoData):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "timeout", err)
	case errors.Is(err, catalog.ErrMalformed), errors.Is(err, feed.ErrMalformed):
		writeError(w, http.StatusInternalServerError, "malformed_record", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
