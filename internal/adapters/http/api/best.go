package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	service "github.com/okian/maisearch/internal/app"
	"github.com/okian/maisearch/internal/domain/best"
	"github.com/okian/maisearch/internal/domain/model"
	"github.com/okian/maisearch/internal/domain/rating"
)

const maxBestBodyBytes = 1 << 20

// BestDependencies defines the interface for building best boards.
type BestDependencies interface {
	BuildBoard(ctx context.Context, standard, deluxe []service.ScoreInput) (*best.Board, error)
}

// BestHandler builds best boards from submitted scores.
type BestHandler struct {
	deps BestDependencies
}

// NewBestHandler creates a new best handler.
func NewBestHandler(deps BestDependencies) *BestHandler {
	return &BestHandler{deps: deps}
}

type bestRequest struct {
	Standard []service.ScoreInput `json:"standard"`
	Deluxe   []service.ScoreInput `json:"deluxe"`
}

type bestResponse struct {
	Standard       []model.Record `json:"standard"`
	Deluxe         []model.Record `json:"deluxe"`
	StandardRating int            `json:"standard_rating"`
	DeluxeRating   int            `json:"deluxe_rating"`
	Rating         int            `json:"rating"`
	Plate          int            `json:"plate"`
}

// HandlePostBest handles POST /best requests.
func (h *BestHandler) HandlePostBest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req bestRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBestBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	board, err := h.deps.BuildBoard(r.Context(), req.Standard, req.Deluxe)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	total := board.Rating()
	writeJSON(w, http.StatusOK, bestResponse{
		Standard:       board.Standard.Records(),
		Deluxe:         board.Deluxe.Records(),
		StandardRating: board.Standard.Rating(),
		DeluxeRating:   board.Deluxe.Rating(),
		Rating:         total,
		Plate:          rating.PlateOf(total),
	})
}
