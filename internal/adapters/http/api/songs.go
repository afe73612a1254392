package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/maisearch/internal/domain/model"
)

// SongDependencies defines the interface for id lookups.
type SongDependencies interface {
	SongByID(ctx context.Context, id int) (model.Song, error)
}

// SongsHandler handles song lookups by id.
type SongsHandler struct {
	deps SongDependencies
}

// NewSongsHandler creates a new songs handler.
func NewSongsHandler(deps SongDependencies) *SongsHandler {
	return &SongsHandler{deps: deps}
}

// HandleGetSong handles GET /songs/{id} requests.
func (h *SongsHandler) HandleGetSong(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/songs/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	id, err := strconv.Atoi(path)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: id must be a positive integer", ErrBadRequest))
		return
	}
	song, err := h.deps.SongByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}
