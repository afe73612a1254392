package api

import (
	"context"
	"net/http"

	service "github.com/okian/maisearch/internal/app"
)

// RefreshDependencies defines the interface for catalog refreshes.
type RefreshDependencies interface {
	Refresh(ctx context.Context) (service.RefreshResult, error)
}

// RefreshHandler rebuilds the catalog from the feed.
type RefreshHandler struct {
	deps RefreshDependencies
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps RefreshDependencies) *RefreshHandler {
	return &RefreshHandler{deps: deps}
}

// HandlePostRefresh handles POST /refresh requests.
func (h *RefreshHandler) HandlePostRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	res, err := h.deps.Refresh(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
