// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/sborms/cyclingsimilarity.com/internal/domain/types"
)

// CyclistsDependencies defines the read operations on the served roster.
type CyclistsDependencies interface {
	ListEligible(ctx context.Context) (types.CyclistsResponse, error)
	LastRefreshDate(ctx context.Context) (types.LastUpdateResponse, error)
}

// CyclistsHandler handles roster requests.
type CyclistsHandler struct {
	deps CyclistsDependencies
}

// NewCyclistsHandler creates a new cyclists handler.
func NewCyclistsHandler(deps CyclistsDependencies) *CyclistsHandler {
	return &CyclistsHandler{deps: deps}
}

// HandleListCyclists handles GET /cyclists requests.
func (h *CyclistsHandler) HandleListCyclists(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	res, err := h.deps.ListEligible(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleLastUpdate handles GET /last-update requests.
func (h *CyclistsHandler) HandleLastUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	res, err := h.deps.LastRefreshDate(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
