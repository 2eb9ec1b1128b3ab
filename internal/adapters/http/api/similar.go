// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/sborms/cyclingsimilarity.com/internal/domain/types"
)

const maxBodyBytes = 1 << 16

// SimilarDependencies defines the similarity query operation.
type SimilarDependencies interface {
	MostSimilar(ctx context.Context, req types.SimilarRequest) (types.SimilarResponse, error)
}

// SimilarHandler handles similarity queries.
type SimilarHandler struct {
	deps SimilarDependencies
}

// NewSimilarHandler creates a new similarity handler.
func NewSimilarHandler(deps SimilarDependencies) *SimilarHandler {
	return &SimilarHandler{deps: deps}
}

// HandleListSimilar handles POST /list-similar-cyclists requests. Fields
// missing from the body keep their defaults.
func (h *SimilarHandler) HandleListSimilar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	req := types.NewSimilarRequest()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	res, err := h.deps.MostSimilar(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
