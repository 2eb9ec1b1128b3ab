// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	service "github.com/sborms/cyclingsimilarity.com/internal/app"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/similarity"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CyclistsDependencies
	SimilarDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	cyclistsHandler *CyclistsHandler
	similarHandler  *SimilarHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		cyclistsHandler: NewCyclistsHandler(deps),
		similarHandler:  NewSimilarHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/cyclists", MetricsMiddleware(s.cyclistsHandler.HandleListCyclists, "cyclists"))
	mux.HandleFunc("/last-update", MetricsMiddleware(s.cyclistsHandler.HandleLastUpdate, "last_update"))
	mux.HandleFunc("/list-similar-cyclists", MetricsMiddleware(s.similarHandler.HandleListSimilar, "list_similar_cyclists"))
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
	writeJSON(w, status, types.ErrorResponse{Error: code, Message: msg})
}

// writeServiceError maps service errors onto status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, similarity.ErrUnknownSubject):
		writeError(w, http.StatusNotFound, "unknown_cyclist", err)
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrNoSnapshot):
		writeError(w, http.StatusServiceUnavailable, "no_snapshot", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
