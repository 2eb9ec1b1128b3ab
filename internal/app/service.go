// Package service wires persistence, training and similarity search into the
// operations exposed by the HTTP API and the batch jobs.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sborms/cyclingsimilarity.com/internal/adapters/repository"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/factorization"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/model"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/similarity"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/types"
	"github.com/sborms/cyclingsimilarity.com/pkg/logger"
	"github.com/sborms/cyclingsimilarity.com/pkg/metrics"
)

const (
	defaultRefreshInterval = 10 * time.Minute
	reloadTimeout          = time.Minute
)

// Service answers similarity queries from the latest published snapshot and
// keeps polling storage for newer ones.
type Service struct {
	mu sync.Mutex

	store     repository.Store
	markerKey string
	ridersKey string

	refreshInterval time.Duration
	asOf            time.Time

	serving ServiceContext

	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRefreshInterval sets how often the last-run marker is polled.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshInterval = d
		}
	}
}

// WithAsOf overrides the reference date for rider ages.
func WithAsOf(t time.Time) Option {
	return func(s *Service) { s.asOf = t }
}

// WithKeys overrides the storage keys of the marker and the riders table.
func WithKeys(markerKey, ridersKey string) Option {
	return func(s *Service) {
		if markerKey != "" {
			s.markerKey = markerKey
		}
		if ridersKey != "" {
			s.ridersKey = ridersKey
		}
	}
}

// New constructs a Service reading from store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:           store,
		markerKey:       repository.MarkerKey,
		ridersKey:       repository.RidersKey,
		refreshInterval: defaultRefreshInterval,
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the published snapshot, if any, and starts the refresher.
// A missing marker is not an error: queries fail with ErrNoSnapshot until a
// training run publishes one.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if _, err := s.Reload(ctx); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("initial snapshot load: %w", err)
		}
		s.logger.Warn(ctx, "no snapshot published yet, serving will fail until one is")
	}

	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.refreshLoop(s.stopCh, s.doneCh)

	s.started = true
	s.logger.Info(ctx, "similarity service started", logger.Duration("refreshInterval", s.refreshInterval))
	return nil
}

// Stop halts the refresher. The current snapshot stays loaded.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	close(s.stopCh)
	<-s.doneCh
	s.started = false
	s.logger.Info(context.Background(), "similarity service stopped")
}

func (s *Service) refreshLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
			swapped, err := s.Reload(ctx)
			cancel()
			switch {
			case errors.Is(err, repository.ErrNotFound):
				s.logger.Debug(ctx, "no snapshot published yet")
			case err != nil:
				s.logger.Warn(ctx, "snapshot refresh failed, keeping current", logger.Error(err))
			case swapped:
				s.logger.Info(ctx, "snapshot refreshed")
			}
		}
	}
}

// Reload reads the last-run marker and, when it names a snapshot other than
// the one being served, loads that snapshot with the riders table and swaps
// it in. It reports whether a swap happened.
func (s *Service) Reload(ctx context.Context) (bool, error) {
	marker, err := repository.LoadMarker(ctx, s.store, s.markerKey)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			metrics.RecordSnapshotReload("failure")
		}
		return false, err
	}
	if cur, err := s.serving.Load(); err == nil && cur.Marker.SnapshotKey == marker.SnapshotKey {
		return false, nil
	}

	var (
		snap   *factorization.Snapshot
		riders []model.Rider
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap, err = s.store.LoadSnapshot(gctx, marker.SnapshotKey)
		return err
	})
	g.Go(func() error {
		t, err := s.store.LoadTable(gctx, s.ridersKey)
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn(gctx, "riders table missing, no rider is eligible")
			return nil
		}
		if err != nil {
			return err
		}
		riders, err = repository.RidersFromTable(t)
		return err
	})
	if err := g.Wait(); err != nil {
		metrics.RecordSnapshotReload("failure")
		return false, fmt.Errorf("load snapshot %s: %w", marker.SnapshotKey, err)
	}

	s.Publish(snap, riders, marker)
	return true, nil
}

// Publish serves snap with the given rider metadata.
func (s *Service) Publish(snap *factorization.Snapshot, riders []model.Rider, marker repository.Marker) {
	engine := similarity.NewEngine(snap, riders, similarity.WithAsOf(s.asOf))
	now := time.Now()
	s.serving.Swap(&Published{Engine: engine, Marker: marker, LoadedAt: now})

	metrics.RecordSnapshotReload("success")
	metrics.UpdateSnapshotPublished(len(snap.Riders), len(snap.Events), float64(now.Unix()))
	s.logger.Info(context.Background(), "snapshot published",
		logger.String("snapshotID", snap.ID),
		logger.String("snapshotKey", marker.SnapshotKey),
		logger.Int("riders", len(snap.Riders)),
		logger.Int("events", len(snap.Events)),
	)
}

// ListEligible lists every rider that can appear in similarity results.
func (s *Service) ListEligible(ctx context.Context) (types.CyclistsResponse, error) {
	p, err := s.serving.Load()
	if err != nil {
		return types.CyclistsResponse{}, err
	}
	eligible := p.Engine.Eligible()
	out := types.CyclistsResponse{Cyclists: make(map[string]types.CyclistProfile, len(eligible))}
	for name, prof := range eligible {
		out.Cyclists[name] = types.CyclistProfile{Nationality: prof.Nationality, Age: prof.Age}
	}
	return out, nil
}

// MostSimilar ranks the riders closest to req.Cyclist.
func (s *Service) MostSimilar(ctx context.Context, req types.SimilarRequest) (types.SimilarResponse, error) {
	start := time.Now()
	if req.Cyclist == "" {
		return types.SimilarResponse{}, fmt.Errorf("%w: cyclist is required", ErrInvalidRequest)
	}
	if req.N < 1 {
		return types.SimilarResponse{}, fmt.Errorf("%w: n must be positive, got %d", ErrInvalidRequest, req.N)
	}
	p, err := s.serving.Load()
	if err != nil {
		return types.SimilarResponse{}, err
	}
	results, err := p.Engine.MostSimilar(similarity.Query{
		Subject:       req.Cyclist,
		TopN:          req.N,
		AgeMin:        req.AgeMin,
		AgeMax:        req.AgeMax,
		Nationalities: req.Nationalities(),
	})
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordSimilarityQuery("unknown_subject", latency, 0)
		return types.SimilarResponse{}, err
	}
	metrics.RecordSimilarityQuery("ok", latency, len(results))

	out := types.SimilarResponse{Cyclists: make([]types.SimilarCyclist, len(results))}
	for i, r := range results {
		out.Cyclists[i] = types.SimilarCyclist{
			Name:        r.Name,
			Nationality: r.Nationality,
			Age:         r.Age,
			Similarity:  r.Similarity,
		}
	}
	s.logger.Debug(ctx, "similarity query served",
		logger.String("cyclist", req.Cyclist),
		logger.Int("results", len(results)),
	)
	return out, nil
}

// LastRefreshDate returns the day of the training run being served.
func (s *Service) LastRefreshDate(ctx context.Context) (types.LastUpdateResponse, error) {
	p, err := s.serving.Load()
	if err != nil {
		return types.LastUpdateResponse{}, err
	}
	return types.LastUpdateResponse{Date: p.Marker.Date()}, nil
}

// GetStats describes the snapshot being served.
func (s *Service) GetStats() types.StatsResponse {
	stats := types.StatsResponse{Reloads: s.serving.Reloads()}
	p, err := s.serving.Load()
	if err != nil {
		return stats
	}
	snap := p.Engine.Snapshot()
	stats.SnapshotID = snap.ID
	stats.TrainedAt = snap.TrainedAt.Format(time.RFC3339)
	stats.AsOf = p.Engine.AsOf().Format("2006-01-02")
	stats.Riders = len(snap.Riders)
	stats.Events = len(snap.Events)
	stats.EligibleRiders = len(p.Engine.Eligible())
	stats.Factors = snap.Factors
	stats.FinalLoss = snap.FinalLoss
	stats.LastReloadAt = p.LoadedAt.UTC().Format(time.RFC3339)
	return stats
}
