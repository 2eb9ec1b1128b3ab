package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sborms/cyclingsimilarity.com/internal/adapters/repository"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/factorization"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/model"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/normalize"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/reweight"
	"github.com/sborms/cyclingsimilarity.com/pkg/logger"
	"github.com/sborms/cyclingsimilarity.com/pkg/metrics"
)

const defaultMinParticipations = 20

// Trainer runs the offline pipeline from stored result tables to a published
// snapshot: clean, filter, normalize, reweight, factorize, store.
type Trainer struct {
	store repository.Store

	strategy          normalize.Strategy
	reweighter        *reweight.Reweighter
	minParticipations int
	referenceYear     int
	asOf              time.Time
	model             factorization.Config

	resultsKey     string
	ridersKey      string
	markerKey      string
	snapshotPrefix string

	now    func() time.Time
	logger logger.Logger
}

// TrainerOption applies a configuration option to the Trainer.
type TrainerOption func(*Trainer)

// WithStrategy selects the rank normalization.
func WithStrategy(s normalize.Strategy) TrainerOption {
	return func(t *Trainer) { t.strategy = s }
}

// WithReweighter replaces the default event reweighter.
func WithReweighter(r *reweight.Reweighter) TrainerOption {
	return func(t *Trainer) {
		if r != nil {
			t.reweighter = r
		}
	}
}

// WithMinParticipations drops riders with fewer finishes.
func WithMinParticipations(n int) TrainerOption {
	return func(t *Trainer) {
		if n >= 0 {
			t.minParticipations = n
		}
	}
}

// WithReferenceYear anchors the year decay.
func WithReferenceYear(year int) TrainerOption {
	return func(t *Trainer) { t.referenceYear = year }
}

// WithSnapshotAsOf stamps the date rider ages are computed at.
func WithSnapshotAsOf(asOf time.Time) TrainerOption {
	return func(t *Trainer) { t.asOf = asOf }
}

// WithModelConfig sets the factorization hyper-parameters. The output
// bounds are always derived from the strategy and reweighter.
func WithModelConfig(cfg factorization.Config) TrainerOption {
	return func(t *Trainer) { t.model = cfg }
}

// WithSnapshotPrefix sets the key prefix snapshots are stored under.
func WithSnapshotPrefix(prefix string) TrainerOption {
	return func(t *Trainer) { t.snapshotPrefix = prefix }
}

// WithTrainerLogger sets the logger.
func WithTrainerLogger(l logger.Logger) TrainerOption {
	return func(t *Trainer) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTrainer builds a Trainer over store.
func NewTrainer(store repository.Store, opts ...TrainerOption) *Trainer {
	t := &Trainer{
		store:             store,
		strategy:          normalize.Binned,
		reweighter:        reweight.New(),
		minParticipations: defaultMinParticipations,
		referenceYear:     time.Now().Year(),
		model:             factorization.DefaultConfig(),
		resultsKey:        repository.ResultsKey,
		ridersKey:         repository.RidersKey,
		markerKey:         repository.MarkerKey,
		snapshotPrefix:    "snapshots",
		now:               time.Now,
		logger:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run trains a new snapshot and publishes it by rewriting the last-run
// marker. A failure before the marker write leaves the published snapshot
// untouched.
func (t *Trainer) Run(ctx context.Context) (repository.Marker, error) {
	start := time.Now()
	marker, err := t.run(ctx)
	outcome := "success"
	if err != nil {
		outcome = "failure"
		metrics.RecordErrorByComponent("trainer", "run_failed")
	}
	metrics.RecordTrainingRun(outcome, time.Since(start).Seconds())
	return marker, err
}

func (t *Trainer) run(ctx context.Context) (repository.Marker, error) {
	results, err := t.loadStore(ctx)
	if err != nil {
		return repository.Marker{}, err
	}

	filtered := results.Clean().FilterMinParticipations(t.minParticipations)
	scored, err := normalize.Normalize(filtered.RankRows(), t.strategy)
	if err != nil {
		return repository.Marker{}, err
	}
	weighted, err := t.reweighter.Apply(scored, t.referenceYear)
	if err != nil {
		return repository.Marker{}, err
	}
	matrix, err := model.NewResultsMatrix(weighted)
	if err != nil {
		return repository.Marker{}, err
	}

	triples := matrix.Triples()
	riders, events := matrix.Shape()
	metrics.UpdateDatasetShape(riders, events, len(triples))
	t.logger.Info(ctx, fmt.Sprintf("Training dataset has %d riders, %d races", riders, events),
		logger.Int("triples", len(triples)),
		logger.Int("minParticipations", matrix.MinParticipations()),
		logger.String("normalize", t.strategy.String()),
	)

	cfg := t.model
	cfg.YMin, cfg.YMax = t.reweighter.ScaledRange(normalize.ValueRange(t.strategy))
	cfg.OnEpoch = func(r factorization.EpochReport) {
		metrics.RecordTrainingEpoch(r.Loss, r.LearningRate)
		t.logger.Info(ctx, "epoch done",
			logger.Int("epoch", r.Epoch),
			logger.Float64("loss", r.Loss),
			logger.Float64("lr", r.LearningRate),
		)
	}
	snap, err := factorization.Train(triples, cfg)
	if err != nil {
		return repository.Marker{}, err
	}
	snap.AsOf = t.asOf

	key := path.Join(t.snapshotPrefix, snap.ID)
	if err := t.store.StoreSnapshot(ctx, snap, key); err != nil {
		return repository.Marker{}, err
	}
	marker := repository.Marker{RefreshedAt: t.now().UTC(), SnapshotKey: key, SnapshotID: snap.ID}
	if err := repository.StoreMarker(ctx, t.store, marker, t.markerKey); err != nil {
		return repository.Marker{}, err
	}
	t.logger.Info(ctx, "snapshot stored",
		logger.String("snapshotKey", key),
		logger.Float64("finalLoss", snap.FinalLoss),
	)
	return marker, nil
}

func (t *Trainer) loadStore(ctx context.Context) (*model.ResultsStore, error) {
	var results, riders repository.Table
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		results, err = t.store.LoadTable(gctx, t.resultsKey)
		return err
	})
	g.Go(func() error {
		var err error
		riders, err = t.store.LoadTable(gctx, t.ridersKey)
		if errors.Is(err, repository.ErrNotFound) {
			t.logger.Warn(gctx, "riders table missing, training without metadata")
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load tables: %w", err)
	}
	return repository.LoadResultsStore(results, riders)
}
