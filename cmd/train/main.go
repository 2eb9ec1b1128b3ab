// Command train fits rider embeddings on the stored result tables and
// publishes the snapshot through the last-run marker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sborms/cyclingsimilarity.com/internal/adapters/repository"
	service "github.com/sborms/cyclingsimilarity.com/internal/app"
	"github.com/sborms/cyclingsimilarity.com/internal/config"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/factorization"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/normalize"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/reweight"
	"github.com/sborms/cyclingsimilarity.com/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.InitWithFormat(cfg.LogFormat, os.Stdout); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger.ApplyLevel(ctx, cfg.LogLevel, logger.Get())

	if err := run(ctx, cfg, logger.Named("train")); err != nil {
		logger.Get().Error(ctx, "training failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	trainer, closeStore, err := newTrainer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	marker, err := trainer.Run(ctx)
	if err != nil {
		return err
	}
	log.Info(ctx, "snapshot published",
		logger.String("snapshotKey", marker.SnapshotKey),
		logger.String("date", marker.Date()),
	)
	return nil
}

// newTrainer builds the training pipeline described by cfg.
func newTrainer(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Trainer, func(), error) {
	strategy, err := normalize.ParseStrategy(cfg.Normalize)
	if err != nil {
		return nil, nil, err
	}
	cutoff, err := cfg.Cutoff()
	if err != nil {
		return nil, nil, err
	}

	repo, err := repository.Open(ctx, repository.BackendConfig{
		Kind:      cfg.StorageBackend,
		Path:      cfg.StoragePath,
		RedisAddr: cfg.RedisAddr,
		RedisDB:   cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}

	trainer := service.NewTrainer(repo,
		service.WithStrategy(strategy),
		service.WithReweighter(reweight.New(reweight.WithDecay(cfg.Decay))),
		service.WithMinParticipations(cfg.NParticipations),
		service.WithReferenceYear(cfg.EffectiveReferenceYear()),
		service.WithSnapshotAsOf(cutoff),
		service.WithModelConfig(modelConfig(cfg)),
		service.WithSnapshotPrefix(cfg.SnapshotPrefix),
		service.WithTrainerLogger(log),
	)
	return trainer, func() { _ = repo.Close() }, nil
}

func modelConfig(cfg *config.Config) factorization.Config {
	mc := factorization.DefaultConfig()
	mc.Factors = cfg.NFactors
	mc.Epochs = cfg.NEpochs
	mc.BatchSize = cfg.BatchSize
	mc.MaxLearningRate = cfg.LearningRate
	mc.WeightDecay = cfg.WeightDecay
	mc.Seed = cfg.Seed
	return mc
}
