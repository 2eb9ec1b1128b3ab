// Command scrape acquires race results and rider profiles from
// procyclingstats and stores them as the results and riders tables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sborms/cyclingsimilarity.com/internal/adapters/pcs"
	"github.com/sborms/cyclingsimilarity.com/internal/adapters/repository"
	service "github.com/sborms/cyclingsimilarity.com/internal/app"
	"github.com/sborms/cyclingsimilarity.com/internal/config"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/identity"
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

	if err := run(ctx, cfg, logger.Named("scrape")); err != nil {
		logger.Get().Error(ctx, "scrape failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	cutoff, err := cfg.Cutoff()
	if err != nil {
		return err
	}
	calendar, err := service.LoadCalendar(cfg.CalendarPath)
	if err != nil {
		return err
	}
	slugger, err := newSlugger(cfg.NameOverridesPath)
	if err != nil {
		return err
	}

	repo, err := repository.Open(ctx, repository.BackendConfig{
		Kind:      cfg.StorageBackend,
		Path:      cfg.StoragePath,
		RedisAddr: cfg.RedisAddr,
		RedisDB:   cfg.RedisDB,
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer repo.Close()

	client := pcs.New(cfg.PCSBaseURL,
		pcs.WithTimeout(cfg.PCSTimeout),
		pcs.WithRateLimit(cfg.PCSRequestsPerSecond),
		pcs.WithLogger(log.Named("pcs")),
	)
	ingestor := service.NewIngestor(client, repo,
		service.WithCalendar(calendar),
		service.WithYears(cfg.Years...),
		service.WithCutoff(cutoff),
		service.WithConcurrency(cfg.PCSConcurrency),
		service.WithSlugger(slugger),
		service.WithIngestorLogger(log),
	)

	start := time.Now()
	log.Info(ctx, "scrape started",
		logger.Int("races", len(calendar)),
		logger.Any("years", cfg.Years),
		logger.String("cutoff", cfg.CutoffDate),
	)
	store, err := ingestor.Run(ctx)
	if err != nil {
		return err
	}
	log.Info(ctx, "scrape finished",
		logger.Int("events", len(store.Events())),
		logger.Int("riders", len(store.RiderNames())),
		logger.Int("profiles", len(store.Roster())),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}

func newSlugger(overridesPath string) (*identity.Slugger, error) {
	if overridesPath == "" {
		return identity.New(), nil
	}
	overrides, err := identity.LoadOverrides(overridesPath)
	if err != nil {
		return nil, err
	}
	return identity.New(identity.WithOverrides(overrides)), nil
}
