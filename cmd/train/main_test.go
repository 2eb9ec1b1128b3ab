package main

import (
	"context"
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/sborms/cyclingsimilarity.com/internal/adapters/repository"
	"github.com/sborms/cyclingsimilarity.com/internal/config"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/normalize"
	"github.com/sborms/cyclingsimilarity.com/pkg/logger"
)

func TestModelConfig(t *testing.T) {
	convey.Convey("Given a configuration with custom hyper-parameters", t, func() {
		cfg := config.New()
		cfg.NFactors = 4
		cfg.NEpochs = 2
		cfg.BatchSize = 16
		cfg.LearningRate = 0.01
		cfg.WeightDecay = 0.2
		cfg.Seed = 7

		mc := modelConfig(cfg)

		convey.Convey("Then they should reach the factorization config", func() {
			convey.So(mc.Factors, convey.ShouldEqual, 4)
			convey.So(mc.Epochs, convey.ShouldEqual, 2)
			convey.So(mc.BatchSize, convey.ShouldEqual, 16)
			convey.So(mc.MaxLearningRate, convey.ShouldEqual, 0.01)
			convey.So(mc.WeightDecay, convey.ShouldEqual, 0.2)
			convey.So(mc.Seed, convey.ShouldEqual, int64(7))
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given empty file storage", t, func() {
		cfg := config.New()
		cfg.StoragePath = t.TempDir()

		convey.Convey("Then a run fails because no tables were scraped", func() {
			err := run(context.Background(), cfg, logger.Nop())
			convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given an unknown normalization", t, func() {
		cfg := config.New()
		cfg.StoragePath = t.TempDir()
		cfg.Normalize = "quantile"

		convey.Convey("Then the trainer is never built", func() {
			_, _, err := newTrainer(context.Background(), cfg, logger.Nop())
			convey.So(errors.Is(err, normalize.ErrUnknownStrategy), convey.ShouldBeTrue)
		})
	})
}
