package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/sborms/cyclingsimilarity.com/internal/adapters/repository"
	service "github.com/sborms/cyclingsimilarity.com/internal/app"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/factorization"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/model"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/normalize"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/reweight"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/types"
)

// seedTables stores six one-day races: A and B win the first three, C and D
// the last three. E only abandons and F races once.
func seedTables(t *testing.T, repo repository.Store) {
	t.Helper()
	s := model.NewResultsStore()
	slugs := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot"}
	for i, slug := range slugs {
		e := model.NewRaceEvent(2023, "race/"+slug+"/2023/", "1.UWT")
		first, second := [2]string{"A Rider", "B Rider"}, [2]string{"C Rider", "D Rider"}
		if i >= 3 {
			first, second = second, first
		}
		s.Record(e, first[0], model.Ranked(1))
		s.Record(e, first[1], model.Ranked(2))
		s.Record(e, second[0], model.Ranked(10))
		s.Record(e, second[1], model.Ranked(12))
		s.Record(e, "E Rider", model.DNF())
		if i == 0 {
			s.Record(e, "F Rider", model.Ranked(30))
		}
	}
	born := time.Date(1999, 5, 5, 0, 0, 0, 0, time.UTC)
	for _, name := range []string{"A Rider", "B Rider", "C Rider", "D Rider", "E Rider"} {
		s.PutRider(model.Rider{Name: name, Nationality: "BE", BirthDate: born})
	}

	ctx := context.Background()
	if err := repo.StoreTable(ctx, repository.ResultsTable(s), repository.ResultsKey); err != nil {
		t.Fatal(err)
	}
	if err := repo.StoreTable(ctx, repository.RidersTable(s), repository.RidersKey); err != nil {
		t.Fatal(err)
	}
}

func testModelConfig() factorization.Config {
	cfg := factorization.DefaultConfig()
	cfg.Factors = 3
	cfg.Epochs = 20
	cfg.BatchSize = 4
	return cfg
}

func newTestTrainer(repo repository.Store, opts ...service.TrainerOption) *service.Trainer {
	base := []service.TrainerOption{
		service.WithMinParticipations(3),
		service.WithReferenceYear(2023),
		service.WithSnapshotAsOf(asOf),
		service.WithModelConfig(testModelConfig()),
	}
	return service.NewTrainer(repo, append(base, opts...)...)
}

func TestTrainer_Run(t *testing.T) {
	Convey("Given stored result tables", t, func() {
		repo := newFileRepo(t)
		seedTables(t, repo)
		ctx := context.Background()

		Convey("A run stores a snapshot and points the marker at it", func() {
			marker, err := newTestTrainer(repo).Run(ctx)
			So(err, ShouldBeNil)
			So(strings.HasPrefix(marker.SnapshotKey, "snapshots/"), ShouldBeTrue)

			stored, err := repository.LoadMarker(ctx, repo, repository.MarkerKey)
			So(err, ShouldBeNil)
			So(stored.SnapshotKey, ShouldEqual, marker.SnapshotKey)

			snap, err := repo.LoadSnapshot(ctx, marker.SnapshotKey)
			So(err, ShouldBeNil)
			So(snap.Validate(), ShouldBeNil)
			So(snap.ID, ShouldEqual, marker.SnapshotID)
			So(snap.Riders, ShouldHaveLength, 4)
			So(snap.Riders, ShouldNotContain, "E Rider")
			So(snap.Riders, ShouldNotContain, "F Rider")
			So(snap.Events, ShouldHaveLength, 6)
			So(snap.AsOf.Equal(asOf), ShouldBeTrue)
			So(snap.YMin, ShouldEqual, 0)
			So(snap.YMax, ShouldAlmostEqual, 5.25*2.5)
		})

		Convey("The output range follows the normalization strategy", func() {
			marker, err := newTestTrainer(repo, service.WithStrategy(normalize.Percentile)).Run(ctx)
			So(err, ShouldBeNil)
			snap, err := repo.LoadSnapshot(ctx, marker.SnapshotKey)
			So(err, ShouldBeNil)
			So(snap.YMax, ShouldAlmostEqual, 1.05*2.5)
		})

		Convey("The trained snapshot serves queries end to end", func() {
			_, err := newTestTrainer(repo).Run(ctx)
			So(err, ShouldBeNil)

			svc := service.New(repo)
			_, err = svc.Reload(ctx)
			So(err, ShouldBeNil)

			eligible, err := svc.ListEligible(ctx)
			So(err, ShouldBeNil)
			So(eligible.Cyclists, ShouldHaveLength, 4)
			So(eligible.Cyclists["A Rider"].Age, ShouldEqual, 24)

			req := types.NewSimilarRequest()
			req.Cyclist = "A Rider"
			res, err := svc.MostSimilar(ctx, req)
			So(err, ShouldBeNil)
			So(res.Cyclists, ShouldHaveLength, 3)
			for i := 1; i < len(res.Cyclists); i++ {
				So(res.Cyclists[i-1].Similarity, ShouldBeGreaterThanOrEqualTo, res.Cyclists[i].Similarity)
			}
		})

		Convey("Too little data fails without touching the marker", func() {
			_, err := newTestTrainer(repo, service.WithMinParticipations(100)).Run(ctx)
			So(errors.Is(err, factorization.ErrInsufficientData), ShouldBeTrue)

			_, err = repository.LoadMarker(ctx, repo, repository.MarkerKey)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Results newer than the reference year are refused", func() {
			_, err := newTestTrainer(repo, service.WithReferenceYear(2022)).Run(ctx)
			So(errors.Is(err, reweight.ErrFutureEvent), ShouldBeTrue)

			_, err = repository.LoadMarker(ctx, repo, repository.MarkerKey)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("A failed run keeps the previous marker", func() {
			first, err := newTestTrainer(repo).Run(ctx)
			So(err, ShouldBeNil)

			_, err = newTestTrainer(repo, service.WithMinParticipations(100)).Run(ctx)
			So(err, ShouldNotBeNil)

			stored, err := repository.LoadMarker(ctx, repo, repository.MarkerKey)
			So(err, ShouldBeNil)
			So(stored.SnapshotKey, ShouldEqual, first.SnapshotKey)
		})
	})

	Convey("Given storage without result tables", t, func() {
		repo := newFileRepo(t)
		_, err := newTestTrainer(repo).Run(context.Background())

		Convey("The run fails with a not-found error", func() {
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}
