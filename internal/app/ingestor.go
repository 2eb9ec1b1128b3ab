package service

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sborms/cyclingsimilarity.com/internal/adapters/pcs"
	"github.com/sborms/cyclingsimilarity.com/internal/adapters/repository"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/identity"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/model"
	"github.com/sborms/cyclingsimilarity.com/pkg/logger"
)

// Ingestor acquires race results and rider profiles and stores them as the
// results and riders tables.
type Ingestor struct {
	source pcs.Source
	store  repository.Store

	calendar    []CalendarRace
	years       []int
	cutoff      time.Time
	concurrency int
	slugger     *identity.Slugger

	resultsKey string
	ridersKey  string

	logger logger.Logger
}

// IngestorOption applies a configuration option to the Ingestor.
type IngestorOption func(*Ingestor)

// WithCalendar sets the races to visit.
func WithCalendar(races []CalendarRace) IngestorOption {
	return func(i *Ingestor) { i.calendar = races }
}

// WithYears sets the seasons to visit.
func WithYears(years ...int) IngestorOption {
	return func(i *Ingestor) { i.years = years }
}

// WithCutoff skips races ending after cutoff.
func WithCutoff(cutoff time.Time) IngestorOption {
	return func(i *Ingestor) { i.cutoff = cutoff }
}

// WithConcurrency bounds the number of in-flight fetches.
func WithConcurrency(n int) IngestorOption {
	return func(i *Ingestor) {
		if n > 0 {
			i.concurrency = n
		}
	}
}

// WithSlugger sets the rider name resolver.
func WithSlugger(s *identity.Slugger) IngestorOption {
	return func(i *Ingestor) {
		if s != nil {
			i.slugger = s
		}
	}
}

// WithIngestorLogger sets the logger.
func WithIngestorLogger(l logger.Logger) IngestorOption {
	return func(i *Ingestor) {
		if l != nil {
			i.logger = l
		}
	}
}

// NewIngestor builds an Ingestor reading from source and writing to store.
func NewIngestor(source pcs.Source, store repository.Store, opts ...IngestorOption) *Ingestor {
	i := &Ingestor{
		source:      source,
		store:       store,
		concurrency: runtime.NumCPU(),
		slugger:     identity.New(),
		resultsKey:  repository.ResultsKey,
		ridersKey:   repository.RidersKey,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

type eventJob struct {
	event    model.RaceEvent
	slug     string
	placings []pcs.Placing
}

// Run acquires every calendar race of every configured year, then the
// profiles of every rider seen, and stores both tables.
func (i *Ingestor) Run(ctx context.Context) (*model.ResultsStore, error) {
	jobs, err := i.collectEvents(ctx)
	if err != nil {
		return nil, err
	}
	i.logger.Info(ctx, "race events discovered", logger.Int("events", len(jobs)))

	if err := i.fetchResults(ctx, jobs); err != nil {
		return nil, err
	}

	store := model.NewResultsStore()
	slugs := make(map[string]string)
	for _, job := range jobs {
		if !hasFinisher(job.placings) {
			i.logger.Debug(ctx, "event without finishers dropped", logger.String("slug", job.slug))
			continue
		}
		for _, p := range job.placings {
			store.Record(job.event, p.Rider, p.Outcome)
			if _, ok := slugs[p.Rider]; !ok {
				slugs[p.Rider] = p.RiderSlug
			}
		}
	}
	if store.Len() == 0 {
		return nil, ErrNoResults
	}

	if err := i.fetchProfiles(ctx, store, slugs); err != nil {
		return nil, err
	}

	if err := i.store.StoreTable(ctx, repository.ResultsTable(store), i.resultsKey); err != nil {
		return nil, err
	}
	if err := i.store.StoreTable(ctx, repository.RidersTable(store), i.ridersKey); err != nil {
		return nil, err
	}
	i.logger.Info(ctx, "acquisition stored",
		logger.Int("events", len(store.Events())),
		logger.Int("riders", len(store.RiderNames())),
		logger.Int("profiles", len(store.Roster())),
	)
	return store, nil
}

// collectEvents reads race overviews and expands them into event slugs. The
// base slug of a race is its one-day result or its GC.
func (i *Ingestor) collectEvents(ctx context.Context) ([]*eventJob, error) {
	type raceJob struct {
		year int
		race CalendarRace
		jobs []*eventJob
	}
	var races []*raceJob
	for _, year := range i.years {
		for _, race := range i.calendar {
			races = append(races, &raceJob{year: year, race: race})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)
	for _, rj := range races {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			base := fmt.Sprintf("race/%s/%d", strings.Trim(rj.race.Slug, "/"), rj.year)
			meta, ok := i.source.FetchRaceEvent(gctx, base)
			if !ok {
				return nil
			}
			if !i.cutoff.IsZero() && meta.EndDate.After(i.cutoff) {
				i.logger.Debug(gctx, "race ends after cutoff, skipped", logger.String("slug", base))
				return nil
			}
			slugs := []string{base + "/"}
			if !meta.OneDay {
				slugs = append(slugs, meta.StageURLs...)
			}
			for _, s := range slugs {
				rj.jobs = append(rj.jobs, &eventJob{
					event: model.NewRaceEvent(rj.year, s, rj.race.Class),
					slug:  s,
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var jobs []*eventJob
	for _, rj := range races {
		jobs = append(jobs, rj.jobs...)
	}
	return jobs, nil
}

func (i *Ingestor) fetchResults(ctx context.Context, jobs []*eventJob) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)
	for _, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			job.placings, _ = i.source.FetchStageOrGCResult(gctx, job.slug)
			return nil
		})
	}
	return g.Wait()
}

// fetchProfiles resolves every rider through the slugger, falling back to
// the slug seen in the result table when the resolved one fails.
func (i *Ingestor) fetchProfiles(ctx context.Context, store *model.ResultsStore, seen map[string]string) error {
	names := store.RiderNames()
	profiles := make([]*model.Rider, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)
	for n, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slug := i.slugger.Slug(name)
			p, ok := i.source.FetchRiderProfile(gctx, slug)
			if !ok && seen[name] != "" && seen[name] != slug {
				p, ok = i.source.FetchRiderProfile(gctx, seen[name])
			}
			if ok {
				profiles[n] = &model.Rider{Name: name, Nationality: p.Nationality, BirthDate: p.BirthDate}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, r := range profiles {
		if r != nil {
			store.PutRider(*r)
		}
	}
	return nil
}

func hasFinisher(placings []pcs.Placing) bool {
	for _, p := range placings {
		if p.Outcome.Kind() == model.Finished {
			return true
		}
	}
	return false
}
