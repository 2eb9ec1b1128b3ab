// Package pcs is the data-acquisition client for procyclingstats.com.
//
// Every fetch returns (value, ok). Network, status and parse failures are
// logged and counted as acquisition gaps and surface only as ok == false;
// callers exclude the record and move on.
package pcs

import (
	"context"
	"time"

	"github.com/sborms/cyclingsimilarity.com/internal/domain/model"
)

// RaceMetadata is the overview of one race edition.
type RaceMetadata struct {
	// Slug is "race/<name>/<year>".
	Slug      string
	StartDate time.Time
	EndDate   time.Time
	OneDay    bool
	// StageURLs lists "race/<name>/<year>/stage-N" paths in race order.
	StageURLs []string
}

// Placing is one row of a result table.
type Placing struct {
	Rider     string
	RiderSlug string
	Outcome   model.Outcome
}

// Profile is a rider's metadata.
type Profile struct {
	Nationality string
	BirthDate   time.Time
}

// Source is the acquisition interface consumed by the ingestor.
type Source interface {
	// FetchRaceEvent reads "race/<slug>/<year>/overview".
	FetchRaceEvent(ctx context.Context, slug string) (RaceMetadata, bool)
	// FetchStageOrGCResult reads a stage page, or the GC table when slug
	// is the base page of a stage race (trailing slash with a GC tab).
	FetchStageOrGCResult(ctx context.Context, slug string) ([]Placing, bool)
	// FetchRiderProfile reads "rider/<slug>".
	FetchRiderProfile(ctx context.Context, slug string) (Profile, bool)
}
