package model

import "fmt"

// RankRow is one event's column of the results table: parallel slices of
// riders and their outcomes. Absent riders are not listed.
type RankRow struct {
	Event    RaceEvent
	Riders   []string
	Outcomes []Outcome
}

// ScoreRow is one event's column after normalization or reweighting. A rider
// missing from Riders has a null score.
type ScoreRow struct {
	Event  RaceEvent
	Riders []string
	Values []float64
}

// Triple is one observed (rider, event, value) cell, the unit fed to the
// factorizer.
type Triple struct {
	Rider  string
	Event  string
	Target float64
}

// ResultsMatrix is the sparse rider × event score matrix handed to training.
type ResultsMatrix struct {
	rows []ScoreRow
}

// NewResultsMatrix wraps score rows, dropping events without any score.
func NewResultsMatrix(rows []ScoreRow) (*ResultsMatrix, error) {
	m := &ResultsMatrix{}
	for _, r := range rows {
		if len(r.Riders) != len(r.Values) {
			return nil, fmt.Errorf("event %s: %d riders but %d values", r.Event.Key(), len(r.Riders), len(r.Values))
		}
		if len(r.Riders) == 0 {
			continue
		}
		m.rows = append(m.rows, r)
	}
	return m, nil
}

// Rows returns the underlying event rows.
func (m *ResultsMatrix) Rows() []ScoreRow { return m.rows }

// Triples flattens the matrix into observed cells, event by event.
func (m *ResultsMatrix) Triples() []Triple {
	out := make([]Triple, 0, m.Len())
	for _, r := range m.rows {
		key := r.Event.Key()
		for i, rider := range r.Riders {
			out = append(out, Triple{Rider: rider, Event: key, Target: r.Values[i]})
		}
	}
	return out
}

// Len returns the number of observed cells.
func (m *ResultsMatrix) Len() int {
	n := 0
	for _, r := range m.rows {
		n += len(r.Riders)
	}
	return n
}

// Shape returns the number of distinct riders and events.
func (m *ResultsMatrix) Shape() (riders, events int) {
	seen := make(map[string]struct{})
	for _, r := range m.rows {
		for _, rider := range r.Riders {
			seen[rider] = struct{}{}
		}
	}
	return len(seen), len(m.rows)
}

// MinParticipations returns the smallest per-rider cell count, or 0 for an
// empty matrix.
func (m *ResultsMatrix) MinParticipations() int {
	counts := make(map[string]int)
	for _, r := range m.rows {
		for _, rider := range r.Riders {
			counts[rider]++
		}
	}
	minCount := 0
	for _, c := range counts {
		if minCount == 0 || c < minCount {
			minCount = c
		}
	}
	return minCount
}
