package model

import (
	"fmt"
	"sort"
)

// ResultsStore holds the sparse rider × event outcome table plus the rider
// roster. Cells not set are DidNotParticipate. Events and riders keep their
// insertion order so derived matrices are deterministic.
type ResultsStore struct {
	events     []RaceEvent
	eventIndex map[string]int
	cells      []map[string]Outcome

	riderOrder []string
	riderSeen  map[string]struct{}

	roster map[string]Rider
}

// NewResultsStore returns an empty store.
func NewResultsStore() *ResultsStore {
	return &ResultsStore{
		eventIndex: make(map[string]int),
		riderSeen:  make(map[string]struct{}),
		roster:     make(map[string]Rider),
	}
}

// AddEvent registers an event and returns its position. Adding a known event
// is a no-op.
func (s *ResultsStore) AddEvent(e RaceEvent) int {
	key := e.Key()
	if idx, ok := s.eventIndex[key]; ok {
		return idx
	}
	s.events = append(s.events, e)
	s.cells = append(s.cells, make(map[string]Outcome))
	s.eventIndex[key] = len(s.events) - 1
	return len(s.events) - 1
}

// Record sets the outcome of rider in event, registering both when new.
// Recording DidNotParticipate clears the cell.
func (s *ResultsStore) Record(e RaceEvent, rider string, o Outcome) {
	idx := s.AddEvent(e)
	if o.Kind() == DidNotParticipate {
		delete(s.cells[idx], rider)
		return
	}
	s.cells[idx][rider] = o
	if _, ok := s.riderSeen[rider]; !ok {
		s.riderSeen[rider] = struct{}{}
		s.riderOrder = append(s.riderOrder, rider)
	}
}

// PutRider stores or replaces rider profile metadata.
func (s *ResultsStore) PutRider(r Rider) {
	s.roster[r.Name] = r
}

// Rider returns the profile for name.
func (s *ResultsStore) Rider(name string) (Rider, bool) {
	r, ok := s.roster[name]
	return r, ok
}

// Roster returns every known rider profile sorted by name.
func (s *ResultsStore) Roster() []Rider {
	out := make([]Rider, 0, len(s.roster))
	for _, r := range s.roster {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Events returns the events in insertion order.
func (s *ResultsStore) Events() []RaceEvent {
	out := make([]RaceEvent, len(s.events))
	copy(out, s.events)
	return out
}

// RiderNames returns every rider with at least one recorded outcome, in
// first-seen order.
func (s *ResultsStore) RiderNames() []string {
	out := make([]string, 0, len(s.riderOrder))
	for _, r := range s.riderOrder {
		if s.hasAnyCell(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s *ResultsStore) hasAnyCell(rider string) bool {
	for _, row := range s.cells {
		if _, ok := row[rider]; ok {
			return true
		}
	}
	return false
}

// Outcome returns the cell for rider in event.
func (s *ResultsStore) Outcome(e RaceEvent, rider string) (Outcome, error) {
	idx, ok := s.eventIndex[e.Key()]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownEvent, e.Key())
	}
	return s.cells[idx][rider], nil
}

// Participations counts the events in which rider has a finishing rank.
func (s *ResultsStore) Participations(rider string) int {
	n := 0
	for _, row := range s.cells {
		if o, ok := row[rider]; ok && o.Kind() == Finished {
			n++
		}
	}
	return n
}

// Len returns the number of non-empty cells.
func (s *ResultsStore) Len() int {
	n := 0
	for _, row := range s.cells {
		n += len(row)
	}
	return n
}

// Clean returns a copy in which non-finishes are treated as absent and events
// left without any finisher are dropped. The roster is carried over.
func (s *ResultsStore) Clean() *ResultsStore {
	return s.filter(func(string) bool { return true })
}

// FilterMinParticipations returns a cleaned copy that keeps only riders with
// at least minParticipations finishing ranks, then drops events left empty.
func (s *ResultsStore) FilterMinParticipations(minParticipations int) *ResultsStore {
	counts := make(map[string]int, len(s.riderOrder))
	for _, row := range s.cells {
		for rider, o := range row {
			if o.Kind() == Finished {
				counts[rider]++
			}
		}
	}
	return s.filter(func(rider string) bool { return counts[rider] >= minParticipations })
}

func (s *ResultsStore) filter(keepRider func(string) bool) *ResultsStore {
	out := NewResultsStore()
	for i, e := range s.events {
		finishers := 0
		for rider, o := range s.cells[i] {
			if o.Kind() == Finished && keepRider(rider) {
				finishers++
			}
		}
		if finishers == 0 {
			continue
		}
		for _, rider := range s.riderOrder {
			o, ok := s.cells[i][rider]
			if !ok || o.Kind() != Finished || !keepRider(rider) {
				continue
			}
			out.Record(e, rider, o)
		}
	}
	for name, r := range s.roster {
		out.roster[name] = r
	}
	return out
}

// RankRows exports the store event by event, listing every non-absent cell
// in rider first-seen order.
func (s *ResultsStore) RankRows() []RankRow {
	rows := make([]RankRow, 0, len(s.events))
	for i, e := range s.events {
		row := RankRow{Event: e}
		for _, rider := range s.riderOrder {
			if o, ok := s.cells[i][rider]; ok {
				row.Riders = append(row.Riders, rider)
				row.Outcomes = append(row.Outcomes, o)
			}
		}
		rows = append(rows, row)
	}
	return rows
}
