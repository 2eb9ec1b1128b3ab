package factorization

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Snapshot is the immutable output of one training run. A new run produces
// a new Snapshot; nothing mutates one after Train returns.
type Snapshot struct {
	ID        string
	TrainedAt time.Time
	// AsOf is the reference date for rider ages served from this snapshot.
	AsOf time.Time

	Factors    int
	YMin, YMax float64

	Riders     []string
	RiderIndex map[string]int
	Events     []string

	RiderEmbeddings [][]float64
	RiderBias       []float64
	EventEmbeddings [][]float64
	EventBias       []float64

	FinalLoss float64
}

// Index returns the row of rider.
func (s *Snapshot) Index(rider string) (int, bool) {
	i, ok := s.RiderIndex[rider]
	return i, ok
}

// Embedding returns the embedding of rider. The slice must not be modified.
func (s *Snapshot) Embedding(rider string) ([]float64, bool) {
	i, ok := s.Index(rider)
	if !ok {
		return nil, false
	}
	return s.RiderEmbeddings[i], true
}

// Predict returns the bounded model output for rider at the event key.
func (s *Snapshot) Predict(rider, event string) (float64, bool) {
	ri, ok := s.Index(rider)
	if !ok {
		return 0, false
	}
	ei := -1
	for i, e := range s.Events {
		if e == event {
			ei = i
			break
		}
	}
	if ei < 0 {
		return 0, false
	}
	x := floats.Dot(s.RiderEmbeddings[ri], s.EventEmbeddings[ei]) + s.RiderBias[ri] + s.EventBias[ei]
	return s.YMin + (s.YMax-s.YMin)*sigmoid(x), true
}

// Validate checks the internal consistency of a decoded snapshot.
func (s *Snapshot) Validate() error {
	if len(s.RiderEmbeddings) != len(s.Riders) || len(s.RiderBias) != len(s.Riders) {
		return fmt.Errorf("snapshot %s: rider tables do not match %d riders", s.ID, len(s.Riders))
	}
	if len(s.EventEmbeddings) != len(s.Events) || len(s.EventBias) != len(s.Events) {
		return fmt.Errorf("snapshot %s: event tables do not match %d events", s.ID, len(s.Events))
	}
	if len(s.RiderIndex) != len(s.Riders) {
		return fmt.Errorf("snapshot %s: rider index has %d entries for %d riders", s.ID, len(s.RiderIndex), len(s.Riders))
	}
	for i, name := range s.Riders {
		if s.RiderIndex[name] != i {
			return fmt.Errorf("snapshot %s: rider %q indexed at %d, stored at %d", s.ID, name, s.RiderIndex[name], i)
		}
		if len(s.RiderEmbeddings[i]) != s.Factors {
			return fmt.Errorf("snapshot %s: rider %q has %d factors, want %d", s.ID, name, len(s.RiderEmbeddings[i]), s.Factors)
		}
	}
	return nil
}
