// Package reweight scales normalized scores by an importance weight derived
// from race metadata: recency, class, and stage-vs-GC role.
package reweight

import (
	"errors"
	"fmt"
	"math"

	"github.com/sborms/cyclingsimilarity.com/internal/domain/model"
)

// Default weighting constants.
const (
	DefaultDecay = 0.25
	stageWeight  = 0.8
	gcWeight     = 1.25
)

// DefaultClassWeights returns the class lookup used operationally.
func DefaultClassWeights() map[model.RaceClass]float64 {
	return map[model.RaceClass]float64{
		model.ClassUWT: 2.0,
		model.ClassPro: 1.5,
		model.Class1:   0.75,
		model.Class2:   0.5,
	}
}

// Option applies a configuration option to the Reweighter.
type Option func(*Reweighter)

// WithDecay sets the yearly exponential decay rate. Negative values are ignored.
func WithDecay(decay float64) Option {
	return func(r *Reweighter) {
		if decay >= 0 {
			r.decay = decay
		}
	}
}

// WithClassWeights replaces the class lookup. Non-positive weights are dropped,
// which makes the class unknown.
func WithClassWeights(weights map[model.RaceClass]float64) Option {
	return func(r *Reweighter) {
		r.classWeights = make(map[model.RaceClass]float64, len(weights))
		for c, w := range weights {
			if w > 0 {
				r.classWeights[c] = w
			}
		}
	}
}

// WithStageWeights overrides the stage and GC multipliers.
func WithStageWeights(stage, gc float64) Option {
	return func(r *Reweighter) {
		if stage > 0 {
			r.stageWeight = stage
		}
		if gc > 0 {
			r.gcWeight = gc
		}
	}
}

// Reweighter computes per-event weights. It holds no mutable state after
// construction, so one value can be shared across goroutines.
type Reweighter struct {
	decay        float64
	classWeights map[model.RaceClass]float64
	stageWeight  float64
	gcWeight     float64
}

// New creates a Reweighter with the operational defaults.
func New(opts ...Option) *Reweighter {
	r := &Reweighter{
		decay:        DefaultDecay,
		classWeights: DefaultClassWeights(),
		stageWeight:  stageWeight,
		gcWeight:     gcWeight,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ComputeWeight returns yearWeight × classWeight × stageWeight × gcWeight for e.
func (r *Reweighter) ComputeWeight(e model.RaceEvent, referenceYear int) (float64, error) {
	class, err := e.Class()
	if err != nil {
		return 0, &UnknownClassError{Event: e.Key(), Code: e.ClassCode, Err: err}
	}
	cw, ok := r.classWeights[class]
	if !ok {
		return 0, &UnknownClassError{Event: e.Key(), Code: e.ClassCode, Err: model.ErrUnknownClass}
	}

	w := math.Exp(-r.decay*float64(referenceYear-e.Year)) * cw
	if e.IsStage() {
		w *= r.stageWeight
	}
	if e.IsGeneralClassification() {
		w *= r.gcWeight
	}
	return w, nil
}

// MaxWeight is the largest weight an event of the reference year can get:
// the top class weight times the larger of the stage and GC multipliers.
func (r *Reweighter) MaxWeight() float64 {
	top := 0.0
	for _, w := range r.classWeights {
		top = math.Max(top, w)
	}
	return top * math.Max(1, math.Max(r.stageWeight, r.gcWeight))
}

// ScaledRange widens a normalizer value range so it still bounds scores after
// reweighting. The lower bound drops to zero since the year decay has no floor.
func (r *Reweighter) ScaledRange(lo, hi float64) (float64, float64) {
	return math.Min(0, lo), hi * r.MaxWeight()
}

// Apply multiplies every score of each row by that event's weight. The input
// rows are not modified. With a positive decay an event after referenceYear
// would weigh more than MaxWeight and escape ScaledRange, so it is rejected.
func (r *Reweighter) Apply(rows []model.ScoreRow, referenceYear int) ([]model.ScoreRow, error) {
	out := make([]model.ScoreRow, 0, len(rows))
	for _, row := range rows {
		if r.decay > 0 && row.Event.Year > referenceYear {
			return nil, fmt.Errorf("%w: %s is from %d, reference year is %d",
				ErrFutureEvent, row.Event.Key(), row.Event.Year, referenceYear)
		}
		w, err := r.ComputeWeight(row.Event, referenceYear)
		if err != nil {
			return nil, err
		}
		scaled := model.ScoreRow{
			Event:  row.Event,
			Riders: append([]string(nil), row.Riders...),
			Values: make([]float64, len(row.Values)),
		}
		for i, v := range row.Values {
			scaled.Values[i] = v * w
		}
		out = append(out, scaled)
	}
	return out, nil
}

// ErrFutureEvent is returned by Apply for events newer than the reference year.
var ErrFutureEvent = errors.New("event after reference year")

// UnknownClassError reports an event whose class code has no weight.
type UnknownClassError struct {
	Event string
	Code  string
	Err   error
}

func (e *UnknownClassError) Error() string {
	return fmt.Sprintf("reweight %s: unknown class %q", e.Event, e.Code)
}

func (e *UnknownClassError) Unwrap() error { return e.Err }

// IsUnknownClass reports whether err is an UnknownClassError.
func IsUnknownClass(err error) bool {
	var target *UnknownClassError
	return errors.As(err, &target)
}
