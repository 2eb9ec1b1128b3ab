// Package similarity answers nearest-neighbour queries over the rider
// embeddings of a trained snapshot, filtered by age and nationality.
package similarity

import (
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/sborms/cyclingsimilarity.com/internal/domain/factorization"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/model"
)

// Placeholder is the sentinel subject used for unknown riders. It is never
// returned as a candidate.
const Placeholder = "#na#"

// Unrestricted age bounds, substituted when a query's range is inverted.
const (
	DefaultAgeMin = 0
	DefaultAgeMax = 100
)

// Query describes one MostSimilar request.
type Query struct {
	Subject string
	// TopN truncates the result. Zero or less returns every candidate.
	TopN   int
	AgeMin int
	AgeMax int
	// Nationalities restricts candidates. Empty, or only empty strings, means
	// no restriction.
	Nationalities []string
}

// Result is one ranked neighbour.
type Result struct {
	Name        string
	Nationality string
	Age         int
	Similarity  float64
}

// Profile is the serving view of an eligible rider.
type Profile struct {
	Nationality string
	Age         int
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithAsOf sets the reference date for ages. Defaults to the snapshot's
// AsOf, or its training time when unset.
func WithAsOf(t time.Time) Option {
	return func(e *Engine) {
		if !t.IsZero() {
			e.asOf = t
		}
	}
}

// WithPlaceholder overrides the sentinel subject name.
func WithPlaceholder(name string) Option {
	return func(e *Engine) { e.placeholder = name }
}

// Engine is read-only after construction and safe for concurrent queries.
type Engine struct {
	snap        *factorization.Snapshot
	profiles    map[string]model.Rider
	norms       []float64
	asOf        time.Time
	placeholder string
}

// NewEngine indexes the snapshot and rider metadata.
func NewEngine(snap *factorization.Snapshot, riders []model.Rider, opts ...Option) *Engine {
	e := &Engine{
		snap:        snap,
		profiles:    make(map[string]model.Rider, len(riders)),
		norms:       make([]float64, len(snap.Riders)),
		asOf:        snap.AsOf,
		placeholder: Placeholder,
	}
	if e.asOf.IsZero() {
		e.asOf = snap.TrainedAt
	}
	for _, r := range riders {
		e.profiles[r.Name] = r
	}
	for i, emb := range snap.RiderEmbeddings {
		e.norms[i] = floats.Norm(emb, 2)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot returns the snapshot the engine serves.
func (e *Engine) Snapshot() *factorization.Snapshot { return e.snap }

// AsOf returns the reference date used for ages.
func (e *Engine) AsOf() time.Time { return e.asOf }

// Eligible lists every embedded rider with profile metadata, keyed by name.
func (e *Engine) Eligible() map[string]Profile {
	out := make(map[string]Profile, len(e.snap.Riders))
	for _, name := range e.snap.Riders {
		if p, ok := e.profile(name); ok {
			out[name] = p
		}
	}
	return out
}

func (e *Engine) profile(name string) (Profile, bool) {
	if name == e.placeholder {
		return Profile{}, false
	}
	r, ok := e.profiles[name]
	if !ok || !r.HasProfile() {
		return Profile{}, false
	}
	age, _ := r.Age(e.asOf)
	return Profile{Nationality: r.Nationality, Age: age}, true
}

// MostSimilar ranks candidates by cosine similarity to the query subject.
// An empty candidate population yields an empty result, not an error.
func (e *Engine) MostSimilar(q Query) ([]Result, error) {
	qi, ok := e.snap.Index(q.Subject)
	if !ok || q.Subject == e.placeholder {
		return nil, &UnknownSubjectError{Subject: q.Subject}
	}
	ageMin, ageMax := q.AgeMin, q.AgeMax
	if ageMax < ageMin {
		ageMin, ageMax = DefaultAgeMin, DefaultAgeMax
	}
	nats := nationalitySet(q.Nationalities)

	query := e.snap.RiderEmbeddings[qi]
	results := make([]Result, 0)
	for i, name := range e.snap.Riders {
		if i == qi {
			continue
		}
		p, ok := e.profile(name)
		if !ok || p.Age < ageMin || p.Age > ageMax {
			continue
		}
		if nats != nil {
			if _, ok := nats[strings.ToUpper(p.Nationality)]; !ok {
				continue
			}
		}
		results = append(results, Result{
			Name:        name,
			Nationality: p.Nationality,
			Age:         p.Age,
			Similarity:  e.cosineAt(query, qi, i),
		})
	}

	sort.SliceStable(results, func(a, b int) bool { return results[a].Similarity > results[b].Similarity })
	if q.TopN > 0 && len(results) > q.TopN {
		results = results[:q.TopN]
	}
	return results, nil
}

func (e *Engine) cosineAt(query []float64, qi, ci int) float64 {
	den := e.norms[qi] * e.norms[ci]
	if den == 0 {
		return 0
	}
	return floats.Dot(query, e.snap.RiderEmbeddings[ci]) / den
}

func nationalitySet(codes []string) map[string]struct{} {
	var set map[string]struct{}
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if set == nil {
			set = make(map[string]struct{})
		}
		set[c] = struct{}{}
	}
	return set
}

// Cosine returns the cosine similarity of a and b, or 0 when either is the
// zero vector.
func Cosine(a, b []float64) float64 {
	den := floats.Norm(a, 2) * floats.Norm(b, 2)
	if den == 0 {
		return 0
	}
	return floats.Dot(a, b) / den
}
