// Package types contains the wire shapes shared by the API and the app service
package types

import "strings"

// Defaults for a similarity request when the body omits a field.
const (
	DefaultTopN   = 10
	DefaultAgeMin = 18
	DefaultAgeMax = 35
)

// CyclistProfile is the serving view of an eligible rider
type CyclistProfile struct {
	Nationality string `json:"nationality"`
	Age         int    `json:"age"`
}

// CyclistsResponse lists every eligible rider keyed by name
type CyclistsResponse struct {
	Cyclists map[string]CyclistProfile `json:"cyclists"`
}

// SimilarRequest is the body of a similarity query
type SimilarRequest struct {
	Cyclist   string   `json:"cyclist"`
	N         int      `json:"n"`
	AgeMin    int      `json:"age_min"`
	AgeMax    int      `json:"age_max"`
	Countries []string `json:"countries"`
}

// NewSimilarRequest returns a request carrying the defaults. Decoding a body
// into it only overrides the fields that are present.
func NewSimilarRequest() SimilarRequest {
	return SimilarRequest{
		N:         DefaultTopN,
		AgeMin:    DefaultAgeMin,
		AgeMax:    DefaultAgeMax,
		Countries: []string{""},
	}
}

// Nationalities returns the country filter without blank entries. An empty
// result means no restriction.
func (r SimilarRequest) Nationalities() []string {
	var out []string
	for _, c := range r.Countries {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// SimilarCyclist is one ranked neighbour
type SimilarCyclist struct {
	Name        string  `json:"name"`
	Nationality string  `json:"nationality"`
	Age         int     `json:"age"`
	Similarity  float64 `json:"similarity"`
}

// SimilarResponse is the ordered result of a similarity query
type SimilarResponse struct {
	Cyclists []SimilarCyclist `json:"cyclists"`
}

// LastUpdateResponse carries the date of the last successful training run
type LastUpdateResponse struct {
	Date string `json:"date"`
}

// ErrorResponse is the body of every non-2xx API answer
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatsResponse describes the currently served snapshot
type StatsResponse struct {
	SnapshotID     string  `json:"snapshot_id"`
	TrainedAt      string  `json:"trained_at"`
	AsOf           string  `json:"as_of"`
	Riders         int     `json:"riders"`
	Events         int     `json:"events"`
	EligibleRiders int     `json:"eligible_riders"`
	Factors        int     `json:"factors"`
	FinalLoss      float64 `json:"final_loss"`
	Reloads        int64   `json:"reloads"`
	LastReloadAt   string  `json:"last_reload_at,omitempty"`
}
