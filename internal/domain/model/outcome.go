package model

import (
	"fmt"
	"strconv"
	"strings"
)

// OutcomeKind distinguishes the three states of a results cell.
type OutcomeKind uint8

const (
	// DidNotParticipate is the zero value: the rider was not on the start list.
	DidNotParticipate OutcomeKind = iota
	// DidNotFinish covers DNF, DNS, OTL and DSQ.
	DidNotFinish
	// Finished carries a finishing rank (1 = winner).
	Finished
)

// Outcome is one cell of the results matrix.
type Outcome struct {
	kind OutcomeKind
	rank int
}

// Ranked returns a finished outcome with the given rank.
func Ranked(rank int) Outcome { return Outcome{kind: Finished, rank: rank} }

// DNF returns a did-not-finish outcome.
func DNF() Outcome { return Outcome{kind: DidNotFinish} }

// Absent returns a did-not-participate outcome.
func Absent() Outcome { return Outcome{} }

// Kind returns the outcome state.
func (o Outcome) Kind() OutcomeKind { return o.kind }

// Rank returns the finishing rank and whether the rider finished.
func (o Outcome) Rank() (int, bool) {
	return o.rank, o.kind == Finished
}

// String renders the outcome the way it is stored in results tables.
func (o Outcome) String() string {
	switch o.kind {
	case Finished:
		return strconv.Itoa(o.rank)
	case DidNotFinish:
		return "DNF"
	default:
		return ""
	}
}

// ParseOutcome reads a rank cell. Empty means did-not-participate; the usual
// non-finisher codes map to DidNotFinish.
func ParseOutcome(s string) (Outcome, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "":
		return Absent(), nil
	case "DNF", "DNS", "OTL", "DSQ", "DF", "NR":
		return DNF(), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// Some exports carry ranks as floats ("3.0").
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || f != float64(int(f)) {
			return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
		}
		n = int(f)
	}
	if n < 1 {
		return Outcome{}, fmt.Errorf("%w: rank %d", ErrInvalidOutcome, n)
	}
	return Ranked(n), nil
}
