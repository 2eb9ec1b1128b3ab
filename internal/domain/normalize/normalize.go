// Package normalize turns raw finishing ranks into bounded performance scores.
package normalize

import (
	"fmt"
	"sort"

	"github.com/sborms/cyclingsimilarity.com/internal/domain/model"
)

// Strategy selects how ranks become scores.
type Strategy int

const (
	// Binned maps rank ranges to an ordinal 5..1 score. Used operationally.
	Binned Strategy = iota
	// Percentile scores finishers from 1.0 (best) to 0.0 (worst).
	Percentile
	// ClippedRank caps ranks at 20 and inverts them so higher is better.
	ClippedRank
)

// ParseStrategy maps a configuration key to a Strategy.
func ParseStrategy(key string) (Strategy, error) {
	switch key {
	case "bins", "binned":
		return Binned, nil
	case "percentile", "percentage":
		return Percentile, nil
	case "clipped-rank", "clipped", "clip":
		return ClippedRank, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, key)
}

func (s Strategy) String() string {
	switch s {
	case Binned:
		return "bins"
	case Percentile:
		return "percentile"
	case ClippedRank:
		return "clipped-rank"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// Rank bin edges and their scores. A rank r falls in bin i when
// binEdges[i] < r <= binEdges[i+1]; the lowest edge is inclusive.
var (
	binEdges  = []int{1, 3, 5, 10, 20, 200}
	binScores = []float64{5, 4, 3, 2, 1}
)

const clipRank = 20

// ValueRange returns the (lo, hi) range the strategy's scores live in,
// padded the way the bounded model expects.
func ValueRange(s Strategy) (lo, hi float64) {
	switch s {
	case Percentile:
		return 0, 1.05
	case ClippedRank:
		return 0, clipRank + 0.5
	default:
		return 0, binScores[0] + 0.25
	}
}

// Score maps a single finishing rank to a score. ok is false for ranks the
// strategy cannot score; Percentile needs the whole event and always reports
// false here.
func Score(s Strategy, rank int) (float64, bool) {
	if rank < 1 {
		return 0, false
	}
	switch s {
	case Binned:
		for i := 0; i < len(binScores); i++ {
			if rank <= binEdges[i+1] {
				return binScores[i], true
			}
		}
		// Beyond the last edge is still "21+".
		return binScores[len(binScores)-1], true
	case ClippedRank:
		return float64(clipRank + 1 - min(rank, clipRank)), true
	}
	return 0, false
}

// Normalize scores every event row. Non-finishers and absent riders produce
// no entry in the output row.
func Normalize(rows []model.RankRow, s Strategy) ([]model.ScoreRow, error) {
	switch s {
	case Binned, ClippedRank, Percentile:
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownStrategy, s)
	}

	out := make([]model.ScoreRow, 0, len(rows))
	for _, row := range rows {
		if len(row.Riders) != len(row.Outcomes) {
			return nil, fmt.Errorf("normalize %s: %d riders but %d outcomes", row.Event.Key(), len(row.Riders), len(row.Outcomes))
		}
		var scored model.ScoreRow
		if s == Percentile {
			scored = percentileRow(row)
		} else {
			scored = model.ScoreRow{Event: row.Event}
			for i, o := range row.Outcomes {
				rank, finished := o.Rank()
				if !finished {
					continue
				}
				v, ok := Score(s, rank)
				if !ok {
					continue
				}
				scored.Riders = append(scored.Riders, row.Riders[i])
				scored.Values = append(scored.Values, v)
			}
		}
		out = append(out, scored)
	}
	return out, nil
}

// percentileRow scores finishers by relative position: 1 - (r-1)/(n-1) with
// tied ranks sharing their average position. A lone finisher scores 1.
func percentileRow(row model.RankRow) model.ScoreRow {
	type finisher struct {
		idx  int
		rank int
	}
	var fs []finisher
	for i, o := range row.Outcomes {
		if rank, ok := o.Rank(); ok {
			fs = append(fs, finisher{idx: i, rank: rank})
		}
	}
	out := model.ScoreRow{Event: row.Event}
	if len(fs) == 0 {
		return out
	}

	order := make([]int, len(fs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return fs[order[a]].rank < fs[order[b]].rank })

	positions := make([]float64, len(fs))
	for i := 0; i < len(order); {
		j := i
		for j+1 < len(order) && fs[order[j+1]].rank == fs[order[i]].rank {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			positions[order[k]] = avg
		}
		i = j + 1
	}

	n := float64(len(fs))
	for i, f := range fs {
		v := 1.0
		if n > 1 {
			v = 1 - (positions[i]-1)/(n-1)
		}
		out.Riders = append(out.Riders, row.Riders[f.idx])
		out.Values = append(out.Values, v)
	}
	return out
}
