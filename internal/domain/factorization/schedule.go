package factorization

import "math"

// oneCycle anneals the learning rate from max/div up to max over the first
// pctStart of the steps, then down to max/(div*finalDiv). Momentum moves the
// opposite way.
type oneCycle struct {
	total    int
	warmup   int
	maxLR    float64
	startLR  float64
	finishLR float64
}

func newOneCycle(cfg Config, totalSteps int) oneCycle {
	start := cfg.MaxLearningRate / cfg.DivFactor
	return oneCycle{
		total:    totalSteps,
		warmup:   int(math.Round(cfg.PctStart * float64(totalSteps))),
		maxLR:    cfg.MaxLearningRate,
		startLR:  start,
		finishLR: start / cfg.FinalDivFactor,
	}
}

// at returns the learning rate and beta1 for a zero-based step.
func (s oneCycle) at(step int) (lr, mom float64) {
	if step < s.warmup {
		pct := float64(step) / float64(s.warmup)
		return annealCos(s.startLR, s.maxLR, pct), annealCos(momMax, momMin, pct)
	}
	rest := s.total - s.warmup
	if rest <= 1 {
		return s.maxLR, momMin
	}
	pct := float64(step-s.warmup) / float64(rest-1)
	return annealCos(s.maxLR, s.finishLR, pct), annealCos(momMin, momMax, pct)
}

func annealCos(start, end, pct float64) float64 {
	return end + (start-end)/2*(math.Cos(math.Pi*pct)+1)
}
