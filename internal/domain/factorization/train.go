package factorization

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/sborms/cyclingsimilarity.com/internal/domain/model"
)

// table holds one embedding table with its Adam moments. Each row stores
// the factors followed by the bias in the last column.
type table struct {
	w [][]float64
	m [][]float64
	v [][]float64
}

func newTable(rows, factors int, std float64, rng *rand.Rand) *table {
	t := &table{
		w: make([][]float64, rows),
		m: make([][]float64, rows),
		v: make([][]float64, rows),
	}
	for i := 0; i < rows; i++ {
		t.w[i] = make([]float64, factors+1)
		t.m[i] = make([]float64, factors+1)
		t.v[i] = make([]float64, factors+1)
		for k := range t.w[i] {
			t.w[i][k] = rng.NormFloat64() * std
		}
	}
	return t
}

// step applies one AdamW update to the rows that received gradient.
func (t *table) step(grads map[int][]float64, lr, wd, beta1 float64, n int) {
	c1 := 1 - math.Pow(beta1, float64(n))
	c2 := 1 - math.Pow(beta2, float64(n))
	for idx, g := range grads {
		w, m, v := t.w[idx], t.m[idx], t.v[idx]
		for k := range w {
			w[k] *= 1 - lr*wd
			m[k] = beta1*m[k] + (1-beta1)*g[k]
			v[k] = beta2*v[k] + (1-beta2)*g[k]*g[k]
			w[k] -= lr * (m[k] / c1) / (math.Sqrt(v[k]/c2) + adamEps)
		}
	}
}

type sample struct {
	rider, event int
	target       float64
}

type trainer struct {
	cfg     Config
	riders  *table
	events  *table
	factors int
	span    float64
}

// Train fits embeddings to the triples and returns a new Snapshot. The
// triples are not modified. Training runs to completion; divergence is not
// detected, so callers should inspect the reported losses.
func Train(triples []model.Triple, cfg Config) (*Snapshot, error) {
	cfg = cfg.withDefaults()

	riderIndex := make(map[string]int)
	eventIndex := make(map[string]int)
	var riderNames, eventKeys []string
	samples := make([]sample, 0, len(triples))
	for _, tr := range triples {
		ri, ok := riderIndex[tr.Rider]
		if !ok {
			ri = len(riderNames)
			riderIndex[tr.Rider] = ri
			riderNames = append(riderNames, tr.Rider)
		}
		ei, ok := eventIndex[tr.Event]
		if !ok {
			ei = len(eventKeys)
			eventIndex[tr.Event] = ei
			eventKeys = append(eventKeys, tr.Event)
		}
		samples = append(samples, sample{rider: ri, event: ei, target: tr.Target})
	}
	if len(riderNames) < 2 || len(eventKeys) < 2 {
		return nil, &InsufficientDataError{Riders: len(riderNames), Events: len(eventKeys)}
	}

	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // deterministic seed for reproducible training
	tr := &trainer{
		cfg:     cfg,
		riders:  newTable(len(riderNames), cfg.Factors, cfg.InitStd, rng),
		events:  newTable(len(eventKeys), cfg.Factors, cfg.InitStd, rng),
		factors: cfg.Factors,
		span:    cfg.YMax - cfg.YMin,
	}

	stepsPerEpoch := (len(samples) + cfg.BatchSize - 1) / cfg.BatchSize
	sched := newOneCycle(cfg, stepsPerEpoch*cfg.Epochs)

	riderGrads := make(map[int][]float64)
	eventGrads := make(map[int][]float64)
	step := 0
	loss := 0.0
	lr := sched.startLR
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		order := rng.Perm(len(samples))
		for start := 0; start < len(order); start += cfg.BatchSize {
			end := min(start+cfg.BatchSize, len(order))
			clear(riderGrads)
			clear(eventGrads)
			tr.accumulate(samples, order[start:end], riderGrads, eventGrads)

			var mom float64
			lr, mom = sched.at(step)
			step++
			tr.riders.step(riderGrads, lr, cfg.WeightDecay, mom, step)
			tr.events.step(eventGrads, lr, cfg.WeightDecay, mom, step)
		}
		loss = tr.meanSquaredError(samples)
		if cfg.OnEpoch != nil {
			cfg.OnEpoch(EpochReport{Epoch: epoch + 1, Loss: loss, LearningRate: lr})
		}
	}

	riderEmb, riderBias := splitBias(tr.riders.w, cfg.Factors)
	eventEmb, eventBias := splitBias(tr.events.w, cfg.Factors)
	return &Snapshot{
		ID:              uuid.NewString(),
		TrainedAt:       time.Now().UTC(),
		Factors:         cfg.Factors,
		YMin:            cfg.YMin,
		YMax:            cfg.YMax,
		Riders:          riderNames,
		RiderIndex:      riderIndex,
		Events:          eventKeys,
		RiderEmbeddings: riderEmb,
		RiderBias:       riderBias,
		EventEmbeddings: eventEmb,
		EventBias:       eventBias,
		FinalLoss:       loss,
	}, nil
}

// accumulate adds the mean-squared-error gradient of one batch.
func (t *trainer) accumulate(samples []sample, batch []int, riderGrads, eventGrads map[int][]float64) {
	scale := 2 / float64(len(batch))
	for _, i := range batch {
		s := samples[i]
		u, v := t.riders.w[s.rider], t.events.w[s.event]
		sig := sigmoid(t.logit(u, v))
		pred := t.cfg.YMin + t.span*sig
		g := scale * (pred - s.target) * t.span * sig * (1 - sig)

		gu := gradRow(riderGrads, s.rider, t.factors)
		gv := gradRow(eventGrads, s.event, t.factors)
		floats.AddScaled(gu[:t.factors], g, v[:t.factors])
		floats.AddScaled(gv[:t.factors], g, u[:t.factors])
		gu[t.factors] += g
		gv[t.factors] += g
	}
}

func splitBias(rows [][]float64, factors int) ([][]float64, []float64) {
	emb := make([][]float64, len(rows))
	bias := make([]float64, len(rows))
	for i, r := range rows {
		emb[i] = append([]float64(nil), r[:factors]...)
		bias[i] = r[factors]
	}
	return emb, bias
}

func gradRow(grads map[int][]float64, idx, factors int) []float64 {
	g, ok := grads[idx]
	if !ok {
		g = make([]float64, factors+1)
		grads[idx] = g
	}
	return g
}

func (t *trainer) logit(u, v []float64) float64 {
	return floats.Dot(u[:t.factors], v[:t.factors]) + u[t.factors] + v[t.factors]
}

func (t *trainer) meanSquaredError(samples []sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		pred := t.cfg.YMin + t.span*sigmoid(t.logit(t.riders.w[s.rider], t.events.w[s.event]))
		d := pred - s.target
		sum += d * d
	}
	return sum / float64(len(samples))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
