// Package factorization learns rider and race-event embeddings from observed
// (rider, event, score) triples with a bounded dot-product model.
//
// predicted = yMin + (yMax-yMin) * sigmoid(bias_rider + bias_event + dot(u_rider, v_event))
//
// Training minimizes mean squared error with mini-batch AdamW under a
// one-cycle learning-rate schedule.
package factorization

// Config contains the training hyper-parameters.
type Config struct {
	// Factors is the embedding dimensionality.
	// Default: 10.
	Factors int

	// Epochs is the number of full passes over the triples.
	// Default: 5.
	Epochs int

	// BatchSize is the number of triples per optimizer step.
	// Default: 64.
	BatchSize int

	// MaxLearningRate is the peak of the one-cycle schedule.
	// Default: 0.05.
	MaxLearningRate float64

	// WeightDecay is the decoupled L2 penalty applied to embeddings and biases.
	// Default: 0.1.
	WeightDecay float64

	// YMin and YMax bound the model output. They must enclose every target.
	YMin float64
	YMax float64

	// PctStart is the share of steps spent warming the learning rate up.
	// Default: 0.25.
	PctStart float64

	// DivFactor sets the initial learning rate to MaxLearningRate/DivFactor.
	// Default: 25.
	DivFactor float64

	// FinalDivFactor sets the last learning rate to initial/FinalDivFactor.
	// Default: 1e5.
	FinalDivFactor float64

	// InitStd is the standard deviation of the initial weights.
	// Default: 0.01.
	InitStd float64

	// Seed for reproducible initialization and shuffling.
	// If 0, uses a default seed.
	Seed int64

	// OnEpoch, when set, is called after every epoch.
	OnEpoch func(EpochReport)
}

// EpochReport summarizes one training epoch.
type EpochReport struct {
	Epoch        int
	Loss         float64
	LearningRate float64
}

// Adam moments. beta1 follows the one-cycle momentum schedule between
// momMax and momMin.
const (
	momMax   = 0.95
	momMin   = 0.85
	beta2    = 0.99
	adamEps  = 1e-5
	seedBase = 42
)

// DefaultConfig returns the operational configuration for the binned
// strategy, with the output range widened for the default reweighting.
func DefaultConfig() Config {
	return Config{
		Factors:         10,
		Epochs:          5,
		BatchSize:       64,
		MaxLearningRate: 0.05,
		WeightDecay:     0.1,
		YMin:            0,
		YMax:            5.25 * 2.5,
		PctStart:        0.25,
		DivFactor:       25,
		FinalDivFactor:  1e5,
		InitStd:         0.01,
		Seed:            seedBase,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Factors <= 0 {
		c.Factors = d.Factors
	}
	if c.Epochs <= 0 {
		c.Epochs = d.Epochs
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.MaxLearningRate <= 0 {
		c.MaxLearningRate = d.MaxLearningRate
	}
	if c.WeightDecay < 0 {
		c.WeightDecay = 0
	}
	if c.YMax <= c.YMin {
		c.YMin, c.YMax = d.YMin, d.YMax
	}
	if c.PctStart <= 0 || c.PctStart >= 1 {
		c.PctStart = d.PctStart
	}
	if c.DivFactor <= 0 {
		c.DivFactor = d.DivFactor
	}
	if c.FinalDivFactor <= 0 {
		c.FinalDivFactor = d.FinalDivFactor
	}
	if c.InitStd <= 0 {
		c.InitStd = d.InitStd
	}
	if c.Seed == 0 {
		c.Seed = seedBase
	}
	return c
}
