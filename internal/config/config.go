// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers a YAML file and environment variables on top of New().
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"time"
)

// DateLayout is the layout of every date-valued option.
const DateLayout = "2006-01-02"

// Config contains process configuration shared by the serve, scrape and
// train binaries.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// RefreshInterval is how often the server polls the last-run marker.
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	// StorageBackend selects persistence: file, sqlite or redis.
	StorageBackend string `koanf:"storage_backend"`

	// StoragePath is the directory (file) or database path (sqlite).
	StoragePath string `koanf:"storage_path"`

	RedisAddr string `koanf:"redis_addr"`
	RedisDB   int    `koanf:"redis_db"`

	// SnapshotPrefix prefixes the keys of stored model snapshots.
	SnapshotPrefix string `koanf:"snapshot_prefix"`

	// Training hyper-parameters.
	NFactors        int     `koanf:"n_factors"`
	NEpochs         int     `koanf:"n_epochs"`
	BatchSize       int     `koanf:"batch_size"`
	LearningRate    float64 `koanf:"learning_rate"`
	WeightDecay     float64 `koanf:"weight_decay"`
	NParticipations int     `koanf:"n_participations"`
	Seed            int64   `koanf:"seed"`

	// Normalize is the rank normalization strategy: bins, percentile or clipped-rank.
	Normalize string `koanf:"normalize"`

	// Decay is the yearly exponential decay of event weights.
	Decay float64 `koanf:"decay"`

	// ReferenceYear anchors the year decay. Zero means the cutoff year.
	ReferenceYear int `koanf:"reference_year"`

	// Years lists the seasons to acquire.
	Years []int `koanf:"years"`

	// CutoffDate excludes races ending after it (YYYY-MM-DD). It is also the
	// as-of date for rider ages.
	CutoffDate string `koanf:"cutoff_date"`

	// CalendarPath points to the race calendar YAML. Empty uses the embedded one.
	CalendarPath string `koanf:"calendar_path"`

	// NameOverridesPath points to extra name → slug exceptions.
	NameOverridesPath string `koanf:"name_overrides_path"`

	PCSBaseURL           string        `koanf:"pcs_base_url"`
	PCSRequestsPerSecond float64       `koanf:"pcs_requests_per_second"`
	PCSConcurrency       int           `koanf:"pcs_concurrency"`
	PCSTimeout           time.Duration `koanf:"pcs_timeout"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":8000",
		RefreshInterval:      10 * time.Minute,
		StorageBackend:       "file",
		StoragePath:          "data",
		RedisAddr:            "localhost:6379",
		RedisDB:              0,
		SnapshotPrefix:       "snapshots",
		NFactors:             10,
		NEpochs:              5,
		BatchSize:            64,
		LearningRate:         0.05,
		WeightDecay:          0.1,
		NParticipations:      20,
		Seed:                 42,
		Normalize:            "bins",
		Decay:                0.25,
		ReferenceYear:        0,
		Years:                []int{2020, 2021, 2022, 2023},
		CutoffDate:           "2023-09-18",
		PCSBaseURL:           "https://www.procyclingstats.com",
		PCSRequestsPerSecond: 4,
		PCSConcurrency:       8,
		PCSTimeout:           30 * time.Second,
	}
}

// Cutoff parses CutoffDate.
func (c *Config) Cutoff() (time.Time, error) {
	return time.Parse(DateLayout, c.CutoffDate)
}

// EffectiveReferenceYear returns ReferenceYear, or the cutoff year when unset.
func (c *Config) EffectiveReferenceYear() int {
	if c.ReferenceYear > 0 {
		return c.ReferenceYear
	}
	if t, err := c.Cutoff(); err == nil {
		return t.Year()
	}
	return time.Now().Year()
}
