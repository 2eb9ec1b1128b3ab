package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/sborms/cyclingsimilarity.com/internal/domain/normalize"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// Environment variable naming.
const (
	EnvConfigFile = "CYCSIM_CONFIG"
	EnvPrefix     = "CYCSIM_"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if CYCSIM_CONFIG is set
//  3. env (prefix CYCSIM_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// CYCSIM_N_FACTORS -> n_factors. Underscores are kept to match the flat
	// koanf tags on the struct.
	envProvider := env.ProviderWithValue(EnvPrefix, ".", envValue)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	// The config file path itself is not an option.
	k.Delete("config")

	cfg := *base
	// Slices decode over the default element by element; start empty instead.
	if k.Exists("years") {
		cfg.Years = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// sliceKeys lists the options that take a comma-separated list in env vars.
var sliceKeys = map[string]bool{ //nolint:gochecknoglobals // fixed lookup table
	"years": true,
}

// envValue maps an env var to its koanf key, splitting list values on commas.
func envValue(key, value string) (string, any) {
	key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(EnvPrefix))
	if !sliceKeys[key] {
		return key, value
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return key, out
}

// Validate rejects configurations no binary can run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if _, err := normalize.ParseStrategy(c.Normalize); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.NFactors < 1 {
		return fmt.Errorf("%w: n_factors must be at least 1, got %d", ErrInvalidConfig, c.NFactors)
	}
	if c.NEpochs < 1 {
		return fmt.Errorf("%w: n_epochs must be at least 1, got %d", ErrInvalidConfig, c.NEpochs)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch_size must be at least 1, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.NParticipations < 0 {
		return fmt.Errorf("%w: n_participations must not be negative, got %d", ErrInvalidConfig, c.NParticipations)
	}
	cutoff, err := c.Cutoff()
	if err != nil {
		return fmt.Errorf("%w: cutoff_date %q: %w", ErrInvalidConfig, c.CutoffDate, err)
	}
	// Events up to the cutoff year are scraped; a reference year before it
	// would weight them past the model's output range.
	if c.ReferenceYear > 0 && c.ReferenceYear < cutoff.Year() {
		return fmt.Errorf("%w: reference_year %d precedes the cutoff year %d", ErrInvalidConfig, c.ReferenceYear, cutoff.Year())
	}
	switch c.StorageBackend {
	case "file", "sqlite", "redis":
	default:
		return fmt.Errorf("%w: unknown storage_backend %q", ErrInvalidConfig, c.StorageBackend)
	}
	return nil
}
