package repository

import (
	"context"
	"fmt"
)

const defaultKeyPrefix = "cycsim:"

// Option applies a configuration option to the RedisBackend.
type Option func(*RedisBackend)

// WithKeyPrefix namespaces every redis key.
func WithKeyPrefix(prefix string) Option {
	return func(b *RedisBackend) {
		b.prefix = prefix
	}
}

// BackendConfig selects and configures a backend.
type BackendConfig struct {
	Kind      string
	Path      string
	RedisAddr string
	RedisDB   int
}

// Open builds the backend named by cfg.Kind and wraps it in a Repository.
func Open(ctx context.Context, cfg BackendConfig) (*Repository, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Kind {
	case "file", "":
		backend, err = NewFileBackend(cfg.Path)
	case "sqlite":
		backend, err = NewSQLiteBackend(cfg.Path)
	case "redis":
		backend, err = NewRedisBackend(ctx, cfg.RedisAddr, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Kind)
	}
	if err != nil {
		return nil, err
	}
	return New(backend), nil
}
