// Package repository persists result tables, model snapshots and the
// last-run marker behind a pluggable blob backend (file, sqlite or redis).
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sborms/cyclingsimilarity.com/internal/domain/factorization"
	"github.com/sborms/cyclingsimilarity.com/pkg/metrics"
)

// Backend stores opaque blobs by key.
type Backend interface {
	// Get returns the blob at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put replaces the blob at key.
	Put(ctx context.Context, key string, data []byte) error
	// Name identifies the backend in metrics and logs.
	Name() string
	Close() error
}

// Store is the persistence interface the ingest, training and serving
// pipelines depend on.
type Store interface {
	LoadTable(ctx context.Context, key string) (Table, error)
	StoreTable(ctx context.Context, t Table, key string) error
	LoadSnapshot(ctx context.Context, key string) (*factorization.Snapshot, error)
	StoreSnapshot(ctx context.Context, s *factorization.Snapshot, key string) error
	LoadText(ctx context.Context, key string) (string, error)
	StoreText(ctx context.Context, text, key string) error
}

// Repository implements Store on top of a Backend.
type Repository struct {
	backend Backend
}

var _ Store = (*Repository)(nil)

// New wraps a backend.
func New(backend Backend) *Repository {
	return &Repository{backend: backend}
}

// Backend returns the underlying backend.
func (r *Repository) Backend() Backend { return r.backend }

// Close closes the backend.
func (r *Repository) Close() error { return r.backend.Close() }

func (r *Repository) get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	data, err := r.backend.Get(ctx, key)
	metrics.RecordStorageOp(r.backend.Name(), "get", outcome(err), float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

func (r *Repository) put(ctx context.Context, key string, data []byte) error {
	start := time.Now()
	err := r.backend.Put(ctx, key, data)
	metrics.RecordStorageOp(r.backend.Name(), "put", outcome(err), float64(time.Since(start).Milliseconds()))
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}

// LoadText returns the text stored at key.
func (r *Repository) LoadText(ctx context.Context, key string) (string, error) {
	data, err := r.get(ctx, key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// StoreText stores text at key.
func (r *Repository) StoreText(ctx context.Context, text, key string) error {
	return r.put(ctx, key, []byte(text))
}

// LoadTable decodes the CSV table stored at key.
func (r *Repository) LoadTable(ctx context.Context, key string) (Table, error) {
	data, err := r.get(ctx, key)
	if err != nil {
		return Table{}, err
	}
	t, err := DecodeTable(data)
	if err != nil {
		return Table{}, fmt.Errorf("decode table %s: %w", key, err)
	}
	return t, nil
}

// StoreTable encodes t as CSV and stores it at key.
func (r *Repository) StoreTable(ctx context.Context, t Table, key string) error {
	data, err := EncodeTable(t)
	if err != nil {
		return fmt.Errorf("encode table %s: %w", key, err)
	}
	return r.put(ctx, key, data)
}

// LoadSnapshot decodes and validates the snapshot stored at key.
func (r *Repository) LoadSnapshot(ctx context.Context, key string) (*factorization.Snapshot, error) {
	data, err := r.get(ctx, key)
	if err != nil {
		return nil, err
	}
	s, err := DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return s, nil
}

// StoreSnapshot encodes s and stores it at key.
func (r *Repository) StoreSnapshot(ctx context.Context, s *factorization.Snapshot, key string) error {
	data, err := EncodeSnapshot(s)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	return r.put(ctx, key, data)
}
