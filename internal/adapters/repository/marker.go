package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Marker records the last successful training run. The server polls it to
// decide when to swap snapshots.
type Marker struct {
	RefreshedAt time.Time `json:"refreshed_at"`
	SnapshotKey string    `json:"snapshot_key"`
	SnapshotID  string    `json:"snapshot_id"`
}

// Date returns the refresh day as YYYY-MM-DD.
func (m Marker) Date() string { return m.RefreshedAt.Format("2006-01-02") }

// LoadMarker reads the marker stored at key.
func LoadMarker(ctx context.Context, s Store, key string) (Marker, error) {
	text, err := s.LoadText(ctx, key)
	if err != nil {
		return Marker{}, err
	}
	var m Marker
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return Marker{}, fmt.Errorf("%w: marker %s: %w", ErrFormat, key, err)
	}
	if m.SnapshotKey == "" {
		return Marker{}, fmt.Errorf("%w: marker %s has no snapshot key", ErrFormat, key)
	}
	return m, nil
}

// StoreMarker writes m at key.
func StoreMarker(ctx context.Context, s Store, m Marker, key string) error {
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode marker: %w", err)
	}
	return s.StoreText(ctx, string(b), key)
}
