package service

import (
	"sync/atomic"
	"time"

	"github.com/sborms/cyclingsimilarity.com/internal/adapters/repository"
	"github.com/sborms/cyclingsimilarity.com/internal/domain/similarity"
)

// Published is one immutable serving generation.
type Published struct {
	Engine   *similarity.Engine
	Marker   repository.Marker
	LoadedAt time.Time
}

// ServiceContext holds the generation being served. Readers load it without
// locking; a reload replaces it as a whole.
type ServiceContext struct {
	current atomic.Pointer[Published]
	reloads atomic.Int64
}

// Load returns the current generation, or ErrNoSnapshot.
func (c *ServiceContext) Load() (*Published, error) {
	p := c.current.Load()
	if p == nil {
		return nil, ErrNoSnapshot
	}
	return p, nil
}

// Swap publishes p. In-flight readers keep the generation they loaded.
func (c *ServiceContext) Swap(p *Published) {
	c.current.Store(p)
	c.reloads.Add(1)
}

// Reloads counts the generations published so far.
func (c *ServiceContext) Reloads() int64 { return c.reloads.Load() }
