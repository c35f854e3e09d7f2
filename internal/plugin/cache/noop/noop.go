// Package noop is the null capability.Cache, used when no cache backend is
// configured (the default — search is already cheap and correct over an
// in-memory store, so caching is a latency optimization, never a
// correctness requirement).
package noop

import (
	"context"
	"time"

	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/registry/cache"
)

func init() {
	cache.Register(cache.Plugin{
		Name: "noop",
		Loader: func(ctx context.Context) (capability.Cache, error) {
			return &Cache{}, nil
		},
	})
}

// Cache is a capability.Cache that never stores anything.
type Cache struct{}

func (c *Cache) Name() string { return "noop" }

func (c *Cache) Get(_ context.Context, _ string, _ uint64) ([]capability.CachedSearchResult, bool) {
	return nil, false
}

func (c *Cache) Set(_ context.Context, _ string, _ uint64, _ []capability.CachedSearchResult, _ time.Duration) {
}

var _ capability.Cache = (*Cache)(nil)
