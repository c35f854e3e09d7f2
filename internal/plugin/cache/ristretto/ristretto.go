// Package ristretto backs the in-process capability.Cache with
// dgraph-io/ristretto/v2, an admission-policy LRU tuned for high read/write
// concurrency — a good fit for a per-process search-result cache that
// every request path reads.
package ristretto

import (
	"context"
	"time"

	goristretto "github.com/dgraph-io/ristretto/v2"

	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/config"
	"github.com/nodenestor/hiveminddb/internal/registry/cache"
)

const defaultTTL = 5 * time.Minute

func init() {
	cache.Register(cache.Plugin{Name: "ristretto", Loader: load})
}

func load(ctx context.Context) (capability.Cache, error) {
	cfg := config.FromContext(ctx)
	ttl := defaultTTL
	if cfg != nil && cfg.CacheTTL > 0 {
		ttl = cfg.CacheTTL
	}
	rc, err := goristretto.NewCache(&goristretto.Config[string, entry]{
		NumCounters: 1e6,
		MaxCost:     1 << 26, // 64MiB of cached ranked result lists
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{rc: rc, ttl: ttl}, nil
}

type entry struct {
	generation uint64
	results    []capability.CachedSearchResult
}

// Cache is a capability.Cache backed by an in-process ristretto.Cache.
type Cache struct {
	rc  *goristretto.Cache[string, entry]
	ttl time.Duration
}

func (c *Cache) Name() string { return "ristretto" }

func (c *Cache) Get(_ context.Context, key string, generation uint64) ([]capability.CachedSearchResult, bool) {
	e, ok := c.rc.Get(key)
	if !ok || e.generation != generation {
		return nil, false
	}
	return e.results, true
}

func (c *Cache) Set(_ context.Context, key string, generation uint64, results []capability.CachedSearchResult, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.rc.SetWithTTL(key, entry{generation: generation, results: results}, int64(len(results)+1), ttl)
}

var _ capability.Cache = (*Cache)(nil)
