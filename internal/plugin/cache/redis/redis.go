// Package redis backs capability.Cache with a shared redis/go-redis/v9
// client, for multi-process deployments fronting the same snapshot
// directory/store backend that want their search-result cache shared
// rather than per-process (SPEC_FULL.md §11).
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/config"
	"github.com/nodenestor/hiveminddb/internal/registry/cache"
	goredis "github.com/redis/go-redis/v9"
)

const defaultTTL = 5 * time.Minute

func init() {
	cache.Register(cache.Plugin{Name: "redis", Loader: load})
}

func load(ctx context.Context) (capability.Cache, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis cache: HIVEMINDDB_REDIS_URL is required")
	}
	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis cache: invalid URL: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis cache: ping failed: %w", err)
	}
	ttl := defaultTTL
	if cfg.CacheTTL > 0 {
		ttl = cfg.CacheTTL
	}
	return &Cache{client: client, ttl: ttl}, nil
}

// Cache is a capability.Cache backed by Redis.
type Cache struct {
	client *goredis.Client
	ttl    time.Duration
}

func (c *Cache) Name() string { return "redis" }

type entry struct {
	Generation uint64                           `json:"generation"`
	Results    []capability.CachedSearchResult `json:"results"`
}

func (c *Cache) Get(ctx context.Context, key string, generation uint64) ([]capability.CachedSearchResult, bool) {
	data, err := c.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	if e.Generation != generation {
		return nil, false
	}
	return e.Results, true
}

func (c *Cache) Set(ctx context.Context, key string, generation uint64, results []capability.CachedSearchResult, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	data, err := json.Marshal(entry{Generation: generation, Results: results})
	if err != nil {
		return
	}
	c.client.Set(ctx, redisKey(key), data, ttl)
}

func redisKey(key string) string {
	return "hiveminddb:search:" + key
}

var _ capability.Cache = (*Cache)(nil)
