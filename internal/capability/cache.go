package capability

import (
	"context"
	"time"

	"github.com/nodenestor/hiveminddb/internal/model"
)

// CachedSearchResult is one ranked memory as cached by a search-result
// Cache entry — a thin copy of search.Result that doesn't import the
// search package (capability must stay leaf-level).
type CachedSearchResult struct {
	Memory model.Memory
	Score  float64
}

// Cache stores ranked search results keyed by a hash of the query
// parameters, entirely optional: search is already correct and cheap over
// a frozen store (spec.md §8, "Search idempotence"), so a cache miss or a
// disabled cache never changes what a caller sees, only how fast.
type Cache interface {
	Get(ctx context.Context, key string, generation uint64) ([]CachedSearchResult, bool)
	Set(ctx context.Context, key string, generation uint64, results []CachedSearchResult, ttl time.Duration)
	Name() string
}
