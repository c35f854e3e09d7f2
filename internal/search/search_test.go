package search

import (
	"context"
	"testing"

	"github.com/nodenestor/hiveminddb/internal/bus"
	"github.com/nodenestor/hiveminddb/internal/embedindex"
	"github.com/nodenestor/hiveminddb/internal/engine"
	"github.com/nodenestor/hiveminddb/internal/idalloc"
	"github.com/nodenestor/hiveminddb/internal/model"
	"github.com/nodenestor/hiveminddb/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestSearch(t *testing.T) (*engine.Engine, *Engine) {
	t.Helper()
	st := store.New()
	ids := idalloc.New(idalloc.KindMemory, idalloc.KindHistory, idalloc.KindEntity, idalloc.KindRelationship)
	idx := embedindex.New()
	b := bus.New(8)
	eng := engine.New(st, ids, idx, b)
	return eng, New(eng, 0, 0, 10)
}

func TestSearchRanksByKeywordOverlap(t *testing.T) {
	eng, s := newTestSearch(t)
	ctx := context.Background()
	_, _ = eng.Add(ctx, engine.AddMemoryInput{Content: "the quick brown fox"})
	_, _ = eng.Add(ctx, engine.AddMemoryInput{Content: "the quick brown fox jumps over the lazy dog"})
	_, _ = eng.Add(ctx, engine.AddMemoryInput{Content: "totally unrelated content"})

	results, err := s.Search(ctx, Request{Query: "quick fox"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Greater(t, results[0].Score, 0.0)
}

func TestSearchExcludesInvalidatedByDefault(t *testing.T) {
	eng, s := newTestSearch(t)
	ctx := context.Background()
	m, _ := eng.Add(ctx, engine.AddMemoryInput{Content: "temporary fact"})
	require.NoError(t, eng.Invalidate(ctx, m.ID, "superseded", "t"))

	results, err := s.Search(ctx, Request{Query: "temporary fact"})
	require.NoError(t, err)
	require.Empty(t, results)

	results, err = s.Search(ctx, Request{Query: "temporary fact", IncludeInvalidated: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestSearchIsIdempotentOverFrozenStore(t *testing.T) {
	eng, s := newTestSearch(t)
	ctx := context.Background()
	_, _ = eng.Add(ctx, engine.AddMemoryInput{Content: "stable content here"})

	first, err := s.Search(ctx, Request{Query: "stable content"})
	require.NoError(t, err)
	second, err := s.Search(ctx, Request{Query: "stable content"})
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestSearchRespectsLimit(t *testing.T) {
	eng, s := newTestSearch(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, _ = eng.Add(ctx, engine.AddMemoryInput{Content: "shared keyword content"})
	}
	results, err := s.Search(ctx, Request{Query: "shared keyword", Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestSearchWithoutEmbedderScoresKeywordOnly(t *testing.T) {
	// No Embedder is wired in newTestSearch, so the fused score must equal
	// k_score exactly (weight 1.0), never keywordWeight*k_score.
	eng, s := newTestSearch(t)
	ctx := context.Background()
	_, _ = eng.Add(ctx, engine.AddMemoryInput{Content: "quick fox"})

	results, err := s.Search(ctx, Request{Query: "quick fox"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, 1.0, results[0].Score)
}

func TestKeywordScoreAppliesFullQuerySubstringBonus(t *testing.T) {
	scores := keywordScore("the quick fox", []model.Memory{
		{ID: 1, Content: "the quick fox jumps"},
		{ID: 2, Content: "quick"},
	})
	// Full substring match: matched/total (1.0) + 0.2 bonus, capped at 1.
	require.Equal(t, 1.0, scores[1])
	// Partial token overlap only, no substring bonus.
	require.InDelta(t, 1.0/3.0, scores[2], 1e-9)
}
