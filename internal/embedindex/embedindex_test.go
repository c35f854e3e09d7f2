package embedindex

import (
	"testing"

	"github.com/nodenestor/hiveminddb/internal/apperr"
	"github.com/stretchr/testify/require"
)

func TestUpsertAndSearch(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Upsert(1, []float32{1, 0, 0}))
	require.NoError(t, idx.Upsert(2, []float32{0, 1, 0}))
	require.NoError(t, idx.Upsert(3, []float32{1, 1, 0}))

	results, err := idx.Search([]float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, uint64(1), results[0].ID)
	require.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestUpsertDimensionMismatch(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Upsert(1, []float32{1, 0}))
	err := idx.Upsert(2, []float32{1, 0, 0})
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperr.KindEmbeddingShape, appErr.Kind)
}

func TestRemove(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Upsert(1, []float32{1, 0}))
	idx.Remove(1)
	results, err := idx.Search([]float32{1, 0}, 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearchTieBreakByID(t *testing.T) {
	idx := New()
	require.NoError(t, idx.Upsert(5, []float32{1, 0}))
	require.NoError(t, idx.Upsert(2, []float32{1, 0}))
	results, err := idx.Search([]float32{1, 0}, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(2), results[0].ID)
	require.Equal(t, uint64(5), results[1].ID)
}
