// Package embedindex implements the in-process embedding index: a
// concurrent map from memory id to an L2-normalized vector, searched by a
// full linear cosine-similarity scan (spec.md §4.3). No ANN structure is
// required at this scale.
package embedindex

import (
	"math"
	"sort"
	"sync"

	"github.com/nodenestor/hiveminddb/internal/apperr"
)

// Index is the embedding index for one fixed vector dimensionality,
// established by the first Upsert call.
type Index struct {
	mu        sync.RWMutex
	dimension int
	vectors   map[uint64][]float32
}

// New creates an empty Index. Dimensionality is unset until the first
// Upsert.
func New() *Index {
	return &Index{vectors: make(map[uint64][]float32)}
}

// Upsert stores vec (L2-normalized on insertion) for id. The first call
// fixes the index's dimensionality; subsequent calls with a different
// length fail with apperr.EmbeddingShape.
func (idx *Index) Upsert(id uint64, vec []float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dimension == 0 {
		idx.dimension = len(vec)
	} else if len(vec) != idx.dimension {
		return apperr.EmbeddingShape("expected dimension")
	}
	idx.vectors[id] = normalize(vec)
	return nil
}

// Remove deletes any vector stored for id. A no-op if none exists.
func (idx *Index) Remove(id uint64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.vectors, id)
}

// Dimension returns the index's established dimensionality, or 0 if no
// vector has been upserted yet.
func (idx *Index) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimension
}

// Scored is one search result: a memory id and its cosine similarity to
// the query vector.
type Scored struct {
	ID    uint64
	Score float64
}

// Search returns the top-k ids by cosine similarity to query, in
// descending score order, ties broken by ascending id for determinism.
// query is L2-normalized before scoring, so a dimension mismatch against
// the established index dimension fails with apperr.EmbeddingShape.
func (idx *Index) Search(query []float32, k int) ([]Scored, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.dimension != 0 && len(query) != idx.dimension {
		return nil, apperr.EmbeddingShape("query dimension does not match index")
	}
	q := normalize(query)

	out := make([]Scored, 0, len(idx.vectors))
	for id, v := range idx.vectors {
		out = append(out, Scored{ID: id, Score: dot(q, v)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if k >= 0 && k < len(out) {
		out = out[:k]
	}
	return out, nil
}

// CosineTo returns the cosine similarity between the stored vector for id
// and query, and whether id has a stored vector at all.
func (idx *Index) CosineTo(id uint64, query []float32) (float64, bool) {
	idx.mu.RLock()
	v, ok := idx.vectors[id]
	idx.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return dot(normalize(query), v), true
}

func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}
	inv := float32(1 / math.Sqrt(sumSq))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
