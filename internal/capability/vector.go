package capability

import "context"

// VectorMatch is one result from a VectorIndex search: a memory id and its
// similarity score to the query embedding.
type VectorMatch struct {
	ID    uint64
	Score float64
}

// VectorIndex is an external, durable alternative to the in-process
// embedindex.Index (spec.md §4.3): same upsert/search/remove shape, but
// backed by a store that survives a process restart without a snapshot
// restore + re-embed pass. The engine always keeps embedindex.Index as
// its authoritative in-memory index; a configured VectorIndex is mirrored
// alongside it and never consulted for correctness, only for durability.
type VectorIndex interface {
	Upsert(ctx context.Context, id uint64, embedding []float32) error
	Search(ctx context.Context, embedding []float32, limit int) ([]VectorMatch, error)
	Remove(ctx context.Context, id uint64) error
	Name() string
}
