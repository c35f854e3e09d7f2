// Package disabled registers the "none" embedding provider: embedding
// explicitly turned off. Selecting it gives search the same keyword-only
// scoring as leaving --embedding-model blank, but it is not identical: the
// server still passes this Embedder to engine.WithEmbedder, so its Embed is
// called and fails.
package disabled

import (
	"context"
	"fmt"

	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/registry/embed"
)

func init() {
	embed.Register(embed.Plugin{
		Name: "none",
		Loader: func(_ context.Context) (capability.Embedder, error) {
			return &Embedder{}, nil
		},
	})
}

// Embedder always fails; the Engine treats a failing Embed the same as an
// absent embedder (logged and swallowed), so selecting "none" degrades to
// keyword-only search (spec.md §7).
type Embedder struct{}

func (e *Embedder) ModelName() string { return "none" }
func (e *Embedder) Dimension() int    { return 0 }

func (e *Embedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, fmt.Errorf("embedding is disabled")
}

var _ capability.Embedder = (*Embedder)(nil)
