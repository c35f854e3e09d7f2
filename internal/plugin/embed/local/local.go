// Package local registers the "local" embedding provider: a dependency-free
// hashing embedder (a bag-of-words hashed into a fixed-width vector, then
// L2-normalized) used as HiveMindDB's zero-config default so semantic
// search works out of the box without any external model call.
package local

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/nodenestor/hiveminddb/internal/capability"
	registryembed "github.com/nodenestor/hiveminddb/internal/registry/embed"
)

const (
	modelName = "local-hashbag-v1"
	dimension = 384
)

func init() {
	registryembed.Register(registryembed.Plugin{
		Name: "local",
		Loader: func(_ context.Context) (capability.Embedder, error) {
			return &Embedder{}, nil
		},
	})
}

// Embedder implements capability.Embedder by hashing tokens into a fixed
// dimension and L2-normalizing. It is deterministic and requires no
// network call, trading semantic quality for zero setup cost.
type Embedder struct{}

func (e *Embedder) ModelName() string { return modelName }

func (e *Embedder) Dimension() int { return dimension }

func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	vector := make([]float32, dimension)
	for _, tok := range tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		i := int(h.Sum64() % uint64(dimension))
		vector[i]++
	}
	var norm float32
	for _, v := range vector {
		norm += v * v
	}
	if norm == 0 {
		return vector, nil
	}
	inv := 1 / float32(math.Sqrt(float64(norm)))
	for i := range vector {
		vector[i] *= inv
	}
	return vector, nil
}

func tokenize(text string) []string {
	text = strings.TrimSpace(strings.ToLower(text))
	if text == "" {
		return nil
	}
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsNumber(r))
	})
}

var _ capability.Embedder = (*Embedder)(nil)
