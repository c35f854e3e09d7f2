// Package vector registers pluggable capability.VectorIndex backends, the
// same way internal/registry/embed registers Embedder backends: a plugin
// calls Register from its init(), and internal/cmd/serve selects one by
// name at startup.
package vector

import (
	"context"
	"fmt"

	"github.com/nodenestor/hiveminddb/internal/capability"
)

// Loader constructs a capability.VectorIndex from ambient config/context.
type Loader func(ctx context.Context) (capability.VectorIndex, error)

// Plugin is one named vector index backend.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a vector index plugin. Called from plugin init()s.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns every registered plugin name.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader registered under name.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown vector index %q; valid: %v", name, Names())
}
