// Package embed is the pluggable embedding-provider SPI: the Engine calls
// through capability.Embedder, and these loaders are how a deployment
// picks which concrete provider backs that interface (spec.md §7,
// "embedder absence is always tolerated").
package embed

import (
	"context"
	"fmt"

	"github.com/nodenestor/hiveminddb/internal/capability"
)

// Loader constructs an Embedder, typically from process-wide config read
// out of ctx or closed over at registration time.
type Loader func(ctx context.Context) (capability.Embedder, error)

// Plugin bundles a provider name with its Loader.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds an embedding provider plugin. Called from each plugin
// package's init().
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered provider names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the Loader for the named provider.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown embedding provider %q; registered: %v", name, Names())
}
