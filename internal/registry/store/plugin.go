// Package store registers pluggable capability.StoreBackend
// implementations, the durable alternative to the default in-memory
// Store + snapshot.json pairing (spec.md §4.9, §11).
package store

import (
	"context"
	"fmt"

	"github.com/nodenestor/hiveminddb/internal/capability"
)

// Loader constructs a capability.StoreBackend from ambient config/context.
type Loader func(ctx context.Context) (capability.StoreBackend, error)

// Plugin is one named store backend.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a store backend plugin. Called from plugin init()s.
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
	return nil, fmt.Errorf("unknown store backend %q; valid: %v", name, Names())
}
