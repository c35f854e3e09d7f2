// Package cache registers pluggable capability.Cache implementations, the
// optional search-result cache described in SPEC_FULL.md §11.
package cache

import (
	"context"
	"fmt"

	"github.com/nodenestor/hiveminddb/internal/capability"
)

// Loader constructs a capability.Cache from ambient config/context.
type Loader func(ctx context.Context) (capability.Cache, error)

// Plugin is one named cache backend.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a cache plugin. Called from plugin init()s.
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
	return nil, fmt.Errorf("unknown cache %q; valid: %v", name, Names())
}
