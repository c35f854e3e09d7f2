// Package replication registers ReplicationSink plugins by name, mirroring
// the registry/embed and registry/vector pattern: a Loader builds a
// capability.ReplicationSink from config, self-registered by each plugin's
// init().
package replication

import (
	"context"
	"fmt"

	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/config"
)

// Loader builds a ReplicationSink from config.
type Loader func(ctx context.Context, cfg *config.Config) (capability.ReplicationSink, error)

// Plugin names a registered replication sink implementation.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a replication sink plugin. Called from each plugin's init().
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered replication sink plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named replication sink plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown replication sink %q; valid: %v", name, Names())
}
