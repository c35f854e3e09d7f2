// Package noop registers the "noop" replication sink, the default
// replication type; with enable_replication false no sink is loaded at
// all (SPEC_FULL.md §11).
package noop

import (
	"context"

	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/config"
	"github.com/nodenestor/hiveminddb/internal/registry/replication"
)

func init() {
	replication.Register(replication.Plugin{
		Name: "noop",
		Loader: func(ctx context.Context, cfg *config.Config) (capability.ReplicationSink, error) {
			return Sink{}, nil
		},
	})
}

// Sink discards every event.
type Sink struct{}

func (Sink) Publish(ctx context.Context, event capability.Event) error { return nil }

var _ capability.ReplicationSink = Sink{}
