// Package grpc registers the "grpc" replication sink, forwarding each
// mutation event as a unary PublishEvent RPC to an external target
// (SPEC_FULL.md §11).
package grpc

import (
	"context"
	"fmt"

	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/config"
	internalgrpc "github.com/nodenestor/hiveminddb/internal/grpc"
	"github.com/nodenestor/hiveminddb/internal/registry/replication"
)

func init() {
	replication.Register(replication.Plugin{
		Name: "grpc",
		Loader: func(ctx context.Context, cfg *config.Config) (capability.ReplicationSink, error) {
			if cfg.GRPCTargetAddr == "" {
				return nil, fmt.Errorf("grpc sink: GRPCTargetAddr is required")
			}
			client, err := internalgrpc.Dial(ctx, cfg.GRPCTargetAddr)
			if err != nil {
				return nil, err
			}
			return &Sink{client: client}, nil
		},
	})
}

// Sink forwards events to a remote replication target over gRPC.
type Sink struct {
	client *internalgrpc.Client
}

func (s *Sink) Publish(ctx context.Context, event capability.Event) error {
	_, err := s.client.PublishEvent(ctx, &internalgrpc.PublishEventRequest{
		Kind:      string(event.Kind),
		Channel:   event.Channel,
		Timestamp: event.Timestamp,
		Payload:   event.Payload,
	})
	return err
}

var _ capability.ReplicationSink = (*Sink)(nil)
