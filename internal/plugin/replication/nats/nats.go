// Package nats registers the "nats" replication sink, publishing each
// mutation event as a JSON message on a subject derived from its kind
// (SPEC_FULL.md §11), grounded on the nats.go connect/publish pattern seen
// across the example pack.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	nc "github.com/nats-io/nats.go"

	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/config"
	"github.com/nodenestor/hiveminddb/internal/registry/replication"
)

func init() {
	replication.Register(replication.Plugin{
		Name: "nats",
		Loader: func(ctx context.Context, cfg *config.Config) (capability.ReplicationSink, error) {
			if cfg.NATSURL == "" {
				return nil, fmt.Errorf("nats sink: NATSURL is required")
			}
			conn, err := nc.Connect(cfg.NATSURL,
				nc.Name("hiveminddb"),
				nc.ReconnectWait(2*time.Second),
				nc.MaxReconnects(-1),
				nc.DisconnectErrHandler(func(_ *nc.Conn, err error) {
					if err != nil {
						log.Warn("nats replication sink disconnected", "err", err)
					}
				}),
				nc.ReconnectHandler(func(c *nc.Conn) {
					log.Info("nats replication sink reconnected", "url", c.ConnectedUrl())
				}),
			)
			if err != nil {
				return nil, fmt.Errorf("nats sink: connect: %w", err)
			}
			return &Sink{conn: conn, subjectPrefix: "hiveminddb.events"}, nil
		},
	})
}

// wireEvent is the JSON representation published to NATS for every event.
type wireEvent struct {
	Kind      string      `json:"kind"`
	Channel   string      `json:"channel,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Sink publishes each event as a JSON message on
// "<prefix>.<kind>", so subscribers can filter by subject wildcard
// (e.g. "hiveminddb.events.memory_*").
type Sink struct {
	conn          *nc.Conn
	subjectPrefix string
}

func (s *Sink) Publish(ctx context.Context, event capability.Event) error {
	data, err := json.Marshal(wireEvent{
		Kind:      string(event.Kind),
		Channel:   event.Channel,
		Timestamp: event.Timestamp,
		Payload:   event.Payload,
	})
	if err != nil {
		return fmt.Errorf("nats sink: marshal event: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", s.subjectPrefix, event.Kind)
	if err := s.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("nats sink: publish to %s: %w", subject, err)
	}
	return nil
}

var _ capability.ReplicationSink = (*Sink)(nil)
