package grpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client invokes PublishEvent on a remote replication target. It is the
// only direction internal/grpc serves for HiveMindDB: replication is an
// outbound client call, never an inbound server (SPEC_FULL.md §11).
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to target using the JSON codec registered in codec.go.
func Dial(ctx context.Context, target string) (*Client, error) {
	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc client: dial %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// PublishEvent sends req to the remote replication target and waits for an
// acknowledgement.
func (c *Client) PublishEvent(ctx context.Context, req *PublishEventRequest) (*PublishEventResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	resp := new(PublishEventResponse)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/PublishEvent", req, resp); err != nil {
		return nil, fmt.Errorf("grpc client: PublishEvent: %w", err)
	}
	return resp, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }
