package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

type fakeReplicationServer struct {
	received []*PublishEventRequest
}

func (f *fakeReplicationServer) PublishEvent(ctx context.Context, req *PublishEventRequest) (*PublishEventResponse, error) {
	f.received = append(f.received, req)
	return &PublishEventResponse{Received: true}, nil
}

func TestPublishEventRoundTripsOverBufconn(t *testing.T) {
	lis := bufconn.Listen(1024 * 1024)
	t.Cleanup(func() { lis.Close() })

	srv := grpc.NewServer()
	fake := &fakeReplicationServer{}
	RegisterReplicationServer(srv, fake)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	client := &Client{conn: conn}
	resp, err := client.PublishEvent(context.Background(), &PublishEventRequest{
		Kind:    "memory_added",
		Channel: "team-a",
		Payload: map[string]any{"id": float64(7)},
	})
	require.NoError(t, err)
	require.True(t, resp.Received)
	require.Len(t, fake.received, 1)
	require.Equal(t, "memory_added", fake.received[0].Kind)
}
