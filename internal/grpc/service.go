package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

// ServiceName is the gRPC service path segment used by both server
// registration and client Invoke calls.
const ServiceName = "hiveminddb.replication.v1.Replication"

// PublishEventRequest is the wire payload for the PublishEvent RPC,
// carrying one replicated mutation event.
type PublishEventRequest struct {
	Kind      string      `json:"kind"`
	Channel   string      `json:"channel,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// PublishEventResponse acknowledges receipt.
type PublishEventResponse struct {
	Received bool `json:"received"`
}

// ReplicationServer is implemented by whatever receives replicated events
// over gRPC (SPEC_FULL.md does not mandate a particular consensus layer
// behind it).
type ReplicationServer interface {
	PublishEvent(ctx context.Context, req *PublishEventRequest) (*PublishEventResponse, error)
}

func publishEventHandler(srv interface{}, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(PublishEventRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReplicationServer).PublishEvent(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/PublishEvent"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReplicationServer).PublishEvent(ctx, req.(*PublishEventRequest))
	}
	return interceptor(ctx, req, info, handler)
}

// ServiceDesc registers ReplicationServer against a *grpc.Server without
// any protoc-generated stub: it is the hand-written equivalent of what
// protoc-gen-go-grpc would emit for a one-RPC service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReplicationServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "PublishEvent",
			Handler:    publishEventHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/grpc/service.go",
}

// RegisterReplicationServer attaches srv to s under ServiceDesc.
func RegisterReplicationServer(s grpc.ServiceRegistrar, srv ReplicationServer) {
	s.RegisterService(&ServiceDesc, srv)
}
