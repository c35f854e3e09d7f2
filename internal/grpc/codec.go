// Package grpc adapts the replication/grpc sink's wire protocol: a single
// unary RPC, PublishEvent, carrying a JSON-encoded capability.Event. There
// is no .proto file — protoc is not available in this environment, so the
// service is defined directly against grpc-go's low-level ServiceDesc/
// ClientConn.Invoke API with a JSON codec instead of generated protobuf
// message types (SPEC_FULL.md §11, §13).
package grpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

const jsonCodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec marshals RPC messages as JSON rather than protobuf, so the
// replication service can exchange plain Go structs without generated
// message types.
type jsonCodec struct{}

func (jsonCodec) Name() string { return jsonCodecName }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("grpc json codec: marshal: %w", err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("grpc json codec: unmarshal: %w", err)
	}
	return nil
}
