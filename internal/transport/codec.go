package transport

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is the content-subtype clients request with
// grpc.CallContentSubtype(codecName) to get JSON framing instead of
// google.golang.org/grpc's default protobuf wire format.
const codecName = "json"

// jsonCodec implements encoding.Codec over encoding/json, so CheckService
// rides real gRPC framing and deadlines without requiring a generated
// protobuf binding for CheckRequest/CheckResult.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
