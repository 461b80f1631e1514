package transport

import (
	"context"

	"google.golang.org/grpc"
)

// CheckServiceClient is the client-side contract cspx.proto's
// CheckService describes.
type CheckServiceClient interface {
	Check(ctx context.Context, req *CheckRequest, opts ...grpc.CallOption) (*CheckResult, error)
}

type checkServiceClient struct {
	cc *grpc.ClientConn
}

// NewCheckServiceClient wraps cc for calls to CheckService, forcing the
// JSON content-subtype codec.go registers rather than grpc's default
// protobuf codec.
func NewCheckServiceClient(cc *grpc.ClientConn) CheckServiceClient {
	return &checkServiceClient{cc: cc}
}

func (c *checkServiceClient) Check(ctx context.Context, req *CheckRequest, opts ...grpc.CallOption) (*CheckResult, error) {
	opts = append(opts, grpc.CallContentSubtype(codecName))
	out := new(CheckResult)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Check", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
