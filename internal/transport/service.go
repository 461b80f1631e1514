package transport

import (
	"context"

	"google.golang.org/grpc"
)

// CheckServiceServer is the server-side contract cspx.proto's
// CheckService describes.
type CheckServiceServer interface {
	Check(context.Context, *CheckRequest) (*CheckResult, error)
}

// serviceName is the fully-qualified service name cspx.proto declares.
const serviceName = "cspx.v1.CheckService"

func checkHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(CheckRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CheckServiceServer).Check(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Check"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CheckServiceServer).Check(ctx, req.(*CheckRequest))
	}
	return interceptor(ctx, req, info, handler)
}

// serviceDesc is the grpc.ServiceDesc a protoc-gen-go-grpc plugin would
// otherwise generate from cspx.proto. Hand-written because this service
// carries JSON payloads (codec.go) rather than protobuf ones, so there is
// no .proto-generated registration to lean on.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*CheckServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Check", Handler: checkHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cspx.proto",
}

// RegisterCheckServiceServer wires srv into s under the name cspx.proto
// assigns CheckService.
func RegisterCheckServiceServer(s *grpc.Server, srv CheckServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}
