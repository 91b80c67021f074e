package service

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region service-desc
const (
	serviceName   = "rulenet.v1.Inference"
	inferMethod   = "/" + serviceName + "/Infer"
	requestMethod = "/" + serviceName + "/Request"
)

// InferenceServer is the server API for the rulenet.v1.Inference service.
// Messages are generic structs so no generated code is needed.
type InferenceServer interface {
	Infer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Request(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// InferenceClient is the client API for the rulenet.v1.Inference service.
type InferenceClient interface {
	Infer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Request(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type inferenceClient struct {
	cc grpc.ClientConnInterface
}

// NewInferenceClient wraps a connection in the service's client API.
func NewInferenceClient(cc grpc.ClientConnInterface) InferenceClient {
	return &inferenceClient{cc: cc}
}

func (c *inferenceClient) Infer(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, inferMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *inferenceClient) Request(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, requestMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// RegisterInferenceServer attaches srv to a gRPC server.
func RegisterInferenceServer(s grpc.ServiceRegistrar, srv InferenceServer) {
	s.RegisterService(&InferenceServiceDesc, srv)
}

func unaryHandler(method string, call func(InferenceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InferenceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(InferenceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// InferenceServiceDesc describes rulenet.v1.Inference for grpc.Server.
var InferenceServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*InferenceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Infer",
			Handler:    unaryHandler(inferMethod, InferenceServer.Infer),
		},
		{
			MethodName: "Request",
			Handler:    unaryHandler(requestMethod, InferenceServer.Request),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rulenet/v1/inference.proto",
}
// #endregion service-desc
