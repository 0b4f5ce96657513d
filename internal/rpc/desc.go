package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "globe.v1.GlobeService"

// Method names of GlobeService. Requests and responses are
// google.protobuf.Struct messages.
const (
	MethodFocus       = "Focus"
	MethodCancelFocus = "CancelFocus"
	MethodHover       = "Hover"
	MethodClick       = "Click"
	MethodPointer     = "Pointer"
	MethodWheel       = "Wheel"
	MethodViewport    = "SetViewport"
	MethodGetState    = "GetState"
)

// GlobeServiceServer is the server API for GlobeService.
type GlobeServiceServer interface {
	Focus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelFocus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Hover(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Click(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Pointer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Wheel(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetViewport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetState(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(GlobeServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// GlobeServiceDesc describes GlobeService for grpc.Server.RegisterService.
var GlobeServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GlobeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method(MethodFocus, GlobeServiceServer.Focus),
		method(MethodCancelFocus, GlobeServiceServer.CancelFocus),
		method(MethodHover, GlobeServiceServer.Hover),
		method(MethodClick, GlobeServiceServer.Click),
		method(MethodPointer, GlobeServiceServer.Pointer),
		method(MethodWheel, GlobeServiceServer.Wheel),
		method(MethodViewport, GlobeServiceServer.SetViewport),
		method(MethodGetState, GlobeServiceServer.GetState),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "globe/v1/globe_service.proto",
}

// RegisterGlobeServiceServer registers srv on s.
func RegisterGlobeServiceServer(s grpc.ServiceRegistrar, srv GlobeServiceServer) {
	s.RegisterService(&GlobeServiceDesc, srv)
}

// FullMethod returns the gRPC path of name.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func method(name string, call unaryCall) grpc.MethodDesc {
	full := FullMethod(name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(GlobeServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(GlobeServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
