package server

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "usi.USIService"

// USIServiceServer is the server API for the USI service
type USIServiceServer interface {
	GetPower(context.Context, *SwitchInput) (*Power, error)
	GetInterface(context.Context, *SwitchInput) (*Interface, error)
	Connect(context.Context, *SwitchInput) (*SwitchActionResponse, error)
	Disconnect(context.Context, *SwitchInput) (*SwitchActionResponse, error)
}

// RegisterUSIServiceServer registers srv with a gRPC server
func RegisterUSIServiceServer(s grpc.ServiceRegistrar, srv USIServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*USIServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetPower",
			Handler: unaryHandler("GetPower", func(srv USIServiceServer, ctx context.Context, in *SwitchInput) (interface{}, error) {
				return srv.GetPower(ctx, in)
			}),
		},
		{
			MethodName: "GetInterface",
			Handler: unaryHandler("GetInterface", func(srv USIServiceServer, ctx context.Context, in *SwitchInput) (interface{}, error) {
				return srv.GetInterface(ctx, in)
			}),
		},
		{
			MethodName: "Connect",
			Handler: unaryHandler("Connect", func(srv USIServiceServer, ctx context.Context, in *SwitchInput) (interface{}, error) {
				return srv.Connect(ctx, in)
			}),
		},
		{
			MethodName: "Disconnect",
			Handler: unaryHandler("Disconnect", func(srv USIServiceServer, ctx context.Context, in *SwitchInput) (interface{}, error) {
				return srv.Disconnect(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "usi.proto",
}

type methodFunc func(srv USIServiceServer, ctx context.Context, in *SwitchInput) (interface{}, error)

// unaryHandler adapts a typed method to grpc.MethodHandler
func unaryHandler(method string, call methodFunc) grpc.MethodHandler {
	fullMethod := "/" + serviceName + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(SwitchInput)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(USIServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(USIServiceServer), ctx, req.(*SwitchInput))
		}
		return interceptor(ctx, in, info, handler)
	}
}
