package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Service tracker.Control uses only protobuf well-known types, so no
// generated message code is needed.

const ServiceName = "tracker.Control"

const (
	addAssetMethod          = "/" + ServiceName + "/AddAsset"
	removeAssetMethod       = "/" + ServiceName + "/RemoveAsset"
	getStateMethod          = "/" + ServiceName + "/GetState"
	filterKnownAssetsMethod = "/" + ServiceName + "/FilterKnownAssets"
)

// ControlServer is the server API for the tracker.Control service.
type ControlServer interface {
	AddAsset(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	RemoveAsset(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	FilterKnownAssets(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
}

// -----------------------------------------------------------------------------

func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&Control_ServiceDesc, srv)
}

// unaryHandler decodes Req and dispatches to call, honouring interceptors.
func unaryHandler[Req any, Resp any](fullMethod string, call func(ControlServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ControlServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var Control_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "AddAsset",
			Handler:    unaryHandler(addAssetMethod, ControlServer.AddAsset),
		},
		{
			MethodName: "RemoveAsset",
			Handler:    unaryHandler(removeAssetMethod, ControlServer.RemoveAsset),
		},
		{
			MethodName: "GetState",
			Handler:    unaryHandler(getStateMethod, ControlServer.GetState),
		},
		{
			MethodName: "FilterKnownAssets",
			Handler:    unaryHandler(filterKnownAssetsMethod, ControlServer.FilterKnownAssets),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tracker/control.proto",
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

type ControlClient struct {
	cc grpc.ClientConnInterface
}

func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

func (c *ControlClient) AddAsset(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, addAssetMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ControlClient) RemoveAsset(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, removeAssetMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ControlClient) GetState(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getStateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ControlClient) FilterKnownAssets(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, filterKnownAssetsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
