package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Сервис описан вручную: сообщения - google.protobuf.Struct, поэтому
// генерация кода не нужна, а контракт полей задают мапперы.
const ServiceName = "shvark.affiliate.v1.LedgerReadService"

const (
	MethodGetMemberStats  = "/" + ServiceName + "/GetMemberStats"
	MethodListCommissions = "/" + ServiceName + "/ListCommissions"
	MethodListFraudFlags  = "/" + ServiceName + "/ListFraudFlags"
)

type LedgerReadServer interface {
	GetMemberStats(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListCommissions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListFraudFlags(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv LedgerReadServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerReadServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(LedgerReadServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var LedgerReadServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerReadServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetMemberStats",
			Handler: unaryHandler(MethodGetMemberStats, func(srv LedgerReadServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.GetMemberStats(ctx, req)
			}),
		},
		{
			MethodName: "ListCommissions",
			Handler: unaryHandler(MethodListCommissions, func(srv LedgerReadServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.ListCommissions(ctx, req)
			}),
		},
		{
			MethodName: "ListFraudFlags",
			Handler: unaryHandler(MethodListFraudFlags, func(srv LedgerReadServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.ListFraudFlags(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shvark/affiliate/v1/ledger_read.proto",
}

func RegisterLedgerReadServer(s grpc.ServiceRegistrar, srv LedgerReadServer) {
	s.RegisterService(&LedgerReadServiceDesc, srv)
}

// LedgerReadClient - тонкий клиент для тех же методов
type LedgerReadClient struct {
	cc grpc.ClientConnInterface
}

func NewLedgerReadClient(cc grpc.ClientConnInterface) *LedgerReadClient {
	return &LedgerReadClient{cc: cc}
}

func (c *LedgerReadClient) call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerReadClient) GetMemberStats(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodGetMemberStats, req, opts...)
}

func (c *LedgerReadClient) ListCommissions(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodListCommissions, req, opts...)
}

func (c *LedgerReadClient) ListFraudFlags(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, MethodListFraudFlags, req, opts...)
}
