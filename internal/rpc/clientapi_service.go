package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// ClientAPIServer is implemented by the operator-facing handler.
type ClientAPIServer interface {
	Put(context.Context, *PutRequest) (*PutResponse, error)
	Get(context.Context, *GetRequest) (*GetResponse, error)
	Delete(context.Context, *ClientDeleteRequest) (*ClientDeleteResponse, error)
	Lookup(context.Context, *LookupRequest) (*LookupResponse, error)
	GetStatus(context.Context, *GetStatusRequest) (*GetStatusResponse, error)
}

func RegisterClientAPIServer(s grpc.ServiceRegistrar, srv ClientAPIServer) {
	s.RegisterService(&clientAPIServiceDesc, srv)
}

func clientHandler[Req, Resp any](call func(ClientAPIServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ClientAPIServer), ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ClientAPIServer), ctx, req.(*Req))
		}
		return interceptor(ctx, req, info, handler)
	}
}

var clientAPIServiceDesc = grpc.ServiceDesc{
	ServiceName: "dht.ClientAPI",
	HandlerType: (*ClientAPIServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Put", Handler: clientHandler(ClientAPIServer.Put)},
		{MethodName: "Get", Handler: clientHandler(ClientAPIServer.Get)},
		{MethodName: "Delete", Handler: clientHandler(ClientAPIServer.Delete)},
		{MethodName: "Lookup", Handler: clientHandler(ClientAPIServer.Lookup)},
		{MethodName: "GetStatus", Handler: clientHandler(ClientAPIServer.GetStatus)},
	},
	Metadata: "clientapi.proto",
}

// ClientAPIClient is the typed stub used by cmd/client's REPL and the churn tester.
type ClientAPIClient interface {
	Put(ctx context.Context, in *PutRequest, opts ...grpc.CallOption) (*PutResponse, error)
	Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*GetResponse, error)
	Delete(ctx context.Context, in *ClientDeleteRequest, opts ...grpc.CallOption) (*ClientDeleteResponse, error)
	Lookup(ctx context.Context, in *LookupRequest, opts ...grpc.CallOption) (*LookupResponse, error)
	GetStatus(ctx context.Context, in *GetStatusRequest, opts ...grpc.CallOption) (*GetStatusResponse, error)
}

type clientAPIClient struct {
	cc grpc.ClientConnInterface
}

func NewClientAPIClient(cc grpc.ClientConnInterface) ClientAPIClient {
	return &clientAPIClient{cc: cc}
}

func invokeClientAPI[Req, Resp any](ctx context.Context, c *clientAPIClient, method string, in *Req, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/dht.ClientAPI/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clientAPIClient) Put(ctx context.Context, in *PutRequest, opts ...grpc.CallOption) (*PutResponse, error) {
	return invokeClientAPI[PutRequest, PutResponse](ctx, c, "Put", in, opts...)
}
func (c *clientAPIClient) Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*GetResponse, error) {
	return invokeClientAPI[GetRequest, GetResponse](ctx, c, "Get", in, opts...)
}
func (c *clientAPIClient) Delete(ctx context.Context, in *ClientDeleteRequest, opts ...grpc.CallOption) (*ClientDeleteResponse, error) {
	return invokeClientAPI[ClientDeleteRequest, ClientDeleteResponse](ctx, c, "Delete", in, opts...)
}
func (c *clientAPIClient) Lookup(ctx context.Context, in *LookupRequest, opts ...grpc.CallOption) (*LookupResponse, error) {
	return invokeClientAPI[LookupRequest, LookupResponse](ctx, c, "Lookup", in, opts...)
}
func (c *clientAPIClient) GetStatus(ctx context.Context, in *GetStatusRequest, opts ...grpc.CallOption) (*GetStatusResponse, error) {
	return invokeClientAPI[GetStatusRequest, GetStatusResponse](ctx, c, "GetStatus", in, opts...)
}
