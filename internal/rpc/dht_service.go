package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// DHTServer is implemented by the ring-internal RPC handler (internal/server).
type DHTServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	FindSuccessor(context.Context, *FindSuccessorRequest) (*FindSuccessorResponse, error)
	GetPredecessor(context.Context, *GetPredecessorRequest) (*GetPredecessorResponse, error)
	GetSuccessorList(context.Context, *GetSuccessorListRequest) (*GetSuccessorListResponse, error)
	ClosestPrecedingNode(context.Context, *ClosestPrecedingNodeRequest) (*ClosestPrecedingNodeResponse, error)
	Notify(context.Context, *NotifyRequest) (*NotifyResponse, error)
	StoreKey(context.Context, *StoreKeyRequest) (*StoreKeyResponse, error)
	StoreReplica(context.Context, *StoreReplicaRequest) (*StoreReplicaResponse, error)
	GetKey(context.Context, *GetKeyRequest) (*GetKeyResponse, error)
	DeleteKey(context.Context, *DeleteKeyRequest) (*DeleteKeyResponse, error)
	GetKeysInRange(context.Context, *GetKeysInRangeRequest) (*GetKeysInRangeResponse, error)
	TransferKeys(context.Context, *TransferKeysRequest) (*TransferKeysResponse, error)
	ReceiveKeys(context.Context, *ReceiveKeysRequest) (*ReceiveKeysResponse, error)
	Leave(context.Context, *LeaveRequest) (*LeaveResponse, error)
	GetStatus(context.Context, *GetStatusRequest) (*GetStatusResponse, error)
}

// RegisterDHTServer attaches srv to s under the hand-rolled service descriptor.
func RegisterDHTServer(s grpc.ServiceRegistrar, srv DHTServer) {
	s.RegisterService(&dhtServiceDesc, srv)
}

func dhtHandler[Req, Resp any](call func(DHTServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DHTServer), ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DHTServer), ctx, req.(*Req))
		}
		return interceptor(ctx, req, info, handler)
	}
}

var dhtServiceDesc = grpc.ServiceDesc{
	ServiceName: "dht.DHT",
	HandlerType: (*DHTServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: dhtHandler(DHTServer.Ping)},
		{MethodName: "FindSuccessor", Handler: dhtHandler(DHTServer.FindSuccessor)},
		{MethodName: "GetPredecessor", Handler: dhtHandler(DHTServer.GetPredecessor)},
		{MethodName: "GetSuccessorList", Handler: dhtHandler(DHTServer.GetSuccessorList)},
		{MethodName: "ClosestPrecedingNode", Handler: dhtHandler(DHTServer.ClosestPrecedingNode)},
		{MethodName: "Notify", Handler: dhtHandler(DHTServer.Notify)},
		{MethodName: "StoreKey", Handler: dhtHandler(DHTServer.StoreKey)},
		{MethodName: "StoreReplica", Handler: dhtHandler(DHTServer.StoreReplica)},
		{MethodName: "GetKey", Handler: dhtHandler(DHTServer.GetKey)},
		{MethodName: "DeleteKey", Handler: dhtHandler(DHTServer.DeleteKey)},
		{MethodName: "GetKeysInRange", Handler: dhtHandler(DHTServer.GetKeysInRange)},
		{MethodName: "TransferKeys", Handler: dhtHandler(DHTServer.TransferKeys)},
		{MethodName: "ReceiveKeys", Handler: dhtHandler(DHTServer.ReceiveKeys)},
		{MethodName: "Leave", Handler: dhtHandler(DHTServer.Leave)},
		{MethodName: "GetStatus", Handler: dhtHandler(DHTServer.GetStatus)},
	},
	Metadata: "dht.proto",
}

// DHTClient is the typed client stub used by internal/client.
type DHTClient interface {
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
	FindSuccessor(ctx context.Context, in *FindSuccessorRequest, opts ...grpc.CallOption) (*FindSuccessorResponse, error)
	GetPredecessor(ctx context.Context, in *GetPredecessorRequest, opts ...grpc.CallOption) (*GetPredecessorResponse, error)
	GetSuccessorList(ctx context.Context, in *GetSuccessorListRequest, opts ...grpc.CallOption) (*GetSuccessorListResponse, error)
	ClosestPrecedingNode(ctx context.Context, in *ClosestPrecedingNodeRequest, opts ...grpc.CallOption) (*ClosestPrecedingNodeResponse, error)
	Notify(ctx context.Context, in *NotifyRequest, opts ...grpc.CallOption) (*NotifyResponse, error)
	StoreKey(ctx context.Context, in *StoreKeyRequest, opts ...grpc.CallOption) (*StoreKeyResponse, error)
	StoreReplica(ctx context.Context, in *StoreReplicaRequest, opts ...grpc.CallOption) (*StoreReplicaResponse, error)
	GetKey(ctx context.Context, in *GetKeyRequest, opts ...grpc.CallOption) (*GetKeyResponse, error)
	DeleteKey(ctx context.Context, in *DeleteKeyRequest, opts ...grpc.CallOption) (*DeleteKeyResponse, error)
	GetKeysInRange(ctx context.Context, in *GetKeysInRangeRequest, opts ...grpc.CallOption) (*GetKeysInRangeResponse, error)
	TransferKeys(ctx context.Context, in *TransferKeysRequest, opts ...grpc.CallOption) (*TransferKeysResponse, error)
	ReceiveKeys(ctx context.Context, in *ReceiveKeysRequest, opts ...grpc.CallOption) (*ReceiveKeysResponse, error)
	Leave(ctx context.Context, in *LeaveRequest, opts ...grpc.CallOption) (*LeaveResponse, error)
	GetStatus(ctx context.Context, in *GetStatusRequest, opts ...grpc.CallOption) (*GetStatusResponse, error)
}

type dhtClient struct {
	cc grpc.ClientConnInterface
}

// NewDHTClient wraps a connection with typed DHT RPC methods, using the
// JSON codec registered in codec.go in place of a generated protobuf stub.
func NewDHTClient(cc grpc.ClientConnInterface) DHTClient {
	return &dhtClient{cc: cc}
}

func invokeDHT[Req, Resp any](ctx context.Context, c *dhtClient, method string, in *Req, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/dht.DHT/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dhtClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invokeDHT[PingRequest, PingResponse](ctx, c, "Ping", in, opts...)
}
func (c *dhtClient) FindSuccessor(ctx context.Context, in *FindSuccessorRequest, opts ...grpc.CallOption) (*FindSuccessorResponse, error) {
	return invokeDHT[FindSuccessorRequest, FindSuccessorResponse](ctx, c, "FindSuccessor", in, opts...)
}
func (c *dhtClient) GetPredecessor(ctx context.Context, in *GetPredecessorRequest, opts ...grpc.CallOption) (*GetPredecessorResponse, error) {
	return invokeDHT[GetPredecessorRequest, GetPredecessorResponse](ctx, c, "GetPredecessor", in, opts...)
}
func (c *dhtClient) GetSuccessorList(ctx context.Context, in *GetSuccessorListRequest, opts ...grpc.CallOption) (*GetSuccessorListResponse, error) {
	return invokeDHT[GetSuccessorListRequest, GetSuccessorListResponse](ctx, c, "GetSuccessorList", in, opts...)
}
func (c *dhtClient) ClosestPrecedingNode(ctx context.Context, in *ClosestPrecedingNodeRequest, opts ...grpc.CallOption) (*ClosestPrecedingNodeResponse, error) {
	return invokeDHT[ClosestPrecedingNodeRequest, ClosestPrecedingNodeResponse](ctx, c, "ClosestPrecedingNode", in, opts...)
}
func (c *dhtClient) Notify(ctx context.Context, in *NotifyRequest, opts ...grpc.CallOption) (*NotifyResponse, error) {
	return invokeDHT[NotifyRequest, NotifyResponse](ctx, c, "Notify", in, opts...)
}
func (c *dhtClient) StoreKey(ctx context.Context, in *StoreKeyRequest, opts ...grpc.CallOption) (*StoreKeyResponse, error) {
	return invokeDHT[StoreKeyRequest, StoreKeyResponse](ctx, c, "StoreKey", in, opts...)
}
func (c *dhtClient) StoreReplica(ctx context.Context, in *StoreReplicaRequest, opts ...grpc.CallOption) (*StoreReplicaResponse, error) {
	return invokeDHT[StoreReplicaRequest, StoreReplicaResponse](ctx, c, "StoreReplica", in, opts...)
}
func (c *dhtClient) GetKey(ctx context.Context, in *GetKeyRequest, opts ...grpc.CallOption) (*GetKeyResponse, error) {
	return invokeDHT[GetKeyRequest, GetKeyResponse](ctx, c, "GetKey", in, opts...)
}
func (c *dhtClient) DeleteKey(ctx context.Context, in *DeleteKeyRequest, opts ...grpc.CallOption) (*DeleteKeyResponse, error) {
	return invokeDHT[DeleteKeyRequest, DeleteKeyResponse](ctx, c, "DeleteKey", in, opts...)
}
func (c *dhtClient) GetKeysInRange(ctx context.Context, in *GetKeysInRangeRequest, opts ...grpc.CallOption) (*GetKeysInRangeResponse, error) {
	return invokeDHT[GetKeysInRangeRequest, GetKeysInRangeResponse](ctx, c, "GetKeysInRange", in, opts...)
}
func (c *dhtClient) TransferKeys(ctx context.Context, in *TransferKeysRequest, opts ...grpc.CallOption) (*TransferKeysResponse, error) {
	return invokeDHT[TransferKeysRequest, TransferKeysResponse](ctx, c, "TransferKeys", in, opts...)
}
func (c *dhtClient) ReceiveKeys(ctx context.Context, in *ReceiveKeysRequest, opts ...grpc.CallOption) (*ReceiveKeysResponse, error) {
	return invokeDHT[ReceiveKeysRequest, ReceiveKeysResponse](ctx, c, "ReceiveKeys", in, opts...)
}
func (c *dhtClient) Leave(ctx context.Context, in *LeaveRequest, opts ...grpc.CallOption) (*LeaveResponse, error) {
	return invokeDHT[LeaveRequest, LeaveResponse](ctx, c, "Leave", in, opts...)
}
func (c *dhtClient) GetStatus(ctx context.Context, in *GetStatusRequest, opts ...grpc.CallOption) (*GetStatusResponse, error) {
	return invokeDHT[GetStatusRequest, GetStatusResponse](ctx, c, "GetStatus", in, opts...)
}
