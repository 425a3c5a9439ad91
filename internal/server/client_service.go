package server

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"KoordeDHT/internal/ctxutil"
	"KoordeDHT/internal/domain"
	"KoordeDHT/internal/rpc"
)

var _ rpc.ClientAPIServer = (*Handler)(nil)

// Put stores rawKey/value in the ring, routing through as many hops as the
// lookup needs.
func (h *Handler) Put(ctx context.Context, req *rpc.PutRequest) (*rpc.PutResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	if req.RawKey == "" {
		return nil, status.Error(codes.InvalidArgument, "missing key")
	}
	if err := h.node.Put(ctx, req.RawKey, req.Value); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &rpc.PutResponse{}, nil
}

// Get retrieves the value stored for rawKey.
func (h *Handler) Get(ctx context.Context, req *rpc.GetRequest) (*rpc.GetResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	if req.RawKey == "" {
		return nil, status.Error(codes.InvalidArgument, "missing key")
	}
	value, err := h.node.Get(ctx, req.RawKey)
	if err != nil {
		if errors.Is(err, domain.ErrResourceNotFound) {
			return nil, status.Error(codes.NotFound, "key not found")
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &rpc.GetResponse{Value: value}, nil
}

// Delete removes rawKey from the ring.
func (h *Handler) Delete(ctx context.Context, req *rpc.ClientDeleteRequest) (*rpc.ClientDeleteResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	if req.RawKey == "" {
		return nil, status.Error(codes.InvalidArgument, "missing key")
	}
	if err := h.node.Delete(ctx, req.RawKey); err != nil {
		if errors.Is(err, domain.ErrResourceNotFound) {
			return nil, status.Error(codes.NotFound, "key not found")
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &rpc.ClientDeleteResponse{}, nil
}

// Lookup resolves the node responsible for rawKey without touching its value.
func (h *Handler) Lookup(ctx context.Context, req *rpc.LookupRequest) (*rpc.LookupResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	if req.RawKey == "" {
		return nil, status.Error(codes.InvalidArgument, "missing key")
	}
	n, err := h.node.Lookup(ctx, req.RawKey)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &rpc.LookupResponse{Successor: rpc.ToNodeMsg(n)}, nil
}

// GetStatus is shared with the DHT service (internal/server/dht_service.go):
// both interfaces declare the identical signature, and a diagnostic snapshot
// means the same thing whether the caller is a ring peer or an operator.
