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

var _ rpc.DHTServer = (*Handler)(nil)

// Ping is the liveness check used by check_predecessor and the failure
// detector: if this handler runs at all, the node is alive.
func (h *Handler) Ping(ctx context.Context, _ *rpc.PingRequest) (*rpc.PingResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	return &rpc.PingResponse{}, nil
}

// FindSuccessor resolves the node responsible for the requested target,
// routing the query on via the finger table if this node isn't it.
func (h *Handler) FindSuccessor(ctx context.Context, req *rpc.FindSuccessorRequest) (*rpc.FindSuccessorResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	if len(req.TargetID) == 0 {
		return nil, status.Error(codes.InvalidArgument, "missing target id")
	}
	target := domain.ID(req.TargetID)
	succ, hops, err := h.node.FindSuccessor(ctx, target)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "find_successor failed: %v", err)
	}
	return &rpc.FindSuccessorResponse{Node: rpc.ToNodeMsg(succ), Hops: hops}, nil
}

// GetPredecessor returns the node's current predecessor, NotFound if unset.
func (h *Handler) GetPredecessor(ctx context.Context, _ *rpc.GetPredecessorRequest) (*rpc.GetPredecessorResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	pred := h.node.Predecessor()
	if pred == nil {
		return nil, status.Error(codes.NotFound, "no predecessor set")
	}
	return &rpc.GetPredecessorResponse{Node: rpc.ToNodeMsgPtr(pred)}, nil
}

// GetSuccessorList returns the node's full replication set.
func (h *Handler) GetSuccessorList(ctx context.Context, _ *rpc.GetSuccessorListRequest) (*rpc.GetSuccessorListResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	return &rpc.GetSuccessorListResponse{Successors: rpc.ToNodeMsgList(h.node.SuccessorList())}, nil
}

// ClosestPrecedingNode exposes the routing primitive for diagnostics and
// callers single-stepping a lookup by hand.
func (h *Handler) ClosestPrecedingNode(ctx context.Context, req *rpc.ClosestPrecedingNodeRequest) (*rpc.ClosestPrecedingNodeResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	if len(req.TargetID) == 0 {
		return nil, status.Error(codes.InvalidArgument, "missing target id")
	}
	n := h.node.ClosestPrecedingNode(domain.ID(req.TargetID))
	return &rpc.ClosestPrecedingNodeResponse{Node: rpc.ToNodeMsg(n)}, nil
}

// Notify informs this node that the caller might be its predecessor.
func (h *Handler) Notify(ctx context.Context, req *rpc.NotifyRequest) (*rpc.NotifyResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	if len(req.Candidate.ID) == 0 || req.Candidate.Addr == "" {
		return nil, status.Error(codes.InvalidArgument, "invalid candidate node")
	}
	h.node.Notify(rpc.FromNodeMsg(req.Candidate))
	return &rpc.NotifyResponse{}, nil
}

// StoreKey stores a single resource, rejecting it if this node is not
// currently responsible for its key.
func (h *Handler) StoreKey(ctx context.Context, req *rpc.StoreKeyRequest) (*rpc.StoreKeyResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	if len(req.Resource.Key) == 0 {
		return nil, status.Error(codes.InvalidArgument, "missing key")
	}
	if err := h.node.StoreKeyLocal(rpc.FromResourceMsg(req.Resource)); err != nil {
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	}
	return &rpc.StoreKeyResponse{}, nil
}

// StoreReplica absorbs a batch of resources for passive replication.
func (h *Handler) StoreReplica(ctx context.Context, req *rpc.StoreReplicaRequest) (*rpc.StoreReplicaResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	h.node.StoreReplicaLocal(rpc.FromResourceMsgList(req.Resources))
	return &rpc.StoreReplicaResponse{}, nil
}

// GetKey retrieves a resource from local storage.
func (h *Handler) GetKey(ctx context.Context, req *rpc.GetKeyRequest) (*rpc.GetKeyResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	if len(req.Key) == 0 {
		return nil, status.Error(codes.InvalidArgument, "missing key")
	}
	res, err := h.node.GetKeyLocal(domain.ID(req.Key))
	if err != nil {
		if errors.Is(err, domain.ErrResourceNotFound) {
			return nil, status.Error(codes.NotFound, "key not found")
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &rpc.GetKeyResponse{Resource: rpc.ToResourceMsg(res)}, nil
}

// DeleteKey removes a resource from local storage.
func (h *Handler) DeleteKey(ctx context.Context, req *rpc.DeleteKeyRequest) (*rpc.DeleteKeyResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	if len(req.Key) == 0 {
		return nil, status.Error(codes.InvalidArgument, "missing key")
	}
	if err := h.node.DeleteKeyLocal(domain.ID(req.Key)); err != nil {
		if errors.Is(err, domain.ErrResourceNotFound) {
			return nil, status.Error(codes.NotFound, "key not found")
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &rpc.DeleteKeyResponse{}, nil
}

// GetKeysInRange returns every resource held in the arc (from, to].
func (h *Handler) GetKeysInRange(ctx context.Context, req *rpc.GetKeysInRangeRequest) (*rpc.GetKeysInRangeResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	resources := h.node.GetKeysInRangeLocal(domain.ID(req.From), domain.ID(req.To))
	return &rpc.GetKeysInRangeResponse{Resources: rpc.ToResourceMsgList(resources)}, nil
}

// TransferKeys hands over every resource held in the arc (from, to] to the caller.
func (h *Handler) TransferKeys(ctx context.Context, req *rpc.TransferKeysRequest) (*rpc.TransferKeysResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	resources := h.node.TransferKeysLocal(domain.ID(req.From), domain.ID(req.To))
	return &rpc.TransferKeysResponse{Resources: rpc.ToResourceMsgList(resources)}, nil
}

// ReceiveKeys absorbs a batch of resources pushed by another node.
func (h *Handler) ReceiveKeys(ctx context.Context, req *rpc.ReceiveKeysRequest) (*rpc.ReceiveKeysResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	h.node.ReceiveKeysLocal(rpc.FromResourceMsgList(req.Resources))
	return &rpc.ReceiveKeysResponse{}, nil
}

// Leave processes a graceful departure notification from a ring neighbor.
func (h *Handler) Leave(ctx context.Context, req *rpc.LeaveRequest) (*rpc.LeaveResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	h.node.HandleLeave(rpc.FromNodeMsg(req.Node))
	return &rpc.LeaveResponse{}, nil
}

// GetStatus returns a diagnostic snapshot of this node's ring state.
func (h *Handler) GetStatus(ctx context.Context, _ *rpc.GetStatusRequest) (*rpc.GetStatusResponse, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	resp := h.node.GetStatus()
	return &resp, nil
}
