package client

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"KoordeDHT/internal/domain"
	"KoordeDHT/internal/rpc"
)

var (
	ErrNoPredecessor = errors.New("client: remote node has no predecessor")
	ErrTimeout       = errors.New("client: RPC timed out, no response from remote node")
)

func translateErr(err error, addr, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return fmt.Errorf("client: %s RPC to %s failed: %w", op, addr, err)
}

// FindSuccessor asks the remote node at addr to resolve target, routing the
// query through its own finger table if it isn't directly responsible.
func FindSuccessor(ctx context.Context, cli rpc.DHTClient, target domain.ID, addr string) (*domain.Node, error) {
	resp, err := cli.FindSuccessor(ctx, &rpc.FindSuccessorRequest{TargetID: []byte(target)})
	if err != nil {
		return nil, translateErr(err, addr, "FindSuccessor")
	}
	return rpc.FromNodeMsg(resp.Node), nil
}

// GetPredecessor contacts addr and asks for its predecessor.
func GetPredecessor(ctx context.Context, cli rpc.DHTClient, addr string) (*domain.Node, error) {
	resp, err := cli.GetPredecessor(ctx, &rpc.GetPredecessorRequest{})
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
			return nil, ErrNoPredecessor
		}
		return nil, translateErr(err, addr, "GetPredecessor")
	}
	return rpc.FromNodeMsgPtr(resp.Node), nil
}

// GetSuccessorList retrieves addr's full successor list (the replication set).
func GetSuccessorList(ctx context.Context, cli rpc.DHTClient, addr string) ([]*domain.Node, error) {
	resp, err := cli.GetSuccessorList(ctx, &rpc.GetSuccessorListRequest{})
	if err != nil {
		return nil, translateErr(err, addr, "GetSuccessorList")
	}
	return rpc.FromNodeMsgList(resp.Successors), nil
}

// ClosestPrecedingNode asks addr for the closest node it knows of that
// precedes target, used by callers single-stepping a lookup.
func ClosestPrecedingNode(ctx context.Context, cli rpc.DHTClient, target domain.ID, addr string) (*domain.Node, error) {
	resp, err := cli.ClosestPrecedingNode(ctx, &rpc.ClosestPrecedingNodeRequest{TargetID: []byte(target)})
	if err != nil {
		return nil, translateErr(err, addr, "ClosestPrecedingNode")
	}
	return rpc.FromNodeMsg(resp.Node), nil
}

// Notify informs addr that self may be its predecessor.
func Notify(ctx context.Context, cli rpc.DHTClient, self *domain.Node, addr string) error {
	_, err := cli.Notify(ctx, &rpc.NotifyRequest{Candidate: rpc.ToNodeMsg(self)})
	return translateErr(err, addr, "Notify")
}

// Ping checks whether addr is alive.
func Ping(ctx context.Context, cli rpc.DHTClient, addr string) error {
	_, err := cli.Ping(ctx, &rpc.PingRequest{})
	return translateErr(err, addr, "Ping")
}

// StoreKey stores a single resource on addr.
func StoreKey(ctx context.Context, cli rpc.DHTClient, res domain.Resource, addr string) error {
	_, err := cli.StoreKey(ctx, &rpc.StoreKeyRequest{Resource: rpc.ToResourceMsg(res)})
	return translateErr(err, addr, "StoreKey")
}

// StoreReplica pushes a batch of resources to addr for passive replication.
func StoreReplica(ctx context.Context, cli rpc.DHTClient, resources []domain.Resource, addr string) error {
	_, err := cli.StoreReplica(ctx, &rpc.StoreReplicaRequest{Resources: rpc.ToResourceMsgList(resources)})
	return translateErr(err, addr, "StoreReplica")
}

// GetKey retrieves a resource by key from addr.
func GetKey(ctx context.Context, cli rpc.DHTClient, key domain.ID, addr string) (domain.Resource, error) {
	resp, err := cli.GetKey(ctx, &rpc.GetKeyRequest{Key: []byte(key)})
	if err != nil {
		return domain.Resource{}, translateErr(err, addr, "GetKey")
	}
	return rpc.FromResourceMsg(resp.Resource), nil
}

// DeleteKey removes a resource by key on addr.
func DeleteKey(ctx context.Context, cli rpc.DHTClient, key domain.ID, addr string) error {
	_, err := cli.DeleteKey(ctx, &rpc.DeleteKeyRequest{Key: []byte(key)})
	return translateErr(err, addr, "DeleteKey")
}

// GetKeysInRange fetches every resource addr holds in the arc (from, to].
func GetKeysInRange(ctx context.Context, cli rpc.DHTClient, from, to domain.ID, addr string) ([]domain.Resource, error) {
	resp, err := cli.GetKeysInRange(ctx, &rpc.GetKeysInRangeRequest{From: []byte(from), To: []byte(to)})
	if err != nil {
		return nil, translateErr(err, addr, "GetKeysInRange")
	}
	return rpc.FromResourceMsgList(resp.Resources), nil
}

// TransferKeys asks addr to hand over every resource it holds in (from, to],
// used when a joining node claims part of its new successor's range.
func TransferKeys(ctx context.Context, cli rpc.DHTClient, from, to domain.ID, addr string) ([]domain.Resource, error) {
	resp, err := cli.TransferKeys(ctx, &rpc.TransferKeysRequest{From: []byte(from), To: []byte(to)})
	if err != nil {
		return nil, translateErr(err, addr, "TransferKeys")
	}
	return rpc.FromResourceMsgList(resp.Resources), nil
}

// ReceiveKeys pushes a batch of resources to addr, which should now own them.
func ReceiveKeys(ctx context.Context, cli rpc.DHTClient, resources []domain.Resource, addr string) error {
	_, err := cli.ReceiveKeys(ctx, &rpc.ReceiveKeysRequest{Resources: rpc.ToResourceMsgList(resources)})
	return translateErr(err, addr, "ReceiveKeys")
}

// Leave announces self's graceful departure to addr.
func Leave(ctx context.Context, cli rpc.DHTClient, self *domain.Node, addr string) error {
	_, err := cli.Leave(ctx, &rpc.LeaveRequest{Node: rpc.ToNodeMsg(self)})
	return translateErr(err, addr, "Leave")
}

// GetStatus retrieves addr's diagnostic snapshot.
func GetStatus(ctx context.Context, cli rpc.DHTClient, addr string) (*rpc.GetStatusResponse, error) {
	resp, err := cli.GetStatus(ctx, &rpc.GetStatusRequest{})
	if err != nil {
		return nil, translateErr(err, addr, "GetStatus")
	}
	return resp, nil
}
