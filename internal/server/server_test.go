package server

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"KoordeDHT/internal/client"
	"KoordeDHT/internal/domain"
	"KoordeDHT/internal/logger"
	"KoordeDHT/internal/node"
	"KoordeDHT/internal/routingtable"
	"KoordeDHT/internal/rpc"
	"KoordeDHT/internal/storage"
)

func newTestHandler(t *testing.T, addr string) (*Handler, *node.Node) {
	t.Helper()
	sp, err := domain.NewSpace(16, 3)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	self := &domain.Node{ID: sp.Hash(addr), Addr: addr}
	rt := routingtable.New(self, sp, 3)
	n := node.New(rt, storage.NewMemoryStorage(&logger.NopLogger{}), client.NewPool(time.Second))
	n.CreateRing()
	return NewHandler(n), n
}

func TestPingSucceeds(t *testing.T) {
	h, _ := newTestHandler(t, "127.0.0.1:7000")
	if _, err := h.Ping(context.Background(), &rpc.PingRequest{}); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestGetPredecessorReflectsRingState(t *testing.T) {
	h, n := newTestHandler(t, "127.0.0.1:7001")
	ctx := context.Background()

	// Single-node ring starts with predecessor == self (CreateRing).
	if _, err := h.GetPredecessor(ctx, &rpc.GetPredecessorRequest{}); err != nil {
		t.Fatalf("GetPredecessor on a freshly created ring should succeed: %v", err)
	}

	// Leaving notification from the current predecessor (self) clears it.
	n.HandleLeave(n.Self())
	if _, err := h.GetPredecessor(ctx, &rpc.GetPredecessorRequest{}); status.Code(err) != codes.NotFound {
		t.Fatalf("GetPredecessor after clearing = %v, want NotFound", err)
	}
}

func TestStoreKeyRejectsMissingKey(t *testing.T) {
	h, _ := newTestHandler(t, "127.0.0.1:7002")
	_, err := h.StoreKey(context.Background(), &rpc.StoreKeyRequest{Resource: rpc.ResourceMsg{}})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("StoreKey with missing key = %v, want InvalidArgument", err)
	}
}

func TestPutGetDeleteClientAPIRoundTrip(t *testing.T) {
	h, _ := newTestHandler(t, "127.0.0.1:7003")
	ctx := context.Background()

	if _, err := h.Put(ctx, &rpc.PutRequest{RawKey: "k", Value: "v"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	resp, err := h.Get(ctx, &rpc.GetRequest{RawKey: "k"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.Value != "v" {
		t.Fatalf("Get value = %q, want %q", resp.Value, "v")
	}
	if _, err := h.Delete(ctx, &rpc.ClientDeleteRequest{RawKey: "k"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := h.Get(ctx, &rpc.GetRequest{RawKey: "k"}); status.Code(err) != codes.NotFound {
		t.Fatalf("Get after Delete = %v, want NotFound", err)
	}
}

func TestGetRejectsEmptyKey(t *testing.T) {
	h, _ := newTestHandler(t, "127.0.0.1:7004")
	_, err := h.Get(context.Background(), &rpc.GetRequest{})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("Get with empty key = %v, want InvalidArgument", err)
	}
}

func TestLookupResolvesSelfOnSingleNodeRing(t *testing.T) {
	h, _ := newTestHandler(t, "127.0.0.1:7005")
	resp, err := h.Lookup(context.Background(), &rpc.LookupRequest{RawKey: "anything"})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if resp.Successor.Addr != "127.0.0.1:7005" {
		t.Fatalf("Lookup successor = %+v, want self", resp.Successor)
	}
}

func TestGetStatusReportsOneStoredKey(t *testing.T) {
	h, _ := newTestHandler(t, "127.0.0.1:7006")
	ctx := context.Background()
	if _, err := h.Put(ctx, &rpc.PutRequest{RawKey: "k1", Value: "v1"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	resp, err := h.GetStatus(ctx, &rpc.GetStatusRequest{})
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if resp.StoredKeys != 1 {
		t.Fatalf("StoredKeys = %d, want 1", resp.StoredKeys)
	}
}
