package node

import (
	"context"
	"net"
	"testing"
	"time"

	"KoordeDHT/internal/client"
	"KoordeDHT/internal/domain"
	"KoordeDHT/internal/logger"
	"KoordeDHT/internal/routingtable"
	"KoordeDHT/internal/storage"
	"KoordeDHT/internal/wire"
)

// servePing starts a real wire listener answering PING at addr's wire port
// (addr's port + 1), so handleSuccessorFailure's liveness probe succeeds
// for a candidate this test wants treated as reachable.
func servePing(t *testing.T, addr, id string) {
	t.Helper()
	wireAddr, err := wire.PeerAddr(addr)
	if err != nil {
		t.Fatalf("wire.PeerAddr(%q): %v", addr, err)
	}
	lis, err := net.Listen("tcp", wireAddr)
	if err != nil {
		t.Fatalf("listen on %q: %v", wireAddr, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = lis.Close()
	})
	go func() { _ = wire.Serve(ctx, lis, nil, id) }()
}

func newWorkerTestNode(t *testing.T, addr string, succListSize int) *Node {
	t.Helper()
	sp, err := domain.NewSpace(16, succListSize)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	self := &domain.Node{ID: sp.Hash(addr), Addr: addr}
	rt := routingtable.New(self, sp, succListSize)
	n := New(rt, storage.NewMemoryStorage(&logger.NopLogger{}), client.NewPool(time.Second))
	n.CreateRing()
	return n
}

func TestRecordFailureReachesThreshold(t *testing.T) {
	n := newWorkerTestNode(t, "127.0.0.1:8000", 1)
	n.failureThreshold = 3

	if n.recordFailure("peer:1") {
		t.Fatal("1st miss should not reach threshold")
	}
	if n.recordFailure("peer:1") {
		t.Fatal("2nd miss should not reach threshold")
	}
	if !n.recordFailure("peer:1") {
		t.Fatal("3rd miss should reach threshold")
	}
}

func TestRecordSuccessClearsCounter(t *testing.T) {
	n := newWorkerTestNode(t, "127.0.0.1:8001", 1)
	n.failureThreshold = 2

	n.recordFailure("peer:1")
	n.recordSuccess("peer:1")
	if n.recordFailure("peer:1") {
		t.Fatal("counter should have reset after recordSuccess")
	}
}

func TestHandleSuccessorFailureRevertsToSingleNodeWhenListExhausted(t *testing.T) {
	n := newWorkerTestNode(t, "127.0.0.1:8002", 2)
	self := n.Self()
	dead := &domain.Node{ID: domain.ID{0xFF, 0xFF}, Addr: "127.0.0.1:8003"}
	// successor list has only the dead entry and nil beyond it
	n.rt.SetSuccessorList([]*domain.Node{dead, nil})

	n.handleSuccessorFailure(dead)

	if !n.rt.FirstSuccessor().Equal(self) {
		t.Fatalf("FirstSuccessor after exhausted list = %v, want self", n.rt.FirstSuccessor())
	}
	if !n.Predecessor().Equal(self) {
		t.Fatalf("Predecessor after revert = %v, want self", n.Predecessor())
	}
}

func TestHandleSuccessorFailurePromotesNextCandidate(t *testing.T) {
	n := newWorkerTestNode(t, "127.0.0.1:8004", 3)
	dead := &domain.Node{ID: domain.ID{0x10, 0x00}, Addr: "127.0.0.1:8005"}
	candidate := &domain.Node{ID: domain.ID{0x20, 0x00}, Addr: "127.0.0.1:8006"}
	servePing(t, candidate.Addr, candidate.ID.ToHexString())
	n.rt.SetSuccessorList([]*domain.Node{dead, candidate, nil})

	n.handleSuccessorFailure(dead)

	if !n.rt.FirstSuccessor().Equal(candidate) {
		t.Fatalf("FirstSuccessor after promotion = %v, want candidate", n.rt.FirstSuccessor())
	}
}

func TestHandleSuccessorFailureSkipsUnreachableCandidate(t *testing.T) {
	n := newWorkerTestNode(t, "127.0.0.1:8010", 3)
	self := n.Self()
	dead := &domain.Node{ID: domain.ID{0x10, 0x00}, Addr: "127.0.0.1:8011"}
	staleCandidate := &domain.Node{ID: domain.ID{0x20, 0x00}, Addr: "127.0.0.1:8012"}
	// staleCandidate has no wire listener behind it, so it must be skipped
	// rather than promoted; with no live fingers either, the ring reverts
	// to single-node mode.
	n.rt.SetSuccessorList([]*domain.Node{dead, staleCandidate, nil})

	n.handleSuccessorFailure(dead)

	if !n.rt.FirstSuccessor().Equal(self) {
		t.Fatalf("FirstSuccessor after unreachable candidate = %v, want self", n.rt.FirstSuccessor())
	}
}

func TestCheckPredecessorNoOpWhenPredecessorIsSelf(t *testing.T) {
	n := newWorkerTestNode(t, "127.0.0.1:8007", 1)
	// CreateRing already sets predecessor = self; checkPredecessor must not
	// attempt any dial in that case.
	n.checkPredecessor()
	if !n.Predecessor().Equal(n.Self()) {
		t.Fatalf("Predecessor changed unexpectedly: %v", n.Predecessor())
	}
}

func TestFixFingersSetsSlotToSelfOnSingleNodeRing(t *testing.T) {
	n := newWorkerTestNode(t, "127.0.0.1:8008", 1)
	i := n.rt.NextFinger()
	_ = i
	n.fixFingers(context.Background())
	// every finger already points at self after CreateRing; fixFingers
	// should leave that invariant intact for a lone node.
	for j := 0; j < n.rt.NumFingers(); j++ {
		if !n.rt.GetFinger(j).Equal(n.Self()) {
			t.Fatalf("finger %d = %v, want self", j, n.rt.GetFinger(j))
		}
	}
}

func TestResourceRepairKeepsLocallyOwnedKeys(t *testing.T) {
	n := newWorkerTestNode(t, "127.0.0.1:8009", 1)
	if err := n.Put(context.Background(), "k", "v"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	n.resourceRepair(context.Background())
	if val, err := n.Get(context.Background(), "k"); err != nil || val != "v" {
		t.Fatalf("Get after resourceRepair = %q, %v, want v, nil", val, err)
	}
}
