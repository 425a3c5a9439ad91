package routingtable

import (
	"testing"

	"KoordeDHT/internal/domain"
)

func mustSpace(t *testing.T, bits, succListSize int) domain.Space {
	t.Helper()
	sp, err := domain.NewSpace(bits, succListSize)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	return sp
}

func node(sp domain.Space, addr string) *domain.Node {
	return &domain.Node{ID: sp.Hash(addr), Addr: addr}
}

func TestInitSingleNodeFillsEverySlotWithSelf(t *testing.T) {
	sp := mustSpace(t, 16, 3)
	self := node(sp, "10.0.0.1:5000")
	rt := New(self, sp, 3)
	rt.InitSingleNode()

	if got := rt.FirstSuccessor(); !got.Equal(self) {
		t.Fatalf("FirstSuccessor = %v, want self", got)
	}
	if got := rt.GetPredecessor(); !got.Equal(self) {
		t.Fatalf("GetPredecessor = %v, want self", got)
	}
	for i := 0; i < rt.NumFingers(); i++ {
		if got := rt.GetFinger(i); !got.Equal(self) {
			t.Fatalf("finger %d = %v, want self", i, got)
		}
	}
}

func TestSetSuccessorOutOfRange(t *testing.T) {
	sp := mustSpace(t, 16, 2)
	self := node(sp, "10.0.0.1:5000")
	rt := New(self, sp, 2)

	if err := rt.SetSuccessor(-1, self); err == nil {
		t.Fatal("expected error for negative index")
	}
	if err := rt.SetSuccessor(2, self); err == nil {
		t.Fatal("expected error for index == len")
	}
}

func TestPromoteCandidateShiftsListUpAndPadsTail(t *testing.T) {
	sp := mustSpace(t, 16, 4)
	self := node(sp, "10.0.0.1:5000")
	rt := New(self, sp, 4)

	s0 := node(sp, "10.0.0.2:5000")
	s1 := node(sp, "10.0.0.3:5000")
	s2 := node(sp, "10.0.0.4:5000")
	s3 := node(sp, "10.0.0.5:5000")
	rt.SetSuccessorList([]*domain.Node{s0, s1, s2, s3})

	// s0 (index 0) is declared dead.
	rt.PromoteCandidate(0)

	list := rt.SuccessorList()
	if !list[0].Equal(s1) {
		t.Fatalf("list[0] = %v, want s1", list[0])
	}
	if !list[1].Equal(s2) {
		t.Fatalf("list[1] = %v, want s2", list[1])
	}
	if !list[2].Equal(s3) {
		t.Fatalf("list[2] = %v, want s3", list[2])
	}
	if list[3] != nil {
		t.Fatalf("list[3] = %v, want nil (awaiting refill)", list[3])
	}
}

func TestNextFingerAdvancesAndWraps(t *testing.T) {
	sp := mustSpace(t, 4, 1) // small space: only 4 finger slots
	self := node(sp, "10.0.0.1:5000")
	rt := New(self, sp, 1)

	seen := make([]int, rt.NumFingers()*2)
	for i := range seen {
		seen[i] = rt.NextFinger()
	}
	for i, v := range seen {
		if want := i % rt.NumFingers(); v != want {
			t.Fatalf("NextFinger() call %d = %d, want %d", i, v, want)
		}
	}
}

func TestClosestPrecedingFingerFallsBackToSelf(t *testing.T) {
	sp := mustSpace(t, 16, 1)
	self := node(sp, "10.0.0.1:5000")
	rt := New(self, sp, 1)
	// every finger slot is nil
	got := rt.ClosestPrecedingFinger(sp.Hash("anything"))
	if !got.Equal(self) {
		t.Fatalf("ClosestPrecedingFinger = %v, want self", got)
	}
}

func TestClosestPrecedingFingerPrefersHighestQualifyingSlot(t *testing.T) {
	sp := mustSpace(t, 8, 1)
	self := &domain.Node{ID: sp.FromUint64(0), Addr: "self:0"}
	rt := New(self, sp, 1)

	far := &domain.Node{ID: sp.FromUint64(100), Addr: "far:100"}
	near := &domain.Node{ID: sp.FromUint64(10), Addr: "near:10"}

	// slot 0 starts at self+1, slot 6 starts at self+64; fill both with
	// nodes strictly between self and target 200.
	if err := rt.SetFinger(0, near); err != nil {
		t.Fatal(err)
	}
	if err := rt.SetFinger(6, far); err != nil {
		t.Fatal(err)
	}

	target := sp.FromUint64(200)
	got := rt.ClosestPrecedingFinger(target)
	if !got.Equal(far) {
		t.Fatalf("ClosestPrecedingFinger = %v, want far (highest qualifying slot)", got)
	}
}

func TestFingerStartIsSelfPlusPowerOfTwo(t *testing.T) {
	sp := mustSpace(t, 8, 1)
	self := &domain.Node{ID: sp.FromUint64(5), Addr: "self:5"}
	rt := New(self, sp, 1)

	start, err := rt.FingerStart(3) // self + 2^3 = 5 + 8 = 13
	if err != nil {
		t.Fatal(err)
	}
	want := sp.FromUint64(13)
	if !start.Equal(want) {
		t.Fatalf("FingerStart(3) = %v, want %v", start, want)
	}
}
