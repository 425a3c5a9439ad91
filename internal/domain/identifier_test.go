package domain

import "testing"

func mustSpace(t *testing.T, bits, succList int) Space {
	t.Helper()
	sp, err := NewSpace(bits, succList)
	if err != nil {
		t.Fatalf("NewSpace(%d, %d) failed: %v", bits, succList, err)
	}
	return sp
}

func TestHashIsDeterministicAndInSpace(t *testing.T) {
	sp := mustSpace(t, 160, 3)
	a := sp.Hash("node-a:9000")
	b := sp.Hash("node-a:9000")
	if !a.Equal(b) {
		t.Fatalf("Hash is not deterministic: %x != %x", a, b)
	}
	if err := sp.IsValidID(a); err != nil {
		t.Fatalf("hashed id failed validation: %v", err)
	}
	other := sp.Hash("node-b:9000")
	if a.Equal(other) {
		t.Fatalf("distinct inputs hashed to the same id")
	}
}

func TestBetweenWrapAround(t *testing.T) {
	sp := mustSpace(t, 8, 3)
	a := sp.FromUint64(250)
	b := sp.FromUint64(10)

	cases := []struct {
		x    uint64
		want bool
	}{
		{255, true},  // past a, before wrap
		{5, true},    // after wrap, before b
		{10, true},   // == b, inclusive end
		{250, false}, // == a, exclusive start
		{100, false}, // outside the arc entirely
	}
	for _, c := range cases {
		x := sp.FromUint64(c.x)
		if got := x.Between(a, b); got != c.want {
			t.Errorf("Between(%d, a=250, b=10) = %v, want %v", c.x, got, c.want)
		}
	}
}

func TestBetweenDegenerateWhenEqual(t *testing.T) {
	sp := mustSpace(t, 8, 3)
	a := sp.FromUint64(42)
	x := sp.FromUint64(7)
	if x.Between(a, a) {
		t.Fatalf("Between(x, a, a) should only match x == a")
	}
	if !a.Between(a, a) {
		t.Fatalf("Between(a, a, a) should match the single point a")
	}
}

func TestBetweenExclusiveEndpoints(t *testing.T) {
	sp := mustSpace(t, 8, 3)
	a := sp.FromUint64(10)
	b := sp.FromUint64(20)

	if sp.FromUint64(10).BetweenExclusive(a, b) {
		t.Errorf("BetweenExclusive should exclude the start endpoint")
	}
	if sp.FromUint64(20).BetweenExclusive(a, b) {
		t.Errorf("BetweenExclusive should exclude the end endpoint")
	}
	if !sp.FromUint64(15).BetweenExclusive(a, b) {
		t.Errorf("BetweenExclusive should include points strictly inside the arc")
	}
	if sp.FromUint64(7).BetweenExclusive(a, a) {
		t.Errorf("BetweenExclusive(a, a) should never match (empty open arc)")
	}
}

func TestAddModWraps(t *testing.T) {
	sp := mustSpace(t, 8, 3)
	a := sp.FromUint64(250)
	b := sp.FromUint64(10)
	sum, err := sp.AddMod(a, b)
	if err != nil {
		t.Fatalf("AddMod failed: %v", err)
	}
	if sum.ToBigInt().Uint64() != 4 { // (250+10) mod 256 = 4
		t.Fatalf("AddMod(250,10) mod 256 = %d, want 4", sum.ToBigInt().Uint64())
	}
}

func TestAddPow2FingerStarts(t *testing.T) {
	sp := mustSpace(t, 8, 3)
	self := sp.FromUint64(5)

	start0, err := sp.AddPow2(self, 0)
	if err != nil {
		t.Fatalf("AddPow2(i=0) failed: %v", err)
	}
	if start0.ToBigInt().Uint64() != 6 {
		t.Fatalf("finger 0 start = %d, want 6", start0.ToBigInt().Uint64())
	}

	start7, err := sp.AddPow2(self, 7)
	if err != nil {
		t.Fatalf("AddPow2(i=7) failed: %v", err)
	}
	// 5 + 128 = 133, within 8-bit space, no wrap
	if start7.ToBigInt().Uint64() != 133 {
		t.Fatalf("finger 7 start = %d, want 133", start7.ToBigInt().Uint64())
	}
}

func TestDistanceWraps(t *testing.T) {
	sp := mustSpace(t, 8, 3)
	a := sp.FromUint64(250)
	b := sp.FromUint64(10)
	d, err := sp.Distance(a, b)
	if err != nil {
		t.Fatalf("Distance failed: %v", err)
	}
	if d.ToBigInt().Uint64() != 16 { // (10-250) mod 256 = 16
		t.Fatalf("Distance(250,10) mod 256 = %d, want 16", d.ToBigInt().Uint64())
	}
	if d2, err := sp.Distance(a, a); err != nil || d2.ToBigInt().Uint64() != 0 {
		t.Fatalf("Distance(a,a) = %v, %v, want 0", d2, err)
	}
}

func TestFromHexStringRejectsOverflow(t *testing.T) {
	sp := mustSpace(t, 8, 3)
	if _, err := sp.FromHexString("ff"); err != nil {
		t.Fatalf("0xff should be valid in an 8-bit space: %v", err)
	}
	sp4, err := NewSpace(4, 3)
	if err != nil {
		t.Fatalf("NewSpace(4,3) failed: %v", err)
	}
	if _, err := sp4.FromHexString("ff"); err == nil {
		t.Fatalf("0xff should overflow a 4-bit space")
	}
}
