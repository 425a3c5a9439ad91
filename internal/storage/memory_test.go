package storage

import (
	"testing"

	"KoordeDHT/internal/domain"
	"KoordeDHT/internal/logger"
)

func mustSpace(t *testing.T) domain.Space {
	t.Helper()
	sp, err := domain.NewSpace(16, 2)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	return sp
}

func TestStoreGetDelete(t *testing.T) {
	sp := mustSpace(t)
	s := NewMemoryStorage(&logger.NopLogger{})

	res := domain.Resource{Key: sp.Hash("alpha"), RawKey: "alpha", Value: "1"}
	s.Store(res)

	got, err := s.Get(res.Key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Value != "1" {
		t.Fatalf("Get value = %q, want %q", got.Value, "1")
	}

	if err := s.Delete(res.Key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(res.Key); err != domain.ErrResourceNotFound {
		t.Fatalf("Get after delete = %v, want ErrResourceNotFound", err)
	}
	if err := s.Delete(res.Key); err != domain.ErrResourceNotFound {
		t.Fatalf("Delete missing key = %v, want ErrResourceNotFound", err)
	}
}

func TestGetMissingKey(t *testing.T) {
	sp := mustSpace(t)
	s := NewMemoryStorage(&logger.NopLogger{})
	if _, err := s.Get(sp.Hash("nope")); err != domain.ErrResourceNotFound {
		t.Fatalf("Get = %v, want ErrResourceNotFound", err)
	}
}

func TestKeysInArc(t *testing.T) {
	sp := mustSpace(t)
	s := NewMemoryStorage(&logger.NopLogger{})

	low := domain.Resource{Key: sp.FromUint64(10), RawKey: "low", Value: "l"}
	mid := domain.Resource{Key: sp.FromUint64(50), RawKey: "mid", Value: "m"}
	high := domain.Resource{Key: sp.FromUint64(90), RawKey: "high", Value: "h"}
	s.Store(low)
	s.Store(mid)
	s.Store(high)

	got := s.KeysInArc(sp.FromUint64(20), sp.FromUint64(60))
	if len(got) != 1 || got[0].RawKey != "mid" {
		t.Fatalf("KeysInArc(20,60) = %+v, want only mid", got)
	}
}

func TestExtractRemovesOnlyMatchingKeys(t *testing.T) {
	sp := mustSpace(t)
	s := NewMemoryStorage(&logger.NopLogger{})

	a := domain.Resource{Key: sp.Hash("a"), RawKey: "a", Value: "1"}
	b := domain.Resource{Key: sp.Hash("b"), RawKey: "b", Value: "2"}
	s.Store(a)
	s.Store(b)

	extracted := s.Extract([]domain.ID{a.Key})
	if len(extracted) != 1 || extracted[0].RawKey != "a" {
		t.Fatalf("Extract = %+v, want only a", extracted)
	}
	if s.Len() != 1 {
		t.Fatalf("Len after Extract = %d, want 1", s.Len())
	}
	if _, err := s.Get(a.Key); err != domain.ErrResourceNotFound {
		t.Fatal("extracted key should no longer be present")
	}
	if _, err := s.Get(b.Key); err != nil {
		t.Fatal("non-extracted key should remain present")
	}
}

func TestAbsorbBulkInsertsAndOverwrites(t *testing.T) {
	sp := mustSpace(t)
	s := NewMemoryStorage(&logger.NopLogger{})

	orig := domain.Resource{Key: sp.Hash("x"), RawKey: "x", Value: "old"}
	s.Store(orig)

	s.Absorb([]domain.Resource{
		{Key: sp.Hash("x"), RawKey: "x", Value: "new"},
		{Key: sp.Hash("y"), RawKey: "y", Value: "fresh"},
	})

	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	got, err := s.Get(sp.Hash("x"))
	if err != nil || got.Value != "new" {
		t.Fatalf("Get(x) = %+v, %v, want value=new", got, err)
	}
}

func TestLenAndAll(t *testing.T) {
	sp := mustSpace(t)
	s := NewMemoryStorage(&logger.NopLogger{})
	if s.Len() != 0 {
		t.Fatalf("Len on empty store = %d, want 0", s.Len())
	}
	s.Store(domain.Resource{Key: sp.Hash("a"), RawKey: "a", Value: "1"})
	s.Store(domain.Resource{Key: sp.Hash("b"), RawKey: "b", Value: "2"})
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	all := s.All()
	if len(all) != 2 {
		t.Fatalf("All() len = %d, want 2", len(all))
	}
}
