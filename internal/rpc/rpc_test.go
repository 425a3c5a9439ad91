package rpc

import (
	"testing"

	"KoordeDHT/internal/domain"
)

func TestJSONCodecRoundTrip(t *testing.T) {
	c := jsonCodec{}
	if c.Name() != "json" {
		t.Fatalf("Name() = %q, want %q", c.Name(), "json")
	}

	req := LookupRequest{RawKey: "hello"}
	data, err := c.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got LookupRequest
	if err := c.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != req {
		t.Fatalf("round trip = %+v, want %+v", got, req)
	}
}

func TestNodeMsgConversionRoundTrip(t *testing.T) {
	n := &domain.Node{ID: domain.ID{1, 2, 3, 4}, Addr: "10.0.0.1:5000"}

	msg := ToNodeMsg(n)
	back := FromNodeMsg(msg)
	if !back.Equal(n) || back.Addr != n.Addr {
		t.Fatalf("round trip = %+v, want %+v", back, n)
	}

	if ToNodeMsgPtr(nil) != nil {
		t.Fatal("ToNodeMsgPtr(nil) should stay nil")
	}
	if FromNodeMsgPtr(nil) != nil {
		t.Fatal("FromNodeMsgPtr(nil) should stay nil")
	}
}

func TestNodeMsgListPreservesNilSlots(t *testing.T) {
	nodes := []*domain.Node{
		{ID: domain.ID{1}, Addr: "a:1"},
		nil,
		{ID: domain.ID{2}, Addr: "b:2"},
	}
	msgs := ToNodeMsgList(nodes)
	if len(msgs) != 3 || msgs[1] != nil {
		t.Fatalf("ToNodeMsgList did not preserve nil slot: %+v", msgs)
	}

	back := FromNodeMsgList(msgs)
	if back[1] != nil {
		t.Fatalf("FromNodeMsgList did not preserve nil slot: %+v", back)
	}
	if !back[0].Equal(nodes[0]) || !back[2].Equal(nodes[2]) {
		t.Fatalf("FromNodeMsgList round trip mismatch: %+v", back)
	}
}

func TestResourceMsgConversionRoundTrip(t *testing.T) {
	r := domain.Resource{Key: domain.ID{9, 9}, RawKey: "k", Value: "v"}
	msg := ToResourceMsg(r)
	back := FromResourceMsg(msg)
	if !back.Key.Equal(r.Key) || back.RawKey != r.RawKey || back.Value != r.Value {
		t.Fatalf("round trip = %+v, want %+v", back, r)
	}
}
