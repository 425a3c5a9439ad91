package rpc

import "KoordeDHT/internal/domain"

// ToNodeMsg converts a domain.Node into its wire representation.
func ToNodeMsg(n *domain.Node) NodeMsg {
	if n == nil {
		return NodeMsg{}
	}
	return NodeMsg{ID: []byte(n.ID), Addr: n.Addr}
}

// FromNodeMsg converts a wire node back into a domain.Node.
func FromNodeMsg(m NodeMsg) *domain.Node {
	return &domain.Node{ID: domain.ID(m.ID), Addr: m.Addr}
}

// ToNodeMsgPtr is ToNodeMsg for the nil-predecessor case.
func ToNodeMsgPtr(n *domain.Node) *NodeMsg {
	if n == nil {
		return nil
	}
	m := ToNodeMsg(n)
	return &m
}

// FromNodeMsgPtr is FromNodeMsg for an optional node.
func FromNodeMsgPtr(m *NodeMsg) *domain.Node {
	if m == nil {
		return nil
	}
	return FromNodeMsg(*m)
}

// ToNodeMsgList converts a slice of nodes, preserving nil entries so callers
// can reconstruct an unpopulated successor-list slot.
func ToNodeMsgList(nodes []*domain.Node) []*NodeMsg {
	out := make([]*NodeMsg, len(nodes))
	for i, n := range nodes {
		out[i] = ToNodeMsgPtr(n)
	}
	return out
}

// FromNodeMsgList is the inverse of ToNodeMsgList.
func FromNodeMsgList(msgs []*NodeMsg) []*domain.Node {
	out := make([]*domain.Node, len(msgs))
	for i, m := range msgs {
		out[i] = FromNodeMsgPtr(m)
	}
	return out
}

// ToResourceMsg converts a domain.Resource into its wire representation.
func ToResourceMsg(r domain.Resource) ResourceMsg {
	return ResourceMsg{Key: []byte(r.Key), RawKey: r.RawKey, Value: r.Value}
}

// FromResourceMsg converts a wire resource back into a domain.Resource.
func FromResourceMsg(m ResourceMsg) domain.Resource {
	return domain.Resource{Key: domain.ID(m.Key), RawKey: m.RawKey, Value: m.Value}
}

// ToResourceMsgList / FromResourceMsgList convert resource batches.
func ToResourceMsgList(rs []domain.Resource) []ResourceMsg {
	out := make([]ResourceMsg, len(rs))
	for i, r := range rs {
		out[i] = ToResourceMsg(r)
	}
	return out
}

func FromResourceMsgList(ms []ResourceMsg) []domain.Resource {
	out := make([]domain.Resource, len(ms))
	for i, m := range ms {
		out[i] = FromResourceMsg(m)
	}
	return out
}
