package domain

// Node represents a participant in the DHT ring.
type Node struct {
	ID   ID     // identifier in the 2^M space
	Addr string // network address, e.g. "127.0.0.1:5000"
}

// Equal reports whether two node references denote the same ring member.
// Only the ID is compared: the same logical node never carries two
// addresses at once in a quiescent ring.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.ID.Equal(other.ID)
}
