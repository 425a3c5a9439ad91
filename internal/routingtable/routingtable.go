package routingtable

import (
	"fmt"
	"sync"

	"KoordeDHT/internal/domain"
	"KoordeDHT/internal/logger"
)

// routingEntry is a single slot holding a node reference, guarded by its
// own lock so that readers of one slot never block readers or writers of
// another (the successor list, the predecessor and each finger all move
// independently as stabilization and fix_fingers run concurrently).
type routingEntry struct {
	node *domain.Node
	mu   sync.RWMutex
}

func (e *routingEntry) get() *domain.Node {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.node
}

func (e *routingEntry) set(n *domain.Node) {
	e.mu.Lock()
	e.node = n
	e.mu.Unlock()
}

// RoutingTable holds one node's view of the ring: its successor list, its
// predecessor and its finger table. All three are mutated independently by
// the stabilize, notify and fix_fingers operations.
type RoutingTable struct {
	logger logger.Logger
	space  domain.Space
	self   *domain.Node

	successorList []*routingEntry
	succListSize  int

	predecessor *routingEntry

	fingers    []*routingEntry // size space.Bits; fingers[i] starts at self.ID + 2^i
	nextFinger int             // cursor for the periodic fix_fingers round-robin
	fingerMu   sync.Mutex      // guards nextFinger only
}

// New builds a RoutingTable for self, sized for the given identifier space.
// The table starts with every slot nil; call InitSingleNode for a node that
// is creating a brand-new ring, or rely on Join to populate it otherwise.
func New(self *domain.Node, space domain.Space, succListSize int, opts ...Option) *RoutingTable {
	rt := &RoutingTable{
		logger:        &logger.NopLogger{},
		space:         space,
		self:          self,
		successorList: make([]*routingEntry, succListSize),
		succListSize:  succListSize,
		predecessor:   &routingEntry{},
		fingers:       make([]*routingEntry, space.Bits),
	}
	for i := range rt.successorList {
		rt.successorList[i] = &routingEntry{}
	}
	for i := range rt.fingers {
		rt.fingers[i] = &routingEntry{}
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// InitSingleNode points every slot (successor list, predecessor, every
// finger) at self. This is the state of a node that has just created a
// new ring and has nobody else to route to yet.
func (rt *RoutingTable) InitSingleNode() {
	for _, e := range rt.successorList {
		e.set(rt.self)
	}
	rt.predecessor.set(rt.self)
	for _, e := range rt.fingers {
		e.set(rt.self)
	}
}

// Space returns the identifier space this table was built for.
func (rt *RoutingTable) Space() domain.Space { return rt.space }

// Self returns the owning node.
func (rt *RoutingTable) Self() *domain.Node { return rt.self }

// SuccListSize returns the configured successor-list length (replication factor R).
func (rt *RoutingTable) SuccListSize() int { return rt.succListSize }

// -------------------------------
// Successor list
// -------------------------------

// GetSuccessor returns the i-th entry of the successor list, or nil if i is
// out of range or the slot is unset.
func (rt *RoutingTable) GetSuccessor(i int) *domain.Node {
	if i < 0 || i >= len(rt.successorList) {
		return nil
	}
	return rt.successorList[i].get()
}

// FirstSuccessor is a convenience accessor for the immediate successor.
func (rt *RoutingTable) FirstSuccessor() *domain.Node {
	return rt.GetSuccessor(0)
}

// SetSuccessor overwrites the i-th entry of the successor list.
func (rt *RoutingTable) SetSuccessor(i int, n *domain.Node) error {
	if i < 0 || i >= len(rt.successorList) {
		return fmt.Errorf("successor index %d out of range [0,%d)", i, len(rt.successorList))
	}
	rt.successorList[i].set(n)
	return nil
}

// SuccessorList returns a snapshot copy of the successor list.
func (rt *RoutingTable) SuccessorList() []*domain.Node {
	out := make([]*domain.Node, len(rt.successorList))
	for i, e := range rt.successorList {
		out[i] = e.get()
	}
	return out
}

// SetSuccessorList overwrites the whole successor list. Entries beyond
// len(nodes) are cleared to nil. Used after a GET_SUCCESSOR_LIST round
// trip to the new successor during stabilize.
func (rt *RoutingTable) SetSuccessorList(nodes []*domain.Node) {
	for i, e := range rt.successorList {
		if i < len(nodes) {
			e.set(nodes[i])
		} else {
			e.set(nil)
		}
	}
	rt.logger.Debug("successor list replaced",
		logger.F("count", len(nodes)),
	)
}

// PromoteCandidate rebuilds the successor list after the successor at
// index i has failed: the node at index i+1 becomes the new first
// successor, the remaining live entries shift up behind it, and the
// tail is padded with nil until the next stabilize round repopulates it
// from the new successor's own list.
func (rt *RoutingTable) PromoteCandidate(i int) {
	if i < 0 || i >= len(rt.successorList) {
		return
	}
	old := rt.SuccessorList()
	next := make([]*domain.Node, rt.succListSize)
	j := 0
	for k := i + 1; k < len(old) && j < rt.succListSize; k++ {
		next[j] = old[k]
		j++
	}
	rt.SetSuccessorList(next[:j])
}

// -------------------------------
// Predecessor
// -------------------------------

// GetPredecessor returns the current predecessor, or nil if unset.
func (rt *RoutingTable) GetPredecessor() *domain.Node {
	return rt.predecessor.get()
}

// SetPredecessor overwrites the predecessor slot.
func (rt *RoutingTable) SetPredecessor(n *domain.Node) {
	rt.predecessor.set(n)
}

// -------------------------------
// Finger table
// -------------------------------

// GetFinger returns the node at finger slot i (0-indexed, i in [0, Bits)),
// or nil if i is out of range or the slot is unset.
func (rt *RoutingTable) GetFinger(i int) *domain.Node {
	if i < 0 || i >= len(rt.fingers) {
		return nil
	}
	return rt.fingers[i].get()
}

// SetFinger overwrites finger slot i.
func (rt *RoutingTable) SetFinger(i int, n *domain.Node) error {
	if i < 0 || i >= len(rt.fingers) {
		return fmt.Errorf("finger index %d out of range [0,%d)", i, len(rt.fingers))
	}
	rt.fingers[i].set(n)
	return nil
}

// Fingers returns a snapshot copy of the full finger table.
func (rt *RoutingTable) Fingers() []*domain.Node {
	out := make([]*domain.Node, len(rt.fingers))
	for i, e := range rt.fingers {
		out[i] = e.get()
	}
	return out
}

// NumFingers returns the number of finger slots (equal to the space's bit width).
func (rt *RoutingTable) NumFingers() int { return len(rt.fingers) }

// NextFinger returns the finger index the next fix_fingers tick should
// refresh, and advances the round-robin cursor.
func (rt *RoutingTable) NextFinger() int {
	rt.fingerMu.Lock()
	defer rt.fingerMu.Unlock()
	i := rt.nextFinger
	rt.nextFinger = (rt.nextFinger + 1) % len(rt.fingers)
	return i
}

// FingerStart returns self.ID + 2^i mod 2^Bits, the start point used to
// look up finger slot i's node.
func (rt *RoutingTable) FingerStart(i int) (domain.ID, error) {
	return rt.space.AddPow2(rt.self.ID, i)
}

// -------------------------------
// Closest preceding node
// -------------------------------

// ClosestPrecedingFinger scans the finger table from the highest slot
// down, returning the closest known node strictly between self and id.
// Falls back to self if no finger qualifies.
func (rt *RoutingTable) ClosestPrecedingFinger(id domain.ID) *domain.Node {
	for i := len(rt.fingers) - 1; i >= 0; i-- {
		n := rt.GetFinger(i)
		if n == nil {
			continue
		}
		if n.ID.BetweenExclusive(rt.self.ID, id) {
			return n
		}
	}
	return rt.self
}

// -------------------------------
// Debug
// -------------------------------

// DebugLog emits a single structured DEBUG snapshot of the table's state,
// avoiding a separate log line per entry.
func (rt *RoutingTable) DebugLog() {
	succ := make([]any, 0, len(rt.successorList))
	for _, n := range rt.SuccessorList() {
		succ = append(succ, nodeLogVal(n))
	}
	fingers := make([]any, 0, len(rt.fingers))
	for _, n := range rt.Fingers() {
		fingers = append(fingers, nodeLogVal(n))
	}
	rt.logger.Debug("routing table snapshot",
		logger.FNode("self", rt.self),
		logger.FNode("predecessor", rt.GetPredecessor()),
		logger.F("successors", succ),
		logger.F("fingers", fingers),
	)
}

func nodeLogVal(n *domain.Node) any {
	if n == nil {
		return nil
	}
	return map[string]any{"id": n.ID.String(), "addr": n.Addr}
}
