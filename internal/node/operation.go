package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"KoordeDHT/internal/client"
	"KoordeDHT/internal/ctxutil"
	"KoordeDHT/internal/domain"
	"KoordeDHT/internal/logger"
	"KoordeDHT/internal/rpc"
)

// hopBoundMultiplier bounds FindSuccessor's iterative routing at a small
// multiple of the ring's bit width, guarding against a corrupted or
// cyclic finger table sending a lookup around the ring forever.
const hopBoundMultiplier = 4

// IsValidID checks whether id is well-formed in this node's identifier space.
func (n *Node) IsValidID(id []byte) error {
	return n.rt.Space().IsValidID(id)
}

// Space returns the identifier space of the ring.
func (n *Node) Space() domain.Space {
	return n.rt.Space()
}

// Self returns the local node's own identity.
func (n *Node) Self() *domain.Node {
	return n.rt.Self()
}

// Predecessor returns the current predecessor, or nil if unset.
func (n *Node) Predecessor() *domain.Node {
	return n.rt.GetPredecessor()
}

// SuccessorList returns the current successor list.
func (n *Node) SuccessorList() []*domain.Node {
	return n.rt.SuccessorList()
}

// Fingers returns the current finger table.
func (n *Node) Fingers() []*domain.Node {
	return n.rt.Fingers()
}

// dial returns a client for addr, preferring the reference-counted pool and
// falling back to an ephemeral connection for nodes not currently tracked
// by the routing table (e.g. the bootstrap peer during Join).
func (n *Node) dial(addr string) (rpc.DHTClient, func(), error) {
	if cli, err := n.cp.GetFromPool(addr); err == nil {
		return cli, func() {}, nil
	}
	cli, conn, err := n.cp.DialEphemeral(addr)
	if err != nil {
		return nil, nil, err
	}
	return cli, func() { _ = conn.Close() }, nil
}

// ClosestPrecedingNode returns the closest node (by finger table) this node
// knows of that precedes target. This is the routing primitive behind
// FindSuccessor; it never leaves the local node.
func (n *Node) ClosestPrecedingNode(target domain.ID) *domain.Node {
	return n.rt.ClosestPrecedingFinger(target)
}

// FindSuccessor resolves the node responsible for target, following finger
// pointers across the ring as needed. It returns the resolved node together
// with the hop counter carried on ctx, counting the forward this call makes.
// The counter is -1 unless ctx was created with ctxutil.WithHops; hops taken
// on remote nodes are not added, and the hop bound is checked only when ctx
// carries a counter.
func (n *Node) FindSuccessor(ctx context.Context, target domain.ID) (*domain.Node, int, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, ctxutil.HopsFromContext(ctx), err
	}

	self := n.rt.Self()
	succ := n.rt.FirstSuccessor()
	if succ == nil {
		return nil, ctxutil.HopsFromContext(ctx), status.Error(codes.Internal, "routing table not initialized: successor is nil")
	}

	if target.Between(self.ID, succ.ID) {
		return succ, ctxutil.HopsFromContext(ctx), nil
	}

	n0 := n.ClosestPrecedingNode(target)
	if n0 == nil || n0.ID.Equal(self.ID) {
		// No closer hop known: fall back to the immediate successor, which
		// is always a correct (if possibly slow) answer.
		return succ, ctxutil.HopsFromContext(ctx), nil
	}

	ctx = ctxutil.IncHops(ctx)
	if hops := ctxutil.HopsFromContext(ctx); hops >= 0 && hops > n.rt.Space().Bits*hopBoundMultiplier {
		n.lgr.Warn("FindSuccessor: hop bound exceeded, aborting lookup",
			logger.F("target", target.ToHexString()), logger.F("hops", hops))
		return nil, hops, status.Error(codes.ResourceExhausted, "find_successor: hop bound exceeded")
	}
	if n0.ID.Equal(succ.ID) {
		return succ, ctxutil.HopsFromContext(ctx), nil
	}

	cli, closeFn, err := n.dial(n0.Addr)
	if err != nil {
		n.lgr.Warn("FindSuccessor: failed to dial closest preceding node, falling back to successor",
			logger.FNode("hop", n0), logger.F("err", err))
		return succ, ctxutil.HopsFromContext(ctx), nil
	}
	defer closeFn()

	resolved, err := client.FindSuccessor(ctx, cli, target, n0.Addr)
	if err != nil {
		n.lgr.Warn("FindSuccessor: remote hop failed, falling back to successor",
			logger.FNode("hop", n0), logger.F("err", err))
		return succ, ctxutil.HopsFromContext(ctx), nil
	}
	return resolved, ctxutil.HopsFromContext(ctx), nil
}

// Lookup resolves the node responsible for rawKey without reading or
// writing any value.
func (n *Node) Lookup(ctx context.Context, rawKey string) (*domain.Node, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return nil, err
	}
	key := n.rt.Space().Hash(rawKey)
	succ, _, err := n.FindSuccessor(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("lookup: failed to find successor for %q: %w", rawKey, err)
	}
	return succ, nil
}

// Notify informs this node that p might be its predecessor. If accepted,
// the portion of the local key range that now belongs to p is handed over.
func (n *Node) Notify(p *domain.Node) {
	self := n.rt.Self()
	if p == nil || p.ID.Equal(self.ID) {
		return
	}

	pred := n.rt.GetPredecessor()
	if pred != nil && !pred.ID.Equal(self.ID) && !p.ID.Between(pred.ID, self.ID) {
		return
	}

	if err := n.cp.AddRef(p.Addr); err != nil {
		n.lgr.Warn("Notify: failed to add new predecessor to pool", logger.FNode("p", p), logger.F("err", err))
	}
	n.rt.SetPredecessor(p)
	if pred != nil {
		if err := n.cp.Release(pred.Addr); err != nil {
			n.lgr.Warn("Notify: failed to release old predecessor", logger.FNode("old", pred), logger.F("err", err))
		}
	}

	before := self.ID
	if pred != nil {
		before = pred.ID
	}
	resources := n.s.KeysInArc(before, p.ID)
	if len(resources) > 0 {
		go n.handOffToNewPredecessor(p, resources)
	}

	n.lgr.Info("Notify: predecessor updated", logger.FNode("new", p), logger.FNode("old", pred))
}

func (n *Node) handOffToNewPredecessor(p *domain.Node, resources []domain.Resource) {
	ctx, cancel := context.WithTimeout(context.Background(), n.rpcTimeout)
	defer cancel()
	cli, closeFn, err := n.dial(p.Addr)
	if err != nil {
		n.lgr.Error("handOffToNewPredecessor: failed to dial new predecessor", logger.FNode("p", p), logger.F("err", err))
		return
	}
	defer closeFn()

	if err := client.ReceiveKeys(ctx, cli, resources, p.Addr); err != nil {
		n.lgr.Error("handOffToNewPredecessor: ReceiveKeys RPC failed",
			logger.FNode("p", p), logger.F("err", err), logger.F("count", len(resources)))
		return
	}
	for _, r := range resources {
		_ = n.s.Delete(r.Key)
	}
	n.lgr.Info("handOffToNewPredecessor: resources handed off", logger.FNode("p", p), logger.F("count", len(resources)))
}

// Put stores rawKey/value in the ring on behalf of an external client.
func (n *Node) Put(ctx context.Context, rawKey, value string) error {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return err
	}
	key := n.rt.Space().Hash(rawKey)
	res := domain.Resource{Key: key, RawKey: rawKey, Value: value}

	succ, _, err := n.FindSuccessor(ctx, key)
	if err != nil {
		return fmt.Errorf("put: failed to find successor for %q: %w", rawKey, err)
	}

	if succ.ID.Equal(n.rt.Self().ID) {
		n.s.Store(res)
		n.lgr.Info("Put: resource stored locally", logger.F("key", rawKey))
		return nil
	}

	cli, closeFn, err := n.dial(succ.Addr)
	if err != nil {
		return fmt.Errorf("put: failed to dial successor %s: %w", succ.Addr, err)
	}
	defer closeFn()
	if err := client.StoreKey(ctx, cli, res, succ.Addr); err != nil {
		return fmt.Errorf("put: failed to store at successor %s: %w", succ.Addr, err)
	}
	n.lgr.Info("Put: resource stored at successor", logger.F("key", rawKey), logger.FNode("successor", succ))
	return nil
}

// Get retrieves the value for rawKey on behalf of an external client.
func (n *Node) Get(ctx context.Context, rawKey string) (string, error) {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return "", err
	}
	key := n.rt.Space().Hash(rawKey)

	succ, _, err := n.FindSuccessor(ctx, key)
	if err != nil {
		return "", fmt.Errorf("get: failed to find successor for %q: %w", rawKey, err)
	}

	if succ.ID.Equal(n.rt.Self().ID) {
		res, err := n.s.Get(key)
		if err != nil {
			return "", err
		}
		return res.Value, nil
	}

	cli, closeFn, err := n.dial(succ.Addr)
	if err != nil {
		return "", fmt.Errorf("get: failed to dial successor %s: %w", succ.Addr, err)
	}
	defer closeFn()
	res, err := client.GetKey(ctx, cli, key, succ.Addr)
	if err != nil {
		return "", fmt.Errorf("get: failed to retrieve from successor %s: %w", succ.Addr, err)
	}
	return res.Value, nil
}

// Delete removes rawKey from the ring on behalf of an external client.
func (n *Node) Delete(ctx context.Context, rawKey string) error {
	if err := ctxutil.CheckContext(ctx); err != nil {
		return err
	}
	key := n.rt.Space().Hash(rawKey)

	succ, _, err := n.FindSuccessor(ctx, key)
	if err != nil {
		return fmt.Errorf("delete: failed to find successor for %q: %w", rawKey, err)
	}

	if succ.ID.Equal(n.rt.Self().ID) {
		return n.s.Delete(key)
	}

	cli, closeFn, err := n.dial(succ.Addr)
	if err != nil {
		return fmt.Errorf("delete: failed to dial successor %s: %w", succ.Addr, err)
	}
	defer closeFn()
	if err := client.DeleteKey(ctx, cli, key, succ.Addr); err != nil {
		return fmt.Errorf("delete: failed at successor %s: %w", succ.Addr, err)
	}
	return nil
}

// --- Node-to-node handlers: called by internal/server's RPC handler,
// never perform routing themselves. ---

// StoreKeyLocal stores resource locally if this node is currently
// responsible for it (key in (predecessor, self]), rejecting otherwise so
// a stale caller can retry the lookup.
func (n *Node) StoreKeyLocal(resource domain.Resource) error {
	pred := n.rt.GetPredecessor()
	if pred == nil || resource.Key.Between(pred.ID, n.rt.Self().ID) {
		n.s.Store(resource)
		return nil
	}
	return fmt.Errorf("storeKeyLocal: not responsible for key %s", resource.RawKey)
}

// StoreReplicaLocal absorbs a batch of resources unconditionally, trusting
// the caller's ownership decision (used for passive replication pushes).
func (n *Node) StoreReplicaLocal(resources []domain.Resource) {
	n.s.Absorb(resources)
}

// GetKeyLocal retrieves a resource from local storage.
func (n *Node) GetKeyLocal(id domain.ID) (domain.Resource, error) {
	return n.s.Get(id)
}

// DeleteKeyLocal removes a resource from local storage.
func (n *Node) DeleteKeyLocal(id domain.ID) error {
	return n.s.Delete(id)
}

// GetKeysInRangeLocal returns (without removing) every resource held in (from, to].
func (n *Node) GetKeysInRangeLocal(from, to domain.ID) []domain.Resource {
	return n.s.KeysInArc(from, to)
}

// TransferKeysLocal removes and returns every resource held in (from, to],
// used when a joining node claims part of this node's range.
func (n *Node) TransferKeysLocal(from, to domain.ID) []domain.Resource {
	resources := n.s.KeysInArc(from, to)
	keys := make([]domain.ID, len(resources))
	for i, r := range resources {
		keys[i] = r.Key
	}
	return n.s.Extract(keys)
}

// ReceiveKeysLocal absorbs a batch of resources pushed by another node.
func (n *Node) ReceiveKeysLocal(resources []domain.Resource) {
	n.s.Absorb(resources)
}

// GetAllResourceStored returns a snapshot of everything stored locally.
func (n *Node) GetAllResourceStored() []domain.Resource {
	return n.s.All()
}

// HandleLeave processes a graceful leave notification from a ring neighbor.
func (n *Node) HandleLeave(leaving *domain.Node) {
	if leaving == nil {
		return
	}
	if pred := n.rt.GetPredecessor(); pred != nil && leaving.ID.Equal(pred.ID) {
		n.rt.SetPredecessor(nil)
		if err := n.cp.Release(leaving.Addr); err != nil {
			n.lgr.Warn("HandleLeave: failed to release leaving predecessor", logger.FNode("leaving", leaving), logger.F("err", err))
		}
		n.lgr.Info("HandleLeave: predecessor cleared", logger.FNode("leaving", leaving))
		return
	}
	for i, s := range n.rt.SuccessorList() {
		if s != nil && leaving.ID.Equal(s.ID) {
			n.rt.PromoteCandidate(i)
			if err := n.cp.Release(leaving.Addr); err != nil {
				n.lgr.Warn("HandleLeave: failed to release leaving successor", logger.FNode("leaving", leaving), logger.F("err", err))
			}
			n.lgr.Info("HandleLeave: successor list entry promoted", logger.FNode("leaving", leaving), logger.F("index", i))
			return
		}
	}
}

// GetStatus returns a diagnostic snapshot of this node's ring state.
func (n *Node) GetStatus() rpc.GetStatusResponse {
	snapshot := n.s.Snapshot()
	keys := make([]string, len(snapshot))
	for i, r := range snapshot {
		keys[i] = r.RawKey
	}
	return rpc.GetStatusResponse{
		Self:          rpc.ToNodeMsg(n.rt.Self()),
		Predecessor:   rpc.ToNodeMsgPtr(n.rt.GetPredecessor()),
		Successors:    rpc.ToNodeMsgList(n.rt.SuccessorList()),
		FingerCount:   n.rt.NumFingers(),
		StoredKeys:    len(snapshot),
		Keys:          keys,
		UptimeSeconds: int64(time.Since(n.startedAt).Seconds()),
	}
}

// CreateRing initializes this node as the sole member of a brand-new ring.
func (n *Node) CreateRing() {
	n.rt.InitSingleNode()
	n.startedAt = time.Now()
	n.lgr.Info("created new ring", logger.FNode("self", n.rt.Self()))
}

// Join contacts bootstrapAddr to locate this node's successor and pulls in
// the portion of the key range it is now responsible for.
func (n *Node) Join(ctx context.Context, bootstrapAddr string) error {
	self := n.rt.Self()
	n.startedAt = time.Now()

	cli, closeFn, err := n.dial(bootstrapAddr)
	if err != nil {
		return fmt.Errorf("join: failed to dial bootstrap peer %s: %w", bootstrapAddr, err)
	}
	defer closeFn()

	succ, err := client.FindSuccessor(ctx, cli, self.ID, bootstrapAddr)
	if err != nil {
		return fmt.Errorf("join: failed to find successor via %s: %w", bootstrapAddr, err)
	}

	if err := n.cp.AddRef(succ.Addr); err != nil {
		n.lgr.Warn("Join: failed to add successor to pool", logger.FNode("succ", succ), logger.F("err", err))
	}
	n.rt.SetSuccessor(0, succ)
	for i := 1; i < n.rt.SuccListSize(); i++ {
		_ = n.rt.SetSuccessor(i, nil)
	}
	n.rt.SetPredecessor(nil)

	n.lgr.Info("Join: resolved successor", logger.FNode("successor", succ))

	if succ.ID.Equal(self.ID) {
		// We are alone on the ring after all (bootstrap peer was self).
		n.CreateRing()
		return nil
	}

	go n.pullInitialRange(succ)
	return nil
}

// pullInitialRange asks the new successor for the boundary of its previous
// ownership and claims the portion of its range that now belongs to self.
func (n *Node) pullInitialRange(succ *domain.Node) {
	ctx, cancel := context.WithTimeout(context.Background(), n.rpcTimeout)
	defer cancel()

	succCli, closeFn, err := n.dial(succ.Addr)
	if err != nil {
		n.lgr.Error("pullInitialRange: failed to dial successor", logger.FNode("succ", succ), logger.F("err", err))
		return
	}
	defer closeFn()

	before := succ.ID
	if oldPred, err := client.GetPredecessor(ctx, succCli, succ.Addr); err == nil && oldPred != nil {
		before = oldPred.ID
	} else if err != nil && !errors.Is(err, client.ErrNoPredecessor) {
		n.lgr.Warn("pullInitialRange: could not read successor's predecessor", logger.F("err", err))
	}

	resources, err := client.TransferKeys(ctx, succCli, before, n.rt.Self().ID, succ.Addr)
	if err != nil {
		n.lgr.Warn("pullInitialRange: TransferKeys failed", logger.FNode("succ", succ), logger.F("err", err))
		return
	}
	n.s.Absorb(resources)
	n.lgr.Info("pullInitialRange: claimed initial key range", logger.F("count", len(resources)))
}

// Leave gracefully removes this node from the ring: it hands every locally
// stored resource to its successor and informs both ring neighbors so they
// can repair their routing-table pointers immediately rather than waiting
// for the next stabilize/check_predecessor tick.
func (n *Node) Leave(ctx context.Context) error {
	self := n.rt.Self()
	succ := n.rt.FirstSuccessor()
	pred := n.rt.GetPredecessor()

	if succ != nil && !succ.ID.Equal(self.ID) {
		if cli, closeFn, err := n.dial(succ.Addr); err == nil {
			if resources := n.s.All(); len(resources) > 0 {
				if err := client.ReceiveKeys(ctx, cli, resources, succ.Addr); err != nil {
					n.lgr.Warn("Leave: failed to hand off resources", logger.F("err", err))
				}
			}
			if err := client.Leave(ctx, cli, self, succ.Addr); err != nil {
				n.lgr.Warn("Leave: notifying successor failed", logger.F("err", err))
			}
			closeFn()
		} else {
			n.lgr.Warn("Leave: failed to dial successor", logger.F("err", err))
		}
	}
	if pred != nil && !pred.ID.Equal(self.ID) {
		if cli, closeFn, err := n.dial(pred.Addr); err == nil {
			if err := client.Leave(ctx, cli, self, pred.Addr); err != nil {
				n.lgr.Warn("Leave: notifying predecessor failed", logger.F("err", err))
			}
			closeFn()
		} else {
			n.lgr.Warn("Leave: failed to dial predecessor", logger.F("err", err))
		}
	}

	_ = n.cp.CloseAll()
	n.lgr.Info("Leave: node departed the ring")
	return nil
}
