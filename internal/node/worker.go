package node

import (
	"context"
	"time"

	"KoordeDHT/internal/client"
	"KoordeDHT/internal/domain"
	"KoordeDHT/internal/logger"
)

// StartStabilizers runs the periodic maintenance protocol that keeps the
// ring connected and the finger table fresh. It launches three independent
// loops:
//   - Chord-style stabilizers (successor/predecessor repair) at chordInterval
//   - finger table refresh (fix_fingers) at fingerInterval
//   - local storage maintenance at storageInterval
//
// All loops stop when ctx is canceled.
func (n *Node) StartStabilizers(ctx context.Context, chordInterval, fingerInterval, storageInterval time.Duration) {
	go func() {
		ticker := time.NewTicker(chordInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				n.lgr.Info("chord stabilizers stopped")
				return
			case <-ticker.C:
				n.stabilizeSuccessor()
				n.fixSuccessorList()
				n.checkPredecessor()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(fingerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				n.lgr.Info("finger table stabilizer stopped")
				return
			case <-ticker.C:
				n.fixFingers(ctx)
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(storageInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				n.lgr.Info("storage maintenance stopped")
				return
			case <-ticker.C:
				n.resourceRepair(ctx)
			}
		}
	}()
}

// printStorageStats logs the current state of the local storage.
func (n *Node) printStorageStats() {
	n.s.DebugLog()
}

// printClientPoolStats logs the current state of the client pool.
func (n *Node) printClientPoolStats() {
	n.cp.DebugLog()
}

// printRoutingTable logs the current state of the routing table.
func (n *Node) printRoutingTable() {
	n.rt.DebugLog()
}

// recordFailure increments the consecutive-miss counter for addr and
// reports whether it has now reached the failure threshold.
func (n *Node) recordFailure(addr string) bool {
	n.missMu.Lock()
	defer n.missMu.Unlock()
	n.misses[addr]++
	return n.misses[addr] >= n.failureThreshold
}

// recordSuccess clears the consecutive-miss counter for addr.
func (n *Node) recordSuccess(addr string) {
	n.missMu.Lock()
	delete(n.misses, addr)
	n.missMu.Unlock()
}

// resourceRepair performs one maintenance pass ensuring every resource
// stored locally still belongs to this node's ownership interval (pred,
// self]. Anything that has drifted outside that interval (because a new
// predecessor joined between ticks) is pushed to whichever node a fresh
// lookup says is now responsible.
func (n *Node) resourceRepair(ctx context.Context) {
	self := n.rt.Self()
	pred := n.rt.GetPredecessor()
	if pred == nil {
		return
	}

	resources := n.s.KeysInArc(pred.ID, self.ID)
	owned := make(map[string]bool, len(resources))
	for _, r := range resources {
		owned[r.Key.String()] = true
	}

	for _, res := range n.s.All() {
		if owned[res.Key.String()] {
			continue
		}
		resp, _, err := n.FindSuccessor(ctx, res.Key)
		if err != nil || resp == nil || resp.ID.Equal(self.ID) {
			continue
		}

		cli, closeFn, err := n.dial(resp.Addr)
		if err != nil {
			n.lgr.Warn("resourceRepair: failed to dial responsible node",
				logger.F("key", res.RawKey), logger.FNode("responsible", resp), logger.F("err", err))
			continue
		}
		err = client.StoreKey(ctx, cli, res, resp.Addr)
		closeFn()
		if err != nil {
			n.lgr.Warn("resourceRepair: failed to transfer resource",
				logger.F("key", res.RawKey), logger.FNode("responsible", resp), logger.F("err", err))
			continue
		}
		if err := n.s.Delete(res.Key); err != nil {
			n.lgr.Warn("resourceRepair: failed to delete resource after transfer",
				logger.F("key", res.RawKey), logger.F("err", err))
			continue
		}
		n.lgr.Info("resourceRepair: resource transferred", logger.F("key", res.RawKey), logger.FNode("responsible", resp))
	}
}

// stabilizeSuccessor is the classic Chord stabilize step: verify the
// current successor is alive, adopt its predecessor as our own successor
// if it is a closer fit, and notify the successor that we may be its
// predecessor.
//
//  1. Query the current successor for its predecessor.
//  2. If the query fails, count a miss; once the misses reach the failure
//     threshold (or the successor has no pooled client), run
//     handleSuccessorFailure, which promotes a live successor-list entry,
//     then tries the finger table, and otherwise reverts to single-node mode.
//  3. If the successor's predecessor lies strictly between self and
//     succ (or, on a single-node ring, is any node other than self), adopt
//     it as the new successor.
//  4. Notify the (possibly updated) successor.
func (n *Node) stabilizeSuccessor() {
	self := n.rt.Self()
	succ := n.rt.FirstSuccessor()
	if succ == nil {
		n.lgr.Error("stabilize: successor is nil (invalid state)")
		return
	}

	var x *domain.Node
	if succ.ID.Equal(self.ID) {
		x = n.rt.GetPredecessor()
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), n.cp.FailureTimeout())
		cli, err := n.cp.GetFromPool(succ.Addr)
		if err != nil {
			cancel()
			n.lgr.Warn("stabilize: failed to get client for successor", logger.FNode("succ", succ), logger.F("err", err))
			n.handleSuccessorFailure(succ)
			return
		}
		x, err = client.GetPredecessor(ctx, cli, succ.Addr)
		cancel()
		if err != nil {
			if n.recordFailure(succ.Addr) {
				n.lgr.Warn("stabilize: successor unresponsive past threshold", logger.FNode("succ", succ))
				n.handleSuccessorFailure(succ)
				return
			}
			return
		}
		n.recordSuccess(succ.Addr)
	}

	if x != nil && !x.ID.Equal(self.ID) && (succ.ID.Equal(self.ID) || x.ID.BetweenExclusive(self.ID, succ.ID)) {
		if err := n.cp.AddRef(x.Addr); err != nil {
			n.lgr.Warn("stabilize: failed to add new successor to pool", logger.FNode("new", x), logger.F("err", err))
		} else {
			_ = n.rt.SetSuccessor(0, x)
			if err := n.cp.Release(succ.Addr); err != nil {
				n.lgr.Warn("stabilize: failed to release old successor", logger.FNode("old", succ), logger.F("err", err))
			}
			succ = x
		}
	}

	if succ.ID.Equal(self.ID) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.cp.FailureTimeout())
	defer cancel()
	cli, err := n.cp.GetFromPool(succ.Addr)
	if err != nil {
		n.lgr.Warn("stabilize: client for successor not found in pool", logger.FNode("succ", succ), logger.F("err", err))
		return
	}
	if err := client.Notify(ctx, cli, self, succ.Addr); err != nil {
		n.lgr.Warn("stabilize: notify RPC failed", logger.FNode("succ", succ), logger.F("err", err))
	}
}

// handleSuccessorFailure promotes the next live entry of the successor
// list, falls back to walking the finger table if the whole list has died,
// and otherwise reverts to single-node mode. recovering guards against two
// stabilize ticks racing into this repair concurrently.
func (n *Node) handleSuccessorFailure(dead *domain.Node) {
	if !n.recovering.CompareAndSwap(false, true) {
		n.lgr.Debug("stabilize: successor-failure recovery already in progress, skipping", logger.FNode("dead", dead))
		return
	}
	defer n.recovering.Store(false)

	for i := 1; i < n.rt.SuccListSize(); i++ {
		candidate := n.rt.GetSuccessor(i)
		if candidate == nil {
			continue
		}
		if !n.pingWire(candidate.Addr) {
			n.lgr.Warn("stabilize: successor-list candidate unreachable, skipping", logger.FNode("candidate", candidate))
			continue
		}
		n.rt.PromoteCandidate(i - 1)
		if err := n.cp.Release(dead.Addr); err != nil {
			n.lgr.Warn("stabilize: failed to release dead successor", logger.FNode("dead", dead), logger.F("err", err))
		}
		n.recordSuccess(dead.Addr)
		n.lgr.Warn("stabilize: promoted successor list candidate", logger.FNode("new", candidate))
		return
	}

	if live := n.findLiveFinger(dead); live != nil {
		if err := n.cp.AddRef(live.Addr); err != nil {
			n.lgr.Warn("stabilize: failed to add finger-table fallback to pool", logger.FNode("new", live), logger.F("err", err))
		} else {
			_ = n.rt.SetSuccessor(0, live)
			for i := 1; i < n.rt.SuccListSize(); i++ {
				_ = n.rt.SetSuccessor(i, nil)
			}
			if err := n.cp.Release(dead.Addr); err != nil {
				n.lgr.Warn("stabilize: failed to release dead successor", logger.FNode("dead", dead), logger.F("err", err))
			}
			n.recordSuccess(dead.Addr)
			n.lgr.Warn("stabilize: successor list exhausted, fell back to finger table", logger.FNode("new", live))
			return
		}
	}

	n.lgr.Warn("stabilize: no successor candidates or live fingers left, reverting to single-node mode")
	if pred := n.rt.GetPredecessor(); pred != nil {
		_ = n.cp.Release(pred.Addr)
	}
	for _, nd := range n.rt.SuccessorList() {
		if nd != nil {
			_ = n.cp.Release(nd.Addr)
		}
	}
	n.rt.InitSingleNode()
}

// findLiveFinger walks the finger table from the farthest entry down to the
// closest, looking for a reachable node other than dead and self to stand
// in as the new successor once the whole successor list has failed.
func (n *Node) findLiveFinger(dead *domain.Node) *domain.Node {
	self := n.rt.Self()
	fingers := n.rt.Fingers()
	for i := len(fingers) - 1; i >= 0; i-- {
		cand := fingers[i]
		if cand == nil || cand.ID.Equal(self.ID) || cand.ID.Equal(dead.ID) {
			continue
		}
		if n.pingWire(cand.Addr) {
			return cand
		}
		n.lgr.Debug("findLiveFinger: candidate unreachable", logger.FNode("candidate", cand))
	}
	return nil
}

// fixSuccessorList refreshes the successor list by asking the current
// first successor for its own list, keeping the client pool's reference
// counts in sync with the slots actually occupied.
func (n *Node) fixSuccessorList() {
	succ := n.rt.FirstSuccessor()
	if succ == nil || succ.ID.Equal(n.rt.Self().ID) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.cp.FailureTimeout())
	cli, err := n.cp.GetFromPool(succ.Addr)
	if err != nil {
		cancel()
		return
	}
	remote, err := client.GetSuccessorList(ctx, cli, succ.Addr)
	cancel()
	if err != nil {
		n.lgr.Warn("fixSuccessorList: could not fetch successor's list", logger.FNode("succ", succ), logger.F("err", err))
		return
	}

	oldSet := nodeSetByAddr(n.rt.SuccessorList())

	size := n.rt.SuccListSize()
	newList := make([]*domain.Node, size)
	newList[0] = succ
	for i := 1; i < size && i-1 < len(remote); i++ {
		cand := remote[i-1]
		if cand == nil || cand.ID.Equal(n.rt.Self().ID) {
			break
		}
		newList[i] = cand
	}
	newSet := nodeSetByAddr(newList)

	for addr, nd := range newSet {
		if _, ok := oldSet[addr]; !ok {
			if err := n.cp.AddRef(addr); err != nil {
				n.lgr.Warn("fixSuccessorList: addref failed", logger.FNode("node", nd), logger.F("err", err))
			}
		}
	}
	n.rt.SetSuccessorList(newList)
	for addr, nd := range oldSet {
		if _, ok := newSet[addr]; !ok {
			if err := n.cp.Release(addr); err != nil {
				n.lgr.Warn("fixSuccessorList: release failed", logger.FNode("node", nd), logger.F("err", err))
			}
		}
	}
}

func nodeSetByAddr(nodes []*domain.Node) map[string]*domain.Node {
	set := make(map[string]*domain.Node, len(nodes))
	for _, nd := range nodes {
		if nd != nil {
			set[nd.Addr] = nd
		}
	}
	return set
}

// checkPredecessor pings the current predecessor and clears it once the
// failure detector's consecutive-miss threshold is reached.
func (n *Node) checkPredecessor() {
	pred := n.rt.GetPredecessor()
	if pred == nil || pred.ID.Equal(n.rt.Self().ID) {
		return
	}

	cli, err := n.cp.GetFromPool(pred.Addr)
	if err != nil {
		n.lgr.Warn("checkPredecessor: failed to get client for predecessor", logger.FNode("pred", pred), logger.F("err", err))
		n.clearDeadPredecessor(pred)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.cp.FailureTimeout())
	err = client.Ping(ctx, cli, pred.Addr)
	cancel()
	if err != nil {
		if n.recordFailure(pred.Addr) {
			n.lgr.Warn("checkPredecessor: predecessor unresponsive past threshold, clearing", logger.FNode("pred", pred))
			n.clearDeadPredecessor(pred)
		}
		return
	}
	n.recordSuccess(pred.Addr)
}

func (n *Node) clearDeadPredecessor(pred *domain.Node) {
	if err := n.cp.Release(pred.Addr); err != nil {
		n.lgr.Warn("checkPredecessor: failed to release predecessor from pool", logger.FNode("pred", pred), logger.F("err", err))
	}
	n.rt.SetPredecessor(nil)
	n.recordSuccess(pred.Addr)
}

// fixFingers refreshes one finger slot per tick, round-robining through
// the table so a full refresh completes every NumFingers ticks without
// bursting the ring with lookups.
func (n *Node) fixFingers(ctx context.Context) {
	i := n.rt.NextFinger()
	start, err := n.rt.FingerStart(i)
	if err != nil {
		n.lgr.Error("fixFingers: failed to compute finger start", logger.F("index", i), logger.F("err", err))
		return
	}

	rctx, cancel := context.WithTimeout(ctx, n.cp.FailureTimeout())
	succ, _, err := n.FindSuccessor(rctx, start)
	cancel()
	if err != nil {
		n.lgr.Warn("fixFingers: lookup failed", logger.F("index", i), logger.F("err", err))
		return
	}

	old := n.rt.GetFinger(i)
	if old != nil && succ != nil && old.ID.Equal(succ.ID) {
		return
	}
	if succ != nil && !succ.ID.Equal(n.rt.Self().ID) {
		if err := n.cp.AddRef(succ.Addr); err != nil {
			n.lgr.Warn("fixFingers: addref failed", logger.FNode("node", succ), logger.F("err", err))
		}
	}
	_ = n.rt.SetFinger(i, succ)
	if old != nil && !old.ID.Equal(n.rt.Self().ID) {
		if err := n.cp.Release(old.Addr); err != nil {
			n.lgr.Warn("fixFingers: release failed", logger.FNode("node", old), logger.F("err", err))
		}
	}
}
