package node

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"KoordeDHT/internal/client"
	"KoordeDHT/internal/logger"
	"KoordeDHT/internal/routingtable"
	"KoordeDHT/internal/storage"
	"KoordeDHT/internal/wire"
)

// Node is a single participant in the Chord ring: the glue between the
// routing table (ring topology view), the local data store and the
// client pool used to talk to the rest of the ring.
type Node struct {
	rt  *routingtable.RoutingTable
	s   storage.DataStore
	cp  *client.Pool
	lgr logger.Logger

	failureThreshold int           // consecutive missed pings before a node is declared dead
	rpcTimeout       time.Duration // per-RPC timeout for wire pings and key hand-offs

	missMu sync.Mutex
	misses map[string]int // consecutive ping failures, keyed by address

	wireSec    *wire.Security // direct-socket ping transport security, nil if disabled
	recovering atomic.Bool    // single-entry guard serializing successor-failure handling

	startedAt time.Time
}

// New builds a Node around the given routing table, storage and client pool.
func New(rt *routingtable.RoutingTable, s storage.DataStore, cp *client.Pool, opts ...Option) *Node {
	n := &Node{
		rt:               rt,
		s:                s,
		cp:               cp,
		lgr:              &logger.NopLogger{},
		failureThreshold: 3,
		rpcTimeout:       2 * time.Second,
		misses:           make(map[string]int),
		startedAt:        time.Now(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// pingWire verifies that addr is alive via the standalone wire transport,
// used to confirm a successor-list candidate before promoting it: a dead
// successor's gRPC port may still accept TCP connects while the process
// itself is gone, so a second, independent probe guards against promoting
// another node that is equally unreachable.
func (n *Node) pingWire(addr string) bool {
	peerAddr, err := wire.PeerAddr(addr)
	if err != nil {
		n.lgr.Warn("pingWire: cannot derive wire address", logger.F("addr", addr), logger.F("err", err))
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), n.rpcTimeout)
	defer cancel()
	if _, err := wire.Ping(ctx, peerAddr, n.wireSec, n.rt.Self().Addr); err != nil {
		n.lgr.Debug("pingWire: no response", logger.F("addr", peerAddr), logger.F("err", err))
		return false
	}
	return true
}
