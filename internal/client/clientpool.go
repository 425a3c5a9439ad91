package client

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"KoordeDHT/internal/logger"
	"KoordeDHT/internal/rpc"
)

// ErrClientNotInPool is returned by GetFromPool when the address has no
// live, reference-counted connection. Callers fall back to DialEphemeral.
var ErrClientNotInPool = errors.New("clientpool: client not found in pool")

type poolEntry struct {
	conn *grpc.ClientConn
	refs int
}

// Pool manages reference-counted gRPC connections to other ring members.
// A connection is kept open as long as at least one routing-table slot
// (successor list, predecessor, finger table) points at that address;
// AddRef/Release track that count so stabilize/fix_fingers churn doesn't
// thrash dial/close on every tick.
type Pool struct {
	lgr            logger.Logger
	mu             sync.Mutex
	conns          map[string]*poolEntry
	dialOpts       []grpc.DialOption
	failureTimeout time.Duration
}

// NewPool creates an empty connection pool. The pool stores failureTimeout
// and returns it from FailureTimeout; it does not apply it to calls itself.
// The maintenance protocol (stabilize, notify, ping and the rest) reads it
// to set a deadline on each RPC it issues.
func NewPool(failureTimeout time.Duration, opts ...Option) *Pool {
	p := &Pool{
		lgr:            &logger.NopLogger{},
		conns:          make(map[string]*poolEntry),
		dialOpts:       []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
		failureTimeout: failureTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FailureTimeout returns the per-RPC timeout maintenance loops should use.
func (p *Pool) FailureTimeout() time.Duration { return p.failureTimeout }

// AddRef dials addr if not already connected and increments its reference
// count. Safe to call repeatedly for the same address (e.g. a node that
// appears in both the successor list and the finger table).
func (p *Pool) AddRef(addr string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.conns[addr]; ok {
		e.refs++
		return nil
	}
	conn, err := grpc.NewClient(addr, p.dialOpts...)
	if err != nil {
		return fmt.Errorf("clientpool: dial %s: %w", addr, err)
	}
	p.conns[addr] = &poolEntry{conn: conn, refs: 1}
	p.lgr.Debug("clientpool: connection opened", logger.F("addr", addr))
	return nil
}

// Release decrements addr's reference count, closing and evicting the
// connection once it reaches zero.
func (p *Pool) Release(addr string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.conns[addr]
	if !ok {
		return nil
	}
	e.refs--
	if e.refs > 0 {
		return nil
	}
	delete(p.conns, addr)
	p.lgr.Debug("clientpool: connection closed", logger.F("addr", addr))
	return e.conn.Close()
}

// GetFromPool returns a typed DHT client for an already reference-counted
// connection to addr, or ErrClientNotInPool if none exists.
func (p *Pool) GetFromPool(addr string) (rpc.DHTClient, error) {
	p.mu.Lock()
	e, ok := p.conns[addr]
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClientNotInPool, addr)
	}
	return rpc.NewDHTClient(e.conn), nil
}

// DialEphemeral opens a one-off connection not tracked by the pool, for a
// single RPC to a node with no routing-table slot (e.g. forwarding a
// client Put/Get to a successor discovered only for this request). The
// caller is responsible for closing the returned connection.
func (p *Pool) DialEphemeral(addr string) (rpc.DHTClient, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, p.dialOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("clientpool: ephemeral dial %s: %w", addr, err)
	}
	return rpc.NewDHTClient(conn), conn, nil
}

// CloseAll closes every pooled connection, regardless of reference count.
// Used during node shutdown.
func (p *Pool) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for addr, e := range p.conns {
		if err := e.conn.Close(); err != nil {
			return fmt.Errorf("clientpool: close %s: %w", addr, err)
		}
		delete(p.conns, addr)
	}
	p.lgr.Info("clientpool: all connections closed")
	return nil
}

// DebugLog emits a structured snapshot of pooled connections and their
// reference counts.
func (p *Pool) DebugLog() {
	p.mu.Lock()
	entries := make(map[string]int, len(p.conns))
	for addr, e := range p.conns {
		entries[addr] = e.refs
	}
	p.mu.Unlock()
	p.lgr.Debug("clientpool snapshot", logger.F("connections", entries))
}
