package node

import (
	"time"

	"KoordeDHT/internal/logger"
	"KoordeDHT/internal/wire"
)

type Option func(*Node)

// WithLogger sets the logger used by the node.
func WithLogger(l logger.Logger) Option {
	return func(n *Node) {
		if l != nil {
			n.lgr = l
		}
	}
}

// WithFailureThreshold sets how many consecutive missed pings the failure
// detector tolerates before declaring a node dead.
func WithFailureThreshold(threshold int) Option {
	return func(n *Node) {
		if threshold > 0 {
			n.failureThreshold = threshold
		}
	}
}

// WithRPCTimeout sets the per-RPC timeout used by the wire-transport
// liveness ping, the key hand-off to a new predecessor and the initial key
// pull after a join. The maintenance loops (stabilize, fix_fingers,
// check_predecessor) use the client pool's FailureTimeout instead.
func WithRPCTimeout(d time.Duration) Option {
	return func(n *Node) {
		if d > 0 {
			n.rpcTimeout = d
		}
	}
}

// WithWireSecurity sets the encryption/signing configuration used for the
// standalone wire-transport liveness probes. A nil sec sends unsigned,
// unencrypted frames.
func WithWireSecurity(sec *wire.Security) Option {
	return func(n *Node) {
		n.wireSec = sec
	}
}
