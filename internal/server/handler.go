package server

import (
	"KoordeDHT/internal/node"
)

// Handler adapts a *node.Node to the rpc.DHTServer and rpc.ClientAPIServer
// interfaces: it performs request/response marshaling and status-code
// translation only, deferring every piece of ring logic to the node package.
type Handler struct {
	node *node.Node
}

// NewHandler builds a Handler bound to n, serving both the ring-internal
// DHT service and the operator-facing client API.
func NewHandler(n *node.Node) *Handler {
	return &Handler{node: n}
}
