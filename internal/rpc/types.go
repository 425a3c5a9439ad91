// Package rpc defines the wire messages and gRPC service wiring for the
// ring-internal DHT protocol and the operator-facing client API.
//
// The generated-protobuf toolchain is not available in this build, so the
// messages here are plain JSON-tagged structs carried over gRPC using a
// hand-registered codec (see codec.go) instead of a .proto-compiled one.
// The shape of every message mirrors the wire protocol's request/response
// table, keeping framing, deadlines and interceptors on gRPC while
// avoiding a generated dependency this module cannot build.
package rpc

// NodeMsg is the wire representation of a ring member.
type NodeMsg struct {
	ID   []byte `json:"id"`
	Addr string `json:"addr"`
}

// ResourceMsg is the wire representation of a stored key/value entry.
type ResourceMsg struct {
	Key    []byte `json:"key"`
	RawKey string `json:"rawKey"`
	Value  string `json:"value"`
}

// Empty carries no data; used for RPCs that need neither request nor
// response payload beyond success/failure.
type Empty struct{}

// PingRequest/PingResponse implement the liveness check used by
// check_predecessor and the failure detector.
type PingRequest struct{}
type PingResponse struct{}

// FindSuccessorRequest asks the receiver to resolve the node responsible
// for TargetID, routing the query on via its finger table if necessary.
type FindSuccessorRequest struct {
	TargetID []byte `json:"targetId"`
}
type FindSuccessorResponse struct {
	Node NodeMsg `json:"node"`
	Hops int     `json:"hops"`
}

// GetPredecessorRequest/Response implement get_predecessor.
type GetPredecessorRequest struct{}
type GetPredecessorResponse struct {
	Node *NodeMsg `json:"node,omitempty"`
}

// GetSuccessorListRequest/Response implement get_successor (the whole
// replica list, not just the immediate successor).
type GetSuccessorListRequest struct{}
type GetSuccessorListResponse struct {
	Successors []*NodeMsg `json:"successors"`
}

// ClosestPrecedingNodeRequest/Response expose closest_preceding_node for
// diagnostics and for callers that want to single-step a lookup.
type ClosestPrecedingNodeRequest struct {
	TargetID []byte `json:"targetId"`
}
type ClosestPrecedingNodeResponse struct {
	Node NodeMsg `json:"node"`
}

// NotifyRequest carries the candidate predecessor. No response payload.
type NotifyRequest struct {
	Candidate NodeMsg `json:"candidate"`
}
type NotifyResponse struct{}

// StoreKeyRequest/Response implement the node-to-node store_key call.
type StoreKeyRequest struct {
	Resource ResourceMsg `json:"resource"`
}
type StoreKeyResponse struct{}

// StoreReplicaRequest/Response implement store_replica, pushing a batch of
// resources to a successor for passive replication.
type StoreReplicaRequest struct {
	Resources []ResourceMsg `json:"resources"`
}
type StoreReplicaResponse struct{}

// GetKeyRequest/Response implement get_key.
type GetKeyRequest struct {
	Key []byte `json:"key"`
}
type GetKeyResponse struct {
	Resource ResourceMsg `json:"resource"`
}

// DeleteKeyRequest/Response implement the node-to-node delete.
type DeleteKeyRequest struct {
	Key []byte `json:"key"`
}
type DeleteKeyResponse struct{}

// GetKeysInRangeRequest/Response implement get_keys_in_arc.
type GetKeysInRangeRequest struct {
	From []byte `json:"from"`
	To   []byte `json:"to"`
}
type GetKeysInRangeResponse struct {
	Resources []ResourceMsg `json:"resources"`
}

// TransferKeysRequest/Response implement transfer_keys: the caller asks the
// receiver to hand over every resource it holds for the arc (from, to].
type TransferKeysRequest struct {
	From []byte `json:"from"`
	To   []byte `json:"to"`
}
type TransferKeysResponse struct {
	Resources []ResourceMsg `json:"resources"`
}

// ReceiveKeysRequest/Response implement receive_keys: the caller pushes a
// batch of resources that the receiver should now own.
type ReceiveKeysRequest struct {
	Resources []ResourceMsg `json:"resources"`
}
type ReceiveKeysResponse struct{}

// LeaveRequest announces a graceful departure to the current successor or
// predecessor.
type LeaveRequest struct {
	Node NodeMsg `json:"node"`
}
type LeaveResponse struct{}

// GetStatusRequest/Response back the operator-facing diagnostic endpoint.
type GetStatusRequest struct{}
type GetStatusResponse struct {
	Self          NodeMsg    `json:"self"`
	Predecessor   *NodeMsg   `json:"predecessor,omitempty"`
	Successors    []*NodeMsg `json:"successors"`
	FingerCount   int        `json:"fingerCount"`
	StoredKeys    int        `json:"storedKeys"`
	Keys          []string   `json:"keys,omitempty"`
	UptimeSeconds int64      `json:"uptimeSeconds"`
}

// --- Client-facing API messages (operator CLI / load tester) ---

type PutRequest struct {
	RawKey string `json:"rawKey"`
	Value  string `json:"value"`
}
type PutResponse struct{}

type GetRequest struct {
	RawKey string `json:"rawKey"`
}
type GetResponse struct {
	Value string `json:"value"`
}

type ClientDeleteRequest struct {
	RawKey string `json:"rawKey"`
}
type ClientDeleteResponse struct{}

type LookupRequest struct {
	RawKey string `json:"rawKey"`
}
type LookupResponse struct {
	Successor NodeMsg `json:"successor"`
}
