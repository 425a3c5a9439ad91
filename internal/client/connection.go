package client

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"KoordeDHT/internal/rpc"
)

// Connect dials addr and returns a ready-to-use ClientAPI stub. Used by
// cmd/client's REPL and by the churn tester, which talk to a single node
// for the lifetime of a command rather than through the ring-internal Pool.
func Connect(addr string) (rpc.ClientAPIClient, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return rpc.NewClientAPIClient(conn), conn, nil
}
