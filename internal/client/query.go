package client

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"KoordeDHT/internal/rpc"
)

var (
	ErrNotFound         = errors.New("resource not found")
	ErrUnavailable      = errors.New("node unavailable")
	ErrDeadlineExceeded = errors.New("request timeout exceeded")
	ErrInternal         = errors.New("internal gRPC error")
)

// normalizeError converts a gRPC status error into one of the package's
// sentinel errors, so CLI and tester callers don't need to know about
// gRPC codes directly.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}
	s, ok := status.FromError(err)
	if !ok {
		return ErrInternal
	}
	switch s.Code() {
	case codes.NotFound:
		return ErrNotFound
	case codes.Unavailable:
		return ErrUnavailable
	case codes.DeadlineExceeded:
		return ErrDeadlineExceeded
	default:
		return ErrInternal
	}
}

// Put inserts or updates a key-value pair on the node at the other end of client.
func Put(ctx context.Context, cli rpc.ClientAPIClient, rawKey, value string) (time.Duration, error) {
	start := time.Now()
	_, err := cli.Put(ctx, &rpc.PutRequest{RawKey: rawKey, Value: value})
	return time.Since(start), normalizeError(err)
}

// Get retrieves the value for a given raw key.
func Get(ctx context.Context, cli rpc.ClientAPIClient, rawKey string) (string, time.Duration, error) {
	start := time.Now()
	resp, err := cli.Get(ctx, &rpc.GetRequest{RawKey: rawKey})
	if err != nil {
		return "", time.Since(start), normalizeError(err)
	}
	return resp.Value, time.Since(start), nil
}

// Delete removes a raw key from the ring.
func Delete(ctx context.Context, cli rpc.ClientAPIClient, rawKey string) (time.Duration, error) {
	start := time.Now()
	_, err := cli.Delete(ctx, &rpc.ClientDeleteRequest{RawKey: rawKey})
	return time.Since(start), normalizeError(err)
}

// Lookup resolves the node responsible for rawKey without reading or
// writing its value.
func Lookup(ctx context.Context, cli rpc.ClientAPIClient, rawKey string) (rpc.NodeMsg, time.Duration, error) {
	start := time.Now()
	resp, err := cli.Lookup(ctx, &rpc.LookupRequest{RawKey: rawKey})
	if err != nil {
		return rpc.NodeMsg{}, time.Since(start), normalizeError(err)
	}
	return resp.Successor, time.Since(start), nil
}

// GetStatus retrieves the diagnostic snapshot of the node addressed by client.
func GetStatus(ctx context.Context, cli rpc.ClientAPIClient) (*rpc.GetStatusResponse, time.Duration, error) {
	start := time.Now()
	resp, err := cli.GetStatus(ctx, &rpc.GetStatusRequest{})
	return resp, time.Since(start), normalizeError(err)
}
