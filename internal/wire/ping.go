package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
)

// PingResponsePayload is the payload shape for a PING_RESPONSE message.
type PingResponsePayload struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// Ping dials addr, sends a PING message and waits for a PING_RESPONSE,
// honoring ctx's deadline for both the dial and the round trip. It reports
// the responder's node id on success. This is the direct-socket fallback
// probe used when a ring neighbor needs to be verified outside the gRPC
// transport, e.g. before promoting a successor-list candidate.
func Ping(ctx context.Context, addr string, sec *Security, senderAddr string) (string, error) {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("wire: dial %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	t := NewTransport(conn, sec)
	if err := t.Send(&Message{Type: "PING", Payload: json.RawMessage("{}"), SenderAddr: senderAddr}); err != nil {
		return "", fmt.Errorf("wire: send ping to %s: %w", addr, err)
	}
	resp, err := t.Receive()
	if err != nil {
		return "", fmt.Errorf("wire: receive ping response from %s: %w", addr, err)
	}
	if resp.Type != "PING_RESPONSE" {
		return "", fmt.Errorf("wire: unexpected response type %q from %s", resp.Type, addr)
	}
	var payload PingResponsePayload
	if err := json.Unmarshal(resp.Payload, &payload); err != nil {
		return "", fmt.Errorf("wire: decode ping response from %s: %w", addr, err)
	}
	return payload.ID, nil
}

// PeerAddr derives the standalone wire-protocol address for a peer from its
// gRPC address, by the fixed convention of binding one port above it.
func PeerAddr(grpcAddr string) (string, error) {
	host, portStr, err := net.SplitHostPort(grpcAddr)
	if err != nil {
		return "", fmt.Errorf("wire: invalid peer address %q: %w", grpcAddr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("wire: invalid port in %q: %w", grpcAddr, err)
	}
	return net.JoinHostPort(host, strconv.Itoa(port+1)), nil
}
