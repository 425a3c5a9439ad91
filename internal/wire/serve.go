package wire

import (
	"context"
	"encoding/json"
	"net"
)

// Serve accepts connections on lis and answers PING requests with
// PING_RESPONSE{status:"alive", id: selfID}, the direct-socket fallback
// probe described by the wire protocol. It returns nil when ctx is
// canceled, and the listener's error otherwise.
func Serve(ctx context.Context, lis net.Listener, sec *Security, selfID string) error {
	go func() {
		<-ctx.Done()
		_ = lis.Close()
	}()
	for {
		conn, err := lis.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go serveConn(conn, sec, selfID)
	}
}

func serveConn(conn net.Conn, sec *Security, selfID string) {
	defer func() { _ = conn.Close() }()
	t := NewTransport(conn, sec)
	msg, err := t.Receive()
	if err != nil {
		return
	}
	if msg.Type != "PING" {
		return
	}
	payload, err := json.Marshal(PingResponsePayload{Status: "alive", ID: selfID})
	if err != nil {
		return
	}
	_ = t.Send(&Message{Type: "PING_RESPONSE", Payload: payload, SenderAddr: selfID})
}
