// Package wire implements a standalone length-prefixed message framing and
// encryption layer for peer-to-peer ring traffic that does not go through
// the gRPC transport (internal/server, internal/client). It is a direct
// channel: a plain TCP connection carrying JSON envelopes that are signed and
// encrypted when a Security is configured and sent plain otherwise. The node
// uses it for the PING liveness probe between two ring members.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// maxBodySize bounds the length prefix to guard against a corrupt or
// malicious peer claiming an unbounded body.
const maxBodySize = 16 << 20 // 16 MiB

// Message is a single envelope exchanged between ring peers over the wire
// transport. Type names the operation (e.g. "find_successor", "notify",
// "store_key"); Payload carries the operation's JSON-encoded arguments.
type Message struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	SenderAddr string          `json:"sender_addr"`
}

// WriteMessage writes msg to w as a 4-byte big-endian length prefix followed
// by its JSON encoding.
func WriteMessage(w io.Writer, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("wire: marshal message: %w", err)
	}
	if len(body) > maxBodySize {
		return fmt.Errorf("wire: message body too large: %d bytes", len(body))
	}
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(body)))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("wire: write header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("wire: write body: %w", err)
	}
	return nil
}

// ReadMessage reads a single framed message from r. io.EOF is returned
// unchanged when the connection closes cleanly between messages; any other
// read failure, including a truncated frame, is wrapped.
func ReadMessage(r io.Reader) (*Message, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("wire: read header: %w", err)
	}
	length := binary.BigEndian.Uint32(header)
	if length > maxBodySize {
		return nil, fmt.Errorf("wire: advertised body size too large: %d bytes", length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("wire: read body: %w", err)
	}
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("wire: unmarshal message: %w", err)
	}
	return &msg, nil
}
