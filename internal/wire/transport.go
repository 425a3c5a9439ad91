package wire

import (
	"encoding/json"
	"fmt"
	"io"
)

// SecureEnvelope is the on-wire shape of an encrypted Message: the sealed
// payload plus the signature needed to verify it after decryption.
type SecureEnvelope struct {
	Type       string `json:"type"`
	SenderAddr string `json:"sender_addr"`
	Ciphertext []byte `json:"ciphertext"`
	Signature  string `json:"signature"`
}

// Transport sends and receives Messages over a raw io.ReadWriter, applying
// encryption and signing when it has a Security. A Transport with a nil sec
// (NewTransport(rw, nil) or NewPlainTransport) sends messages as-is, neither
// signed nor encrypted, for deployments with encryption and signing both
// disabled.
type Transport struct {
	rw  io.ReadWriter
	sec *Security
}

// NewTransport wraps rw, encrypting and signing every message with sec.
func NewTransport(rw io.ReadWriter, sec *Security) *Transport {
	return &Transport{rw: rw, sec: sec}
}

// NewPlainTransport wraps rw with no encryption or signing, framing messages
// as plain JSON.
func NewPlainTransport(rw io.ReadWriter) *Transport {
	return &Transport{rw: rw}
}

// Send frames and writes msg, sealing its payload first if the transport is
// configured with a Security.
func (t *Transport) Send(msg *Message) error {
	if t.sec == nil {
		return WriteMessage(t.rw, msg)
	}
	ciphertext, signature, err := t.sec.Encrypt(msg.Payload)
	if err != nil {
		return fmt.Errorf("wire: seal payload: %w", err)
	}
	env := SecureEnvelope{
		Type:       msg.Type,
		SenderAddr: msg.SenderAddr,
		Ciphertext: ciphertext,
		Signature:  signature,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("wire: marshal envelope: %w", err)
	}
	return WriteMessage(t.rw, &Message{Type: msg.Type, Payload: body, SenderAddr: msg.SenderAddr})
}

// Receive reads the next message, opening and verifying it first if the
// transport is configured with a Security.
func (t *Transport) Receive() (*Message, error) {
	msg, err := ReadMessage(t.rw)
	if err != nil {
		return nil, err
	}
	if t.sec == nil {
		return msg, nil
	}
	var env SecureEnvelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return nil, fmt.Errorf("wire: unmarshal envelope: %w", err)
	}
	plaintext, err := t.sec.Decrypt(env.Ciphertext, env.Signature)
	if err != nil {
		return nil, err
	}
	return &Message{Type: env.Type, Payload: plaintext, SenderAddr: env.SenderAddr}, nil
}
