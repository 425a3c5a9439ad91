package wire

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestWriteReadMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload, _ := json.Marshal(map[string]string{"key": "abc"})
	msg := &Message{Type: "store_key", Payload: payload, SenderAddr: "10.0.0.1:9000"}

	if err := WriteMessage(&buf, msg); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	got, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if got.Type != msg.Type || got.SenderAddr != msg.SenderAddr {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, msg)
	}
	if !bytes.Equal(got.Payload, msg.Payload) {
		t.Fatalf("payload mismatch: got %s, want %s", got.Payload, msg.Payload)
	}
}

func TestReadMessageTruncatedFrame(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 10}) // claims 10 bytes, supplies none
	if _, err := ReadMessage(&buf); err == nil {
		t.Fatal("expected error for truncated frame")
	}
}

func TestSignVerify(t *testing.T) {
	sec, err := NewSecurity("super-secret")
	if err != nil {
		t.Fatalf("NewSecurity: %v", err)
	}
	payload := []byte(`{"op":"ping"}`)
	sig := sec.Sign(payload)
	if !sec.Verify(payload, sig) {
		t.Fatal("expected signature to verify")
	}
	if sec.Verify([]byte(`{"op":"pong"}`), sig) {
		t.Fatal("expected signature to fail for tampered payload")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	sec, err := NewSecurity("super-secret")
	if err != nil {
		t.Fatalf("NewSecurity: %v", err)
	}
	plaintext := []byte(`{"key":"abc","value":"123"}`)
	ciphertext, sig, err := sec.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := sec.Decrypt(ciphertext, sig)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("decrypted mismatch: got %s, want %s", got, plaintext)
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	sec, err := NewSecurity("super-secret")
	if err != nil {
		t.Fatalf("NewSecurity: %v", err)
	}
	ciphertext, sig, err := sec.Encrypt([]byte(`{"key":"abc"}`))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	ciphertext[len(ciphertext)-1] ^= 0xFF
	if _, err := sec.Decrypt(ciphertext, sig); err == nil {
		t.Fatal("expected decryption of tampered ciphertext to fail")
	}
}

func TestDecryptRejectsWrongSecret(t *testing.T) {
	sender, err := NewSecurity("secret-a")
	if err != nil {
		t.Fatalf("NewSecurity: %v", err)
	}
	receiver, err := NewSecurity("secret-b")
	if err != nil {
		t.Fatalf("NewSecurity: %v", err)
	}
	ciphertext, sig, err := sender.Encrypt([]byte(`{"key":"abc"}`))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := receiver.Decrypt(ciphertext, sig); err == nil {
		t.Fatal("expected decryption under the wrong secret to fail")
	}
}

func TestTransportSecureRoundTrip(t *testing.T) {
	sec, err := NewSecurity("ring-secret")
	if err != nil {
		t.Fatalf("NewSecurity: %v", err)
	}
	var buf bytes.Buffer
	sender := NewTransport(&buf, sec)
	receiver := NewTransport(&buf, sec)

	payload, _ := json.Marshal(map[string]string{"rawKey": "foo"})
	want := &Message{Type: "get_key", Payload: payload, SenderAddr: "127.0.0.1:7000"}
	if err := sender.Send(want); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got, err := receiver.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got.Type != want.Type || got.SenderAddr != want.SenderAddr {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestTransportPlainRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	sender := NewPlainTransport(&buf)
	receiver := NewPlainTransport(&buf)

	payload, _ := json.Marshal(map[string]string{"rawKey": "foo"})
	want := &Message{Type: "ping", Payload: payload, SenderAddr: "127.0.0.1:7000"}
	if err := sender.Send(want); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got, err := receiver.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !bytes.Equal(got.Payload, want.Payload) {
		t.Fatalf("payload mismatch: got %s, want %s", got.Payload, want.Payload)
	}
}
