package wire

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"KoordeDHT/internal/domain"
)

// Security signs, verifies, encrypts and decrypts message payloads using a
// key derived from a single shared secret. The signing key is the secret
// itself; the AES-256-GCM key is its SHA-256 digest, so a single operator
// secret covers both without reuse of raw key material across primitives.
type Security struct {
	secret []byte
	aead   cipher.AEAD
}

// NewSecurity derives signing and encryption keys from secretKey. secretKey
// must not be empty.
func NewSecurity(secretKey string) (*Security, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("wire: secret key must not be empty")
	}
	secret := []byte(secretKey)
	digest := sha256.Sum256(secret)
	block, err := aes.NewCipher(digest[:])
	if err != nil {
		return nil, fmt.Errorf("wire: init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("wire: init GCM: %w", err)
	}
	return &Security{secret: secret, aead: aead}, nil
}

// Sign returns the hex-encoded HMAC-SHA256 of payload under the shared secret.
func (s *Security) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the correct signature for payload,
// comparing in constant time.
func (s *Security) Verify(payload []byte, signature string) bool {
	expected := s.Sign(payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Encrypt seals plaintext with AES-256-GCM and signs the plaintext, so a
// caller can verify the signature before trusting the decrypted result.
// The returned ciphertext is nonce||sealed.
func (s *Security) Encrypt(plaintext []byte) (ciphertext []byte, signature string, err error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, "", fmt.Errorf("wire: generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, plaintext, nil)
	return sealed, s.Sign(plaintext), nil
}

// Decrypt opens ciphertext (as produced by Encrypt) and verifies signature
// against the recovered plaintext, returning domain.ErrInvalidSignature if
// it does not match.
func (s *Security) Decrypt(ciphertext []byte, signature string) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("wire: ciphertext too short")
	}
	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("wire: decrypt: %w", err)
	}
	if !s.Verify(plaintext, signature) {
		return nil, domain.ErrInvalidSignature
	}
	return plaintext, nil
}
