// Package crypto seals session payloads before they leave the process.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey is returned when the key is empty.
	ErrInvalidKey = errors.New("invalid sealing key: must not be empty")
	// ErrOpenFailed is returned for tampered, truncated or foreign ciphertext.
	ErrOpenFailed = errors.New("failed to open sealed payload")
)

// Sealer encrypts payloads with AES-256-GCM. Each payload is bound to an
// associated label, so ciphertext copied to another key does not open.
type Sealer struct {
	gcm cipher.AEAD
}

// NewSealer derives a sealer from a key string. A base64 value that decodes to
// exactly 32 bytes is used as the key; anything else is treated as a passphrase
// and hashed with SHA-256.
func NewSealer(keyInput string) (*Sealer, error) {
	if keyInput == "" {
		return nil, ErrInvalidKey
	}

	key := deriveKey(keyInput)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Sealer{gcm: gcm}, nil
}

func deriveKey(keyInput string) []byte {
	if decoded, err := base64.StdEncoding.DecodeString(keyInput); err == nil && len(decoded) == 32 {
		return decoded
	}
	sum := sha256.Sum256([]byte(keyInput))
	return sum[:]
}

// Seal returns nonce || ciphertext || tag for plaintext bound to label.
func (s *Sealer) Seal(plaintext []byte, label string) ([]byte, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.gcm.Seal(nonce, nonce, plaintext, []byte(label)), nil
}

// Open reverses Seal. The label must match the one used to seal.
func (s *Sealer) Open(sealed []byte, label string) ([]byte, error) {
	nonceSize := s.gcm.NonceSize()
	if len(sealed) < nonceSize+s.gcm.Overhead() {
		return nil, fmt.Errorf("%w: too short", ErrOpenFailed)
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, ciphertext, []byte(label))
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", ErrOpenFailed)
	}
	return plaintext, nil
}
