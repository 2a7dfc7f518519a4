package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

// Test key generated with: openssl rand -base64 32
const testKey = "dGVzdC1rZXktZm9yLXVuaXQtdGVzdHMtMzItYnl0ZXM="

func TestNewSealer(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{name: "32-byte base64 key", key: testKey},
		{name: "passphrase", key: "session-secret-from-env"},
		{name: "short base64 is hashed", key: base64.StdEncoding.EncodeToString([]byte("sixteen-byte-key"))},
		{name: "long base64 is hashed", key: base64.StdEncoding.EncodeToString([]byte(strings.Repeat("x", 64)))},
		{name: "empty key", key: "", wantErr: ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSealer(tt.key)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s == nil {
				t.Fatal("expected sealer")
			}
		})
	}
}

func TestSealOpen_RoundTrip(t *testing.T) {
	s, err := NewSealer(testKey)
	if err != nil {
		t.Fatal(err)
	}

	payload := []byte(`{"user":{"username":"alice"}}`)
	sealed, err := s.Seal(payload, "session:abc")
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(sealed, []byte("alice")) {
		t.Error("sealed payload leaks plaintext")
	}

	opened, err := s.Open(sealed, "session:abc")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !bytes.Equal(opened, payload) {
		t.Errorf("Open = %s, want %s", opened, payload)
	}
}

func TestSeal_UniqueNonces(t *testing.T) {
	s, _ := NewSealer(testKey)
	a, _ := s.Seal([]byte("same"), "label")
	b, _ := s.Seal([]byte("same"), "label")
	if bytes.Equal(a, b) {
		t.Error("two seals of the same payload should differ")
	}
}

func TestOpen_Rejects(t *testing.T) {
	s, _ := NewSealer(testKey)
	other, _ := NewSealer("a different passphrase")
	sealed, _ := s.Seal([]byte("payload"), "session:abc")

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0xff

	tests := []struct {
		name   string
		sealer *Sealer
		input  []byte
		label  string
	}{
		{"wrong label", s, sealed, "session:xyz"},
		{"wrong key", other, sealed, "session:abc"},
		{"tampered", s, tampered, "session:abc"},
		{"too short", s, []byte("tiny"), "session:abc"},
		{"empty", s, nil, "session:abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.sealer.Open(tt.input, tt.label)
			if !errors.Is(err, ErrOpenFailed) {
				t.Errorf("expected ErrOpenFailed, got %v", err)
			}
		})
	}
}

func TestPassphraseKeyConsistency(t *testing.T) {
	a, _ := NewSealer("shared passphrase")
	b, _ := NewSealer("shared passphrase")

	sealed, _ := a.Seal([]byte("payload"), "label")
	if _, err := b.Open(sealed, "label"); err != nil {
		t.Errorf("same passphrase should derive the same key: %v", err)
	}
}
