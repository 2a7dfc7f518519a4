package models

import (
	"testing"
	"time"
)

func TestSession_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{CreatedAt: now, ExpiresAt: now.Add(8 * time.Hour)}

	if s.Expired(now.Add(time.Hour)) {
		t.Error("session should be valid one hour in")
	}
	if !s.Expired(now.Add(8 * time.Hour)) {
		t.Error("session should be expired at its expiry instant")
	}
}
