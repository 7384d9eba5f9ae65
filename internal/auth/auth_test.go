package auth

import (
	"errors"
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := &Manager{Secret: []byte("s3cret"), AccessTTL: time.Hour, Issuer: "realty-backend"}
	token, err := m.NewAccessToken("sess-1", "editor", time.Time{})
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}
	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if claims.SessionID != "sess-1" || claims.Username != "editor" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	other := &Manager{Secret: []byte("other"), AccessTTL: time.Hour, Issuer: "realty-backend"}
	if _, err := other.Parse(token); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	m := &Manager{Secret: []byte("s3cret"), Issuer: "realty-backend"}
	token, _ := m.NewAccessToken("sess-1", "editor", time.Now().Add(-time.Minute))
	if _, err := m.Parse(token); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestPasswords(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if err := ComparePassword(hash, "correct horse"); err != nil {
		t.Fatalf("expected match: %v", err)
	}
	if err := ComparePassword(hash, "wrong horse"); err == nil {
		t.Fatalf("expected mismatch")
	}
}
