package shares

import (
	"errors"
	"strings"
	"testing"
)

func TestNewSessionIDValidation(t *testing.T) {
	if _, err := NewSessionID("   "); !errors.Is(err, ErrInvalidSessionID) {
		t.Fatalf("expected ErrInvalidSessionID for blank input, got %v", err)
	}
	if _, err := NewSessionID(strings.Repeat("a", 191)); !errors.Is(err, ErrInvalidSessionID) {
		t.Fatalf("expected ErrInvalidSessionID for oversized input, got %v", err)
	}
	id, err := NewSessionID("  session-1  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.String() != "session-1" {
		t.Fatalf("expected trimmed id, got %q", id)
	}
}

func TestNewShareIDValidation(t *testing.T) {
	if _, err := NewShareID(""); !errors.Is(err, ErrInvalidShareID) {
		t.Fatalf("expected ErrInvalidShareID for empty input, got %v", err)
	}
	id, err := NewShareID("abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.String() != "abc123" {
		t.Fatalf("unexpected id: %q", id)
	}
}

func TestSessionIDShareIDDerivationIsIdempotent(t *testing.T) {
	sessionID := mustSessionID(t, "session-20260714-xyz")
	first := sessionID.ShareID()
	second := sessionID.ShareID()
	if first != second {
		t.Fatalf("derivation not idempotent: %q vs %q", first, second)
	}
	if len(first.String()) != 8 {
		t.Fatalf("expected 8 character suffix, got %q", first)
	}
}
