package chat

import (
	"errors"
	"testing"
)

func TestIssueTokenIsDeterministic(t *testing.T) {
	issuer := NewTokenIssuer("key", "secret")

	first, err := issuer.IssueToken("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, err := issuer.IssueToken("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if first != second {
		t.Fatal("expected identical tokens for the same user")
	}

	other, err := issuer.IssueToken("user-2")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if other == first {
		t.Fatal("expected distinct tokens for distinct users")
	}

	userID, err := issuer.UserID(first)
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1 got %q", userID)
	}
}

func TestIssueTokenFailures(t *testing.T) {
	if _, err := NewTokenIssuer("key", "").IssueToken("user-1"); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected missing secret got %v", err)
	}
	if _, err := NewTokenIssuer("key", "secret").IssueToken("  "); err == nil {
		t.Fatal("expected error for blank user id")
	}

	token, err := NewTokenIssuer("key", "secret").IssueToken("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewTokenIssuer("key", "other").UserID(token); err == nil {
		t.Fatal("expected signature mismatch")
	}
}
