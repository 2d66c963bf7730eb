package token

import (
	"errors"
	"testing"
	"time"
)

func TestNewIssuerRejectsWeakSecrets(t *testing.T) {
	if _, err := NewIssuer("", "ledger", time.Hour); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("expected ErrEmptySecret, got %v", err)
	}
	if _, err := NewIssuer("tokentest", "ledger", time.Hour); !errors.Is(err, ErrWeakSecret) {
		t.Errorf("expected ErrWeakSecret, got %v", err)
	}
}

func TestIssueAndVerify(t *testing.T) {
	issuer, err := NewIssuer("unit-test-secret", "ledger", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	token, err := issuer.Issue("customer-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	customerID, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if customerID != "customer-42" {
		t.Errorf("expected customer-42, got %q", customerID)
	}
}

func TestVerifyRejects(t *testing.T) {
	issuer, _ := NewIssuer("unit-test-secret", "ledger", time.Hour)
	other, _ := NewIssuer("another-secret", "ledger", time.Hour)
	foreign, _ := NewIssuer("unit-test-secret", "someone-else", time.Hour)

	expired, _ := NewIssuer("unit-test-secret", "ledger", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tokens := map[string]func() string{
		"garbage":      func() string { return "not-a-token" },
		"wrong secret": func() string { s, _ := other.Issue("c"); return s },
		"wrong issuer": func() string { s, _ := foreign.Issue("c"); return s },
		"expired":      func() string { s, _ := expired.Issue("c"); return s },
	}
	for name, tok := range tokens {
		t.Run(name, func(t *testing.T) {
			if _, err := issuer.Verify(tok()); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
