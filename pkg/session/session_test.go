package session

import (
	"testing"
	"time"

	"github.com/printforge/quickorder-backend/pkg/config"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	mgr, err := NewManager(config.SessionConfig{
		Secret:     "test-secret",
		Issuer:     "printforge-test",
		TTLMinutes: 60,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return mgr
}

func TestIssueAndParseRoundTrip(t *testing.T) {
	t.Parallel()

	mgr := testManager(t)
	token, sessionID, err := mgr.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" || sessionID == "" {
		t.Fatal("expected non-empty token and session id")
	}

	parsed, err := mgr.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed != sessionID {
		t.Fatalf("parsed session %q, want %q", parsed, sessionID)
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	t.Parallel()

	mgr := testManager(t)
	other, err := NewManager(config.SessionConfig{
		Secret:     "different-secret",
		Issuer:     "printforge-test",
		TTLMinutes: 60,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, _, err := other.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := mgr.Parse(token); err == nil {
		t.Fatal("expected foreign token to be rejected")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	t.Parallel()

	mgr, err := NewManager(config.SessionConfig{
		Secret:     "test-secret",
		Issuer:     "printforge-test",
		TTLMinutes: 0,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	token, _, err := mgr.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := mgr.Parse(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}
