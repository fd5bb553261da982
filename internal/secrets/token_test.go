package secrets

import (
	"testing"

	"github.com/zalando/go-keyring"
)

func TestResolveAccessToken_ConfiguredWins(t *testing.T) {
	keyring.MockInit()
	if err := SetAccessToken("acme", "from-keyring"); err != nil {
		t.Fatalf("SetAccessToken: %v", err)
	}

	got, err := ResolveAccessToken("from-config", "acme")
	if err != nil {
		t.Fatalf("ResolveAccessToken: %v", err)
	}
	if got != "from-config" {
		t.Errorf("got %q, want from-config", got)
	}
}

func TestResolveAccessToken_FallsBackToKeyring(t *testing.T) {
	keyring.MockInit()
	if err := SetAccessToken("acme", "from-keyring"); err != nil {
		t.Fatalf("SetAccessToken: %v", err)
	}

	got, err := ResolveAccessToken("", "acme")
	if err != nil {
		t.Fatalf("ResolveAccessToken: %v", err)
	}
	if got != "from-keyring" {
		t.Errorf("got %q, want from-keyring", got)
	}
}

func TestResolveAccessToken_MissingEntryIsEmpty(t *testing.T) {
	keyring.MockInit()

	got, err := ResolveAccessToken("", "nobody")
	if err != nil {
		t.Fatalf("ResolveAccessToken: %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestResolveAccessToken_NoAccount(t *testing.T) {
	got, err := ResolveAccessToken("", "  ")
	if err != nil || got != "" {
		t.Errorf("got %q, %v; want empty, nil", got, err)
	}
}

func TestSetAndDeleteAccessToken(t *testing.T) {
	keyring.MockInit()

	if err := SetAccessToken("", "tok"); err == nil {
		t.Error("expected error for empty account")
	}
	if err := SetAccessToken("acme", ""); err == nil {
		t.Error("expected error for empty token")
	}
	if err := SetAccessToken("acme", "tok"); err != nil {
		t.Fatalf("SetAccessToken: %v", err)
	}
	if err := DeleteAccessToken("acme"); err != nil {
		t.Fatalf("DeleteAccessToken: %v", err)
	}
	if err := DeleteAccessToken("acme"); err != nil {
		t.Errorf("deleting a missing entry should be a no-op, got %v", err)
	}
	if got, _ := ResolveAccessToken("", "acme"); got != "" {
		t.Errorf("token still present after delete: %q", got)
	}
}
