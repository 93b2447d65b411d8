package api

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTokenIssueVerify(t *testing.T) {
	ti, err := NewEphemeralTokenIssuer()
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	token, expiresAt, err := ti.Issue("addr-one")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Error("expiry is not in the future")
	}

	subject, err := ti.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if subject != "addr-one" {
		t.Errorf("subject = %q, want %q", subject, "addr-one")
	}
}

func TestTokenVerify_Rejections(t *testing.T) {
	ti, err := NewEphemeralTokenIssuer()
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	t.Log("Garbage input")
	if _, err := ti.Verify("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}

	t.Log("Token signed by a different key")
	other, err := NewEphemeralTokenIssuer()
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	foreign, _, err := other.Issue("addr-one")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ti.Verify(foreign); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for foreign signature, got %v", err)
	}

	t.Log("Expired token")
	expired, err := NewEphemeralTokenIssuer()
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	expired.ttl = -time.Minute
	stale, _, err := expired.Issue("addr-one")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := expired.Verify(stale); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestLoadOrGenerateTokenIssuer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "session-signing.pem")

	first, err := LoadOrGenerateTokenIssuer(path)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("key file not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("key file mode = %v, want 0600", info.Mode().Perm())
	}

	t.Log("A token minted before restart must verify after reload")
	token, _, err := first.Issue("addr-one")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, err := LoadOrGenerateTokenIssuer(path)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	subject, err := second.Verify(token)
	if err != nil {
		t.Fatalf("verify after reload: %v", err)
	}
	if subject != "addr-one" {
		t.Errorf("subject = %q", subject)
	}
}
