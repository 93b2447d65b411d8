package authenticator

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"errors"
	"math/big"
	"testing"
	"time"
)

func TestCreateCredential(t *testing.T) {
	e := NewEmulator()

	cred, err := e.CreateCredential(context.Background(), CreateParams{
		RelyingParty: "example.test",
		UserName:     "dev",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(cred.ID) != 16 {
		t.Errorf("credential id must be 16 bytes, got %d", len(cred.ID))
	}
	if len(cred.PublicKey.X) != 32 || len(cred.PublicKey.Y) != 32 {
		t.Error("credential key coordinates must be 32 bytes")
	}
	if cred.Attachment != AttachmentPlatform {
		t.Errorf("expected platform attachment, got %q", cred.Attachment)
	}
}

func TestGetAssertion_SignatureVerifies(t *testing.T) {
	e := NewEmulator()
	ctx := context.Background()

	cred, err := e.CreateCredential(ctx, CreateParams{RelyingParty: "example.test"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	nonce := bytes.Repeat([]byte{0xAB}, 32)
	assertion, err := e.GetAssertion(ctx, nonce, [][]byte{cred.ID})
	if err != nil {
		t.Fatalf("assertion failed: %v", err)
	}
	if err := VerifyAssertionShape(assertion); err != nil {
		t.Fatalf("assertion shape invalid: %v", err)
	}

	t.Log("Checking the client data embeds the exact challenge nonce")
	cd, err := ParseClientData(assertion.ClientDataJSON)
	if err != nil {
		t.Fatalf("client data invalid: %v", err)
	}
	got, err := cd.ChallengeBytes()
	if err != nil {
		t.Fatalf("challenge decode failed: %v", err)
	}
	if !bytes.Equal(got, nonce) {
		t.Error("client data challenge differs from the requested nonce")
	}

	t.Log("Verifying the ECDSA signature over authData || SHA-256(clientData)")
	pub := &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(cred.PublicKey.X),
		Y:     new(big.Int).SetBytes(cred.PublicKey.Y),
	}
	clientHash := sha256.Sum256(assertion.ClientDataJSON)
	signed := append(append([]byte{}, assertion.AuthenticatorData...), clientHash[:]...)
	digest := sha256.Sum256(signed)
	if !ecdsa.VerifyASN1(pub, digest[:], assertion.Signature) {
		t.Error("assertion signature does not verify against the credential key")
	}
}

func TestGetAssertion_UnknownCredential(t *testing.T) {
	e := NewEmulator()
	_, err := e.GetAssertion(context.Background(), make([]byte, 32), [][]byte{{0x01, 0x02}})
	if !errors.Is(err, ErrCredentialNotFound) {
		t.Errorf("expected ErrCredentialNotFound, got %v", err)
	}
}

func TestUnavailableAuthenticator(t *testing.T) {
	e := NewEmulator()
	e.SetAvailable(false)

	if e.IsAvailable(context.Background()) {
		t.Error("authenticator should report unavailable")
	}
	_, err := e.CreateCredential(context.Background(), CreateParams{})
	if !errors.Is(err, ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
}

func TestDeclinedPrompt(t *testing.T) {
	e := NewEmulator()
	e.DeclineNext()

	_, err := e.CreateCredential(context.Background(), CreateParams{})
	if !errors.Is(err, ErrUserCancelled) {
		t.Errorf("expected ErrUserCancelled, got %v", err)
	}

	t.Log("The decline applies to one prompt only")
	if _, err := e.CreateCredential(context.Background(), CreateParams{}); err != nil {
		t.Errorf("next prompt should succeed, got %v", err)
	}
}

func TestExpiredContextMapsToTimeout(t *testing.T) {
	e := NewEmulator()

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err := e.CreateCredential(ctx, CreateParams{})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout for an expired deadline, got %v", err)
	}

	ctx2, cancel2 := context.WithCancel(context.Background())
	cancel2()
	_, err = e.CreateCredential(ctx2, CreateParams{})
	if !errors.Is(err, ErrUserCancelled) {
		t.Errorf("expected ErrUserCancelled for a cancelled context, got %v", err)
	}
}

func TestStateDirPersistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first := NewEmulator(WithStateDir(dir))
	cred, err := first.CreateCredential(ctx, CreateParams{RelyingParty: "example.test"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	t.Log("A fresh emulator over the same state dir can assert with the credential")
	second := NewEmulator(WithStateDir(dir))
	assertion, err := second.GetAssertion(ctx, make([]byte, 32), [][]byte{cred.ID})
	if err != nil {
		t.Fatalf("assertion after reload failed: %v", err)
	}
	if !bytes.Equal(assertion.CredentialID, cred.ID) {
		t.Error("assertion used an unexpected credential")
	}
}

func TestSignCountIncrements(t *testing.T) {
	e := NewEmulator()
	ctx := context.Background()

	cred, err := e.CreateCredential(ctx, CreateParams{})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	a1, err := e.GetAssertion(ctx, make([]byte, 32), [][]byte{cred.ID})
	if err != nil {
		t.Fatalf("first assertion failed: %v", err)
	}
	a2, err := e.GetAssertion(ctx, make([]byte, 32), [][]byte{cred.ID})
	if err != nil {
		t.Fatalf("second assertion failed: %v", err)
	}

	count1 := a1.AuthenticatorData[33:37]
	count2 := a2.AuthenticatorData[33:37]
	if bytes.Equal(count1, count2) {
		t.Error("sign count did not increment between assertions")
	}
}
