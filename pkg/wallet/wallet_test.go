package wallet

import (
	"testing"

	"github.com/sealwrite/sealwrite/pkg/derive"
)

func TestSignAndVerify(t *testing.T) {
	key, err := Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	defer key.Zero()

	payload := []byte("registration payload bytes")
	sig := key.Sign(payload)

	if err := VerifySignature(key.PublicKey(), key.Address(), payload, sig); err != nil {
		t.Errorf("signature failed to verify: %v", err)
	}
}

func TestVerifySignature_Rejects(t *testing.T) {
	key, err := Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	defer key.Zero()
	other, err := Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	defer other.Zero()

	payload := []byte("payload")
	sig := key.Sign(payload)

	t.Log("Tampered payload must fail")
	if err := VerifySignature(key.PublicKey(), key.Address(), []byte("other payload"), sig); err == nil {
		t.Error("tampered payload accepted")
	}

	t.Log("A claimed address that is not the key's encoding must fail")
	if err := VerifySignature(key.PublicKey(), other.Address(), payload, sig); err == nil {
		t.Error("mismatched address accepted")
	}

	t.Log("Another key's signature must fail")
	if err := VerifySignature(key.PublicKey(), key.Address(), payload, other.Sign(payload)); err == nil {
		t.Error("foreign signature accepted")
	}

	t.Log("Garbage key bytes must fail")
	if err := VerifySignature([]byte{0x01, 0x02}, key.Address(), payload, sig); err == nil {
		t.Error("malformed public key accepted")
	}
}

func TestAddressMatchesDeriveEncoding(t *testing.T) {
	key, err := Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	defer key.Zero()

	if key.Address() != derive.EncodeAddress(key.PublicKey()) {
		t.Error("wallet address is not the standard encoding of its public key")
	}
	if err := derive.ValidateAddress(key.Address()); err != nil {
		t.Errorf("wallet address failed validation: %v", err)
	}
}
