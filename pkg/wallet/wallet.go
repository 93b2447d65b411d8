// Package wallet holds a conventional ledger credential: a secp256k1
// keypair generated directly (not derived from any authenticator). During
// registration the wallet signs the registration payload, proving the user
// who registers the biometric also controls the claimed ledger identity.
package wallet

import (
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/sealwrite/sealwrite/pkg/derive"
)

// Key is a ledger wallet keypair.
type Key struct {
	priv *secp256k1.PrivateKey
}

// Generate creates a new wallet key from secure randomness.
func Generate() (*Key, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate wallet key: %w", err)
	}
	return &Key{priv: priv}, nil
}

// FromPrivateKey wraps an existing private key.
func FromPrivateKey(priv *secp256k1.PrivateKey) *Key {
	return &Key{priv: priv}
}

// Address returns the wallet's ledger address.
func (k *Key) Address() string {
	return derive.EncodeAddress(k.PublicKey())
}

// PublicKey returns the compressed public key (33 bytes).
func (k *Key) PublicKey() []byte {
	return k.priv.PubKey().SerializeCompressed()
}

// Sign produces a DER-encoded ECDSA signature over SHA-256(payload).
func (k *Key) Sign(payload []byte) []byte {
	digest := sha256.Sum256(payload)
	return secpecdsa.Sign(k.priv, digest[:]).Serialize()
}

// Zero clears the private key material.
func (k *Key) Zero() {
	k.priv.Zero()
}

// VerifySignature checks a DER ECDSA signature over SHA-256(payload)
// against a compressed public key. Also confirms the claimed address is the
// standard encoding of that key, so a proof cannot be pinned to someone
// else's address.
func VerifySignature(compressedPublicKey []byte, claimedAddress string, payload, derSignature []byte) error {
	pub, err := secp256k1.ParsePubKey(compressedPublicKey)
	if err != nil {
		return fmt.Errorf("wallet: invalid public key: %w", err)
	}
	if derive.EncodeAddress(compressedPublicKey) != claimedAddress {
		return fmt.Errorf("wallet: public key does not match claimed address")
	}
	sig, err := secpecdsa.ParseDERSignature(derSignature)
	if err != nil {
		return fmt.Errorf("wallet: invalid signature encoding: %w", err)
	}
	digest := sha256.Sum256(payload)
	if !sig.Verify(digest[:], pub) {
		return fmt.Errorf("wallet: signature does not verify")
	}
	return nil
}
