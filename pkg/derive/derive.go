// Package derive maps a registered credential's public key into the ledger's
// cryptosystem. The mapping is a pure function of the input bytes: identical
// credential public keys always produce the identical derived identity, on
// every platform, with no randomness. This is what lets a user re-derive the
// same ledger address on a new device, and lets the registry verify the
// linkage server-side without hardware access.
//
// Because the input is the credential's PUBLIC key, anyone holding it can
// compute the derived keypair. The derived private scalar is therefore as
// sensitive as a directly-generated wallet key: the biometric protects the
// original credential, not this secret once materialized. Callers cache it
// session-scoped at most and never write it to durable storage.
package derive

import (
	"crypto/ecdh"
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/sealwrite/sealwrite/pkg/protocol"
)

// Domain separation strings for the hash-to-scalar step. The retry domain is
// distinct so an out-of-range first candidate cannot collide with a fresh
// first-pass hash of different input.
const (
	scalarDomain      = "sealwrite/v1/ledger-scalar:"
	scalarRetryDomain = "sealwrite/v1/ledger-scalar-retry:"
)

// maxScalarAttempts bounds the re-hash loop. The probability of a SHA-256
// output falling outside the secp256k1 group order is below 2^-128, so more
// than one iteration is effectively unreachable, but the loop must terminate.
const maxScalarAttempts = 32

// Identity is a ledger keypair/address deterministically produced from a
// credential public key. Only public halves are carried; the private scalar
// is returned separately and only when explicitly requested.
type Identity struct {
	Address   string   // base58check ledger address
	PublicKey []byte   // compressed secp256k1 point (33 bytes)
	InputHash [32]byte // SHA-256 of the derivation input, for audit linkage
}

// DeriveIdentity computes the ledger identity for a credential public key
// given as an uncompressed SEC1 P-256 point (65 bytes). Malformed input,
// points not on the curve and the identity point are rejected with
// InvalidKeyMaterial.
func DeriveIdentity(publicKeyBytes []byte) (*Identity, error) {
	id, priv, err := deriveKeypair(publicKeyBytes)
	if err != nil {
		return nil, err
	}
	priv.Zero()
	return id, nil
}

// DeriveSigningKey computes the identity together with its private scalar,
// for sessions that sign repeatedly without re-deriving. The caller owns the
// scalar's lifecycle: session-scoped memory only, zeroed on session end.
func DeriveSigningKey(publicKeyBytes []byte) (*Identity, *secp256k1.PrivateKey, error) {
	id, priv, err := deriveKeypair(publicKeyBytes)
	if err != nil {
		return nil, nil, err
	}
	return id, priv, nil
}

func deriveKeypair(publicKeyBytes []byte) (*Identity, *secp256k1.PrivateKey, error) {
	if err := validateP256Point(publicKeyBytes); err != nil {
		return nil, nil, err
	}

	inputHash := sha256.Sum256(publicKeyBytes)

	candidate := sha256.Sum256(append([]byte(scalarDomain), publicKeyBytes...))
	scalar, err := scalarFromCandidate(candidate)
	if err != nil {
		return nil, nil, err
	}

	priv := secp256k1.NewPrivateKey(scalar)
	compressed := priv.PubKey().SerializeCompressed()

	return &Identity{
		Address:   EncodeAddress(compressed),
		PublicKey: compressed,
		InputHash: inputHash,
	}, priv, nil
}

// scalarFromCandidate interprets 32 hash bytes as a secp256k1 scalar,
// re-hashing under the retry domain with a counter salt until the value is
// inside the group order and non-zero. Never silently reduces mod N.
func scalarFromCandidate(candidate [32]byte) (*secp256k1.ModNScalar, error) {
	var s secp256k1.ModNScalar
	for attempt := 0; attempt < maxScalarAttempts; attempt++ {
		overflow := s.SetBytes(&candidate)
		if overflow == 0 && !s.IsZero() {
			return &s, nil
		}
		salted := make([]byte, 0, len(scalarRetryDomain)+33)
		salted = append(salted, scalarRetryDomain...)
		salted = append(salted, candidate[:]...)
		salted = append(salted, byte(attempt))
		candidate = sha256.Sum256(salted)
	}
	return nil, protocol.ErrInvalidKeyMaterial("could not derive an in-range scalar")
}

// validateP256Point rejects anything that is not a well-formed, non-identity
// point on P-256. crypto/ecdh performs full curve membership validation.
func validateP256Point(publicKeyBytes []byte) error {
	if len(publicKeyBytes) != 65 {
		return protocol.ErrInvalidKeyMaterial("public key must be a 65-byte uncompressed P-256 point")
	}
	if publicKeyBytes[0] != 0x04 {
		return protocol.ErrInvalidKeyMaterial("public key must use uncompressed SEC1 encoding")
	}
	if _, err := ecdh.P256().NewPublicKey(publicKeyBytes); err != nil {
		return protocol.ErrInvalidKeyMaterial("point is not on the P-256 curve")
	}
	return nil
}
