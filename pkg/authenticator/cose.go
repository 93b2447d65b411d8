package authenticator

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// COSE_Key constants for ES256 credentials (RFC 9052, RFC 9053).
const (
	coseKtyEC2   = 2  // kty: elliptic curve, x/y coordinate pair
	coseAlgES256 = -7 // alg: ECDSA w/ SHA-256
	coseCrvP256  = 1  // crv: NIST P-256
)

// coseKey is the CBOR shape of a COSE_Key holding a P-256 public key.
type coseKey struct {
	Kty int    `cbor:"1,keyasint"`
	Alg int    `cbor:"3,keyasint"`
	Crv int    `cbor:"-1,keyasint"`
	X   []byte `cbor:"-2,keyasint"`
	Y   []byte `cbor:"-3,keyasint"`
}

// MarshalCOSEKey encodes a P-256 public key as a COSE_Key CBOR map, the
// format authenticators attach credential keys in.
func MarshalCOSEKey(pk PublicKey) ([]byte, error) {
	if len(pk.X) != 32 || len(pk.Y) != 32 {
		return nil, fmt.Errorf("cose: coordinates must be 32 bytes, got %d/%d", len(pk.X), len(pk.Y))
	}
	return cbor.Marshal(coseKey{
		Kty: coseKtyEC2,
		Alg: coseAlgES256,
		Crv: coseCrvP256,
		X:   pk.X,
		Y:   pk.Y,
	})
}

// ParseCOSEKey decodes a COSE_Key CBOR map and validates it is an ES256
// P-256 key with full-length coordinates. The kty/alg/crv checks are strict;
// an authenticator advertising any other cryptosystem is rejected here
// rather than producing a key that fails later in derivation.
func ParseCOSEKey(data []byte) (PublicKey, error) {
	var k coseKey
	if err := cbor.Unmarshal(data, &k); err != nil {
		return PublicKey{}, fmt.Errorf("cose: malformed key: %w", err)
	}
	if k.Kty != coseKtyEC2 {
		return PublicKey{}, fmt.Errorf("cose: kty must be EC2 (%d), got %d", coseKtyEC2, k.Kty)
	}
	if k.Alg != coseAlgES256 {
		return PublicKey{}, fmt.Errorf("cose: alg must be ES256 (%d), got %d", coseAlgES256, k.Alg)
	}
	if k.Crv != coseCrvP256 {
		return PublicKey{}, fmt.Errorf("cose: crv must be P-256 (%d), got %d", coseCrvP256, k.Crv)
	}
	if len(k.X) != 32 || len(k.Y) != 32 {
		return PublicKey{}, fmt.Errorf("cose: coordinates must be 32 bytes, got %d/%d", len(k.X), len(k.Y))
	}
	return PublicKey{X: k.X, Y: k.Y}, nil
}

// SEC1Uncompressed returns the 65-byte uncompressed SEC1 encoding
// (0x04 || X || Y) used as derivation input and wire representation.
func (pk PublicKey) SEC1Uncompressed() []byte {
	out := make([]byte, 0, 65)
	out = append(out, 0x04)
	out = append(out, pk.X...)
	out = append(out, pk.Y...)
	return out
}

// PublicKeyFromSEC1 parses a 65-byte uncompressed SEC1 point back into
// coordinates. Curve membership is checked by the derivation engine, not
// here; this only validates the framing.
func PublicKeyFromSEC1(data []byte) (PublicKey, error) {
	if len(data) != 65 || data[0] != 0x04 {
		return PublicKey{}, fmt.Errorf("sec1: expected 65-byte uncompressed point, got %d bytes", len(data))
	}
	return PublicKey{X: data[1:33], Y: data[33:65]}, nil
}
