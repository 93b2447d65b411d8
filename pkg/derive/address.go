package derive

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"
)

// AddressVersion is the ledger's address version byte. It keeps sealwrite
// addresses visually distinct from other base58 encodings.
const AddressVersion = 0x35

// addressHashLen is the truncated digest length carried in an address.
const addressHashLen = 20

// EncodeAddress computes the ledger's standard address encoding for a
// compressed public key: base58check over a version byte and the first 20
// bytes of SHA3-256(publicKey).
func EncodeAddress(compressedPublicKey []byte) string {
	digest := sha3.Sum256(compressedPublicKey)
	payload := make([]byte, 0, 1+addressHashLen+4)
	payload = append(payload, AddressVersion)
	payload = append(payload, digest[:addressHashLen]...)
	payload = append(payload, checksum(payload)...)
	return base58.Encode(payload)
}

// ValidateAddress checks encoding, version byte and checksum. It cannot and
// does not recover the public key: the address is a one-way commitment.
func ValidateAddress(address string) error {
	raw, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("address: invalid base58: %w", err)
	}
	if len(raw) != 1+addressHashLen+4 {
		return fmt.Errorf("address: wrong length %d", len(raw))
	}
	if raw[0] != AddressVersion {
		return fmt.Errorf("address: unknown version byte 0x%02x", raw[0])
	}
	payload, check := raw[:1+addressHashLen], raw[1+addressHashLen:]
	if !bytes.Equal(check, checksum(payload)) {
		return fmt.Errorf("address: checksum mismatch")
	}
	return nil
}

// checksum is the first four bytes of a double SHA-256 over the payload.
func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:4]
}
