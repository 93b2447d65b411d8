package derive

import (
	"strings"
	"testing"

	"github.com/mr-tron/base58"
)

func TestEncodeAddress_Validates(t *testing.T) {
	key := make([]byte, 33)
	key[0] = 0x02
	key[32] = 0x7f

	addr := EncodeAddress(key)
	if addr == "" {
		t.Fatal("empty address")
	}
	if err := ValidateAddress(addr); err != nil {
		t.Errorf("encoded address failed validation: %v", err)
	}
}

func TestEncodeAddress_Deterministic(t *testing.T) {
	key := make([]byte, 33)
	key[0] = 0x03
	if EncodeAddress(key) != EncodeAddress(key) {
		t.Error("same key encoded to different addresses")
	}
}

func TestValidateAddress_Rejects(t *testing.T) {
	key := make([]byte, 33)
	key[0] = 0x02
	valid := EncodeAddress(key)

	// Flip the version byte but keep a fresh checksum so only the version
	// check can fail.
	raw, err := base58.Decode(valid)
	if err != nil {
		t.Fatalf("decode valid address: %v", err)
	}
	badVersion := append([]byte{}, raw...)
	badVersion[0] = 0x42
	copy(badVersion[21:], checksum(badVersion[:21]))

	tests := []struct {
		name    string
		address string
	}{
		{"empty", ""},
		{"not base58", "0OIl"},
		{"truncated", valid[:len(valid)-2]},
		{"corrupted checksum", corrupt(valid)},
		{"wrong version", base58.Encode(badVersion)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateAddress(tt.address); err == nil {
				t.Errorf("ValidateAddress(%q) accepted invalid address", tt.address)
			}
		})
	}
}

// corrupt swaps the last character for a different base58 character.
func corrupt(addr string) string {
	last := addr[len(addr)-1]
	replacement := byte('1')
	if last == '1' {
		replacement = '2'
	}
	return addr[:len(addr)-1] + string(replacement)
}

func TestValidateAddress_OtherKeysDoNotCollide(t *testing.T) {
	a := make([]byte, 33)
	a[0] = 0x02
	b := make([]byte, 33)
	b[0] = 0x02
	b[1] = 0x01

	if EncodeAddress(a) == EncodeAddress(b) {
		t.Error("distinct keys encoded to the same address")
	}
	if !strings.ContainsAny(EncodeAddress(a), "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz") {
		t.Error("address is not base58")
	}
}
