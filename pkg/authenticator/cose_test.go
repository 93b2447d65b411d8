package authenticator

import (
	"bytes"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func testKey() PublicKey {
	x := make([]byte, 32)
	y := make([]byte, 32)
	x[0] = 0x11
	y[31] = 0x22
	return PublicKey{X: x, Y: y}
}

func TestCOSEKeyRoundTrip(t *testing.T) {
	pk := testKey()

	data, err := MarshalCOSEKey(pk)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	got, err := ParseCOSEKey(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !bytes.Equal(got.X, pk.X) || !bytes.Equal(got.Y, pk.Y) {
		t.Error("coordinates changed across the round trip")
	}
}

func TestMarshalCOSEKey_RejectsShortCoordinates(t *testing.T) {
	_, err := MarshalCOSEKey(PublicKey{X: []byte{1}, Y: make([]byte, 32)})
	if err == nil {
		t.Error("short X coordinate accepted")
	}
}

func TestParseCOSEKey_RejectsWrongCryptosystem(t *testing.T) {
	encode := func(kty, alg, crv int) []byte {
		data, err := cbor.Marshal(coseKey{
			Kty: kty, Alg: alg, Crv: crv,
			X: make([]byte, 32), Y: make([]byte, 32),
		})
		if err != nil {
			t.Fatalf("encode fixture: %v", err)
		}
		return data
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"wrong kty", encode(1, coseAlgES256, coseCrvP256)},
		{"wrong alg (EdDSA)", encode(coseKtyEC2, -8, coseCrvP256)},
		{"wrong curve", encode(coseKtyEC2, coseAlgES256, 2)},
		{"garbage", []byte{0xff, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCOSEKey(tt.data); err == nil {
				t.Error("invalid COSE key accepted")
			}
		})
	}
}

func TestSEC1RoundTrip(t *testing.T) {
	pk := testKey()
	sec1 := pk.SEC1Uncompressed()
	if len(sec1) != 65 || sec1[0] != 0x04 {
		t.Fatalf("bad SEC1 framing: %d bytes, prefix 0x%02x", len(sec1), sec1[0])
	}

	got, err := PublicKeyFromSEC1(sec1)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !bytes.Equal(got.X, pk.X) || !bytes.Equal(got.Y, pk.Y) {
		t.Error("coordinates changed across the round trip")
	}

	if _, err := PublicKeyFromSEC1(sec1[:64]); err == nil {
		t.Error("truncated point accepted")
	}
	compressed := append([]byte{0x02}, sec1[1:]...)
	if _, err := PublicKeyFromSEC1(compressed[:65]); err == nil {
		t.Error("wrong prefix accepted")
	}
}
