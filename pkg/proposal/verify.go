package proposal

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"math/big"

	"github.com/sealwrite/sealwrite/pkg/authenticator"
	"github.com/sealwrite/sealwrite/pkg/challenge"
	"github.com/sealwrite/sealwrite/pkg/protocol"
)

// VerifyAssertion checks that sig is a valid credential signature over
// authData and clientData, and that the client data embeds exactly the
// expected nonce. The credential public key comes from the registration
// record, never from the submission itself.
func VerifyAssertion(credentialKey authenticator.PublicKey, authData, clientDataJSON, sig, expectedNonce []byte) error {
	if len(authData) < 37 {
		return protocol.ErrSignatureMismatch("authenticator data too short")
	}
	if authData[32]&0x01 == 0 {
		return protocol.ErrSignatureMismatch("user presence flag not set")
	}

	cd, err := authenticator.ParseClientData(clientDataJSON)
	if err != nil {
		return protocol.ErrSignatureMismatch(err.Error())
	}
	nonce, err := cd.ChallengeBytes()
	if err != nil {
		return protocol.ErrSignatureMismatch(err.Error())
	}
	if !bytes.Equal(nonce, expectedNonce) {
		return protocol.ErrSignatureMismatch("assertion was signed over a different challenge nonce")
	}

	pub, err := ecdsaPublicKey(credentialKey)
	if err != nil {
		return err
	}

	clientHash := sha256.Sum256(clientDataJSON)
	signed := make([]byte, 0, len(authData)+len(clientHash))
	signed = append(signed, authData...)
	signed = append(signed, clientHash[:]...)
	digest := sha256.Sum256(signed)

	if !ecdsa.VerifyASN1(pub, digest[:], sig) {
		return protocol.ErrSignatureMismatch("signature does not verify against the registered credential key")
	}
	return nil
}

// VerifyBinding checks the submitted proposal fields against the intent the
// challenge was bound to at issuance. Any divergence — path, digest or tier —
// rejects the submission, even when the signature itself is valid.
func VerifyBinding(sp *SignedProposal, bound *challenge.Challenge) error {
	if bound.Purpose != challenge.PurposeProposal {
		return protocol.ErrProposalMismatch("purpose")
	}
	if sp.Path != bound.Path {
		return protocol.ErrProposalMismatch("path")
	}
	if sp.ContentDigest != bound.ContentDigest {
		return protocol.ErrProposalMismatch("content digest")
	}
	if int(sp.Tier) != bound.Tier {
		return protocol.ErrProposalMismatch("tier")
	}
	return nil
}

// VerifyContent recomputes the digest of content and compares it with the
// claimed digest. Used when the submission carries content bytes; flipping a
// single byte after signing fails here.
func VerifyContent(content []byte, claimedDigest string) error {
	actual, err := ContentDigestString(content)
	if err != nil {
		return protocol.ErrProposalMismatch("content digest")
	}
	if actual != claimedDigest {
		return protocol.ErrProposalMismatch("content digest")
	}
	return nil
}

// ecdsaPublicKey converts raw P-256 coordinates to a stdlib verification key.
func ecdsaPublicKey(pk authenticator.PublicKey) (*ecdsa.PublicKey, error) {
	if len(pk.X) != 32 || len(pk.Y) != 32 {
		return nil, protocol.ErrInvalidKeyMaterial("credential key coordinates must be 32 bytes")
	}
	x := new(big.Int).SetBytes(pk.X)
	y := new(big.Int).SetBytes(pk.Y)
	if !elliptic.P256().IsOnCurve(x, y) {
		return nil, protocol.ErrInvalidKeyMaterial("credential key is not on the P-256 curve")
	}
	return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
}
