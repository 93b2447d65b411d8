package protocol

import (
	"encoding/binary"
	"time"
)

// RegisterRequest is the body for POST /api/v1/register.
// All binary fields are base64 (std encoding) on the wire.
type RegisterRequest struct {
	CredentialID        string `json:"credential_id"`         // Authenticator-assigned handle
	CredentialPublicKey string `json:"credential_public_key"` // Uncompressed SEC1 P-256 point (65 bytes)
	DerivedAddress      string `json:"derived_address"`
	DerivedPublicKey    string `json:"derived_public_key"` // Compressed secp256k1 point (33 bytes)
	DeviceLabel         string `json:"device_label"`
	ProofSigner         string `json:"proof_signer"`     // Ledger address of the pre-existing wallet credential
	ProofPublicKey      string `json:"proof_public_key"` // Compressed secp256k1 point for the proof signer
	ProofSignature      string `json:"proof_signature"`  // DER ECDSA over RegistrationSigningPayload
}

// RegisterResponse is the body returned with HTTP 201 on success.
type RegisterResponse struct {
	RegistrationID   string    `json:"registration_id"`
	CredentialID     string    `json:"credential_id"`
	DerivedAddress   string    `json:"derived_address"`
	DerivedPublicKey string    `json:"derived_public_key"`
	DeviceLabel      string    `json:"device_label"`
	CreatedAt        time.Time `json:"created_at"`
}

// ChallengeResponse is the body for GET /api/v1/challenge and
// POST /api/v1/auth/challenge. The nonce is single-use and bound server-side
// to the (path, digest, tier) it was requested for.
type ChallengeResponse struct {
	ChallengeID string    `json:"challenge_id"`
	Nonce       string    `json:"nonce"` // base64
	ExpiresAt   time.Time `json:"expires_at"`
}

// ProposalRequest is the body for POST /api/v1/proposals. It carries the
// assembled SignedProposal envelope for verification.
type ProposalRequest struct {
	ChallengeID       string `json:"challenge_id"`
	Nonce             string `json:"nonce"` // base64, the consumed challenge nonce
	Path              string `json:"path"`
	ContentDigest     string `json:"content_digest"`    // CIDv1 string
	Content           string `json:"content,omitempty"` // base64; optional, digest is recomputed when present
	Tier              int    `json:"tier"`
	CredentialID      string `json:"credential_id"`      // base64
	SignerAddress     string `json:"signer_address"`     // derived ledger address; must match the registration
	SignerPublicKey   string `json:"signer_public_key"`  // base64, derived public key; must match the registration
	AuthenticatorData string `json:"authenticator_data"` // base64
	ClientDataJSON    string `json:"client_data_json"`   // base64
	Signature         string `json:"signature"`          // base64, DER ECDSA P-256
}

// ProposalResponse is the acceptance receipt returned with HTTP 200.
type ProposalResponse struct {
	ProposalID    string    `json:"proposal_id"`
	Status        string    `json:"status"` // always "accepted" on 200
	Path          string    `json:"path"`
	ContentDigest string    `json:"content_digest"`
	Tier          int       `json:"tier"`
	SignerAddress string    `json:"signer_address"`
	AcceptedAt    time.Time `json:"accepted_at"`
}

// AuthVerifyRequest is the body for POST /api/v1/auth/verify. The assertion
// fields mirror ProposalRequest but authorize a session, not a write.
type AuthVerifyRequest struct {
	ChallengeID       string `json:"challenge_id"`
	CredentialID      string `json:"credential_id"`      // base64
	AuthenticatorData string `json:"authenticator_data"` // base64
	ClientDataJSON    string `json:"client_data_json"`   // base64
	Signature         string `json:"signature"`          // base64
}

// AuthVerifyResponse carries the minted session token.
type AuthVerifyResponse struct {
	Token     string    `json:"token"` // EdDSA-signed JWT
	Address   string    `json:"address"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionResponse is the body for GET /api/v1/session: the identity the
// presented bearer token was minted for.
type SessionResponse struct {
	Address string `json:"address"`
}

// ErrorResponse is the JSON error envelope for all non-2xx responses.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RegistrationSigningPayload builds the exact bytes the proof-of-control
// signature covers: credential id, derived public key and device label, each
// length-prefixed so field boundaries cannot be shifted.
func RegistrationSigningPayload(credentialID, derivedPublicKey []byte, deviceLabel string) []byte {
	fields := [][]byte{credentialID, derivedPublicKey, []byte(deviceLabel)}
	size := 0
	for _, f := range fields {
		size += 4 + len(f)
	}
	payload := make([]byte, 0, size)
	for _, f := range fields {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(f)))
		payload = append(payload, n[:]...)
		payload = append(payload, f...)
	}
	return payload
}
