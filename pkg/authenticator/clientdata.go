package authenticator

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// ClientDataTypeGet is the client data type for assertion requests.
const ClientDataTypeGet = "webauthn.get"

// ClientData is the JSON document the authenticator signs alongside the
// authenticator data. The challenge field binds the signature to one issued
// nonce; verifiers compare it byte-for-byte with the nonce they minted.
type ClientData struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"` // base64url, no padding
	Origin    string `json:"origin"`
}

// EncodeClientData builds the client data JSON for an assertion over the
// given challenge nonce.
func EncodeClientData(challenge []byte, origin string) ([]byte, error) {
	cd := ClientData{
		Type:      ClientDataTypeGet,
		Challenge: base64.RawURLEncoding.EncodeToString(challenge),
		Origin:    origin,
	}
	return json.Marshal(cd)
}

// ParseClientData decodes and validates assertion client data.
func ParseClientData(data []byte) (*ClientData, error) {
	var cd ClientData
	if err := json.Unmarshal(data, &cd); err != nil {
		return nil, fmt.Errorf("client data: invalid JSON: %w", err)
	}
	if cd.Type != ClientDataTypeGet {
		return nil, fmt.Errorf("client data: type must be %q, got %q", ClientDataTypeGet, cd.Type)
	}
	if cd.Challenge == "" {
		return nil, fmt.Errorf("client data: challenge is required")
	}
	return &cd, nil
}

// ChallengeBytes decodes the embedded challenge nonce.
func (cd *ClientData) ChallengeBytes() ([]byte, error) {
	nonce, err := base64.RawURLEncoding.DecodeString(cd.Challenge)
	if err != nil {
		return nil, fmt.Errorf("client data: challenge is not base64url: %w", err)
	}
	return nonce, nil
}
