// Package authenticator wraps the platform credential API: availability
// checks, credential creation and assertion requests. It is a pure I/O
// boundary to the hardware authenticator; private key bytes never cross it —
// callers only ever see opaque signatures and public key material.
package authenticator

import (
	"context"
	"errors"
	"time"
)

// DefaultPromptTimeout is the ceiling for a user-attended hardware prompt.
// Authenticators enforce their own timeout around this value.
const DefaultPromptTimeout = 60 * time.Second

var (
	// ErrNotSupported indicates no platform authenticator exists on this device.
	ErrNotSupported = errors.New("authenticator: no platform authenticator available")

	// ErrUserCancelled indicates the user declined or dismissed the prompt.
	ErrUserCancelled = errors.New("authenticator: prompt cancelled by user")

	// ErrTimeout indicates the prompt timed out without user action.
	ErrTimeout = errors.New("authenticator: prompt timed out")

	// ErrCredentialNotFound indicates none of the allowed credential ids are
	// present on the authenticator.
	ErrCredentialNotFound = errors.New("authenticator: credential not found")

	// ErrPromptOutstanding indicates a second prompt was requested while one
	// is still pending. Callers must let the first prompt settle.
	ErrPromptOutstanding = errors.New("authenticator: a prompt is already outstanding")
)

// Attachment describes where a credential's private key lives.
type Attachment string

const (
	// AttachmentPlatform is a built-in authenticator (secure enclave, TPM).
	AttachmentPlatform Attachment = "platform"

	// AttachmentCrossPlatform is a roaming authenticator (security key).
	AttachmentCrossPlatform Attachment = "cross-platform"
)

// PublicKey is a P-256 credential public key as raw coordinates.
// Both X and Y are 32 bytes.
type PublicKey struct {
	X []byte
	Y []byte
}

// Credential is a platform-authenticator-issued keypair. The private half is
// sealed inside the authenticator and has no representation here.
type Credential struct {
	ID         []byte // opaque authenticator-assigned handle; not a secret
	PublicKey  PublicKey
	Attachment Attachment
	CreatedAt  time.Time
}

// CreateParams configures credential creation.
type CreateParams struct {
	RelyingParty    string // rp id the credential is scoped to
	UserName        string
	UserDisplayName string
	Timeout         time.Duration // zero means DefaultPromptTimeout
}

// Assertion is a signature produced by the authenticator over a challenge,
// proving possession of a previously registered credential.
type Assertion struct {
	CredentialID      []byte
	AuthenticatorData []byte // rpIdHash (32) | flags (1) | signCount (4)
	ClientDataJSON    []byte // embeds the challenge nonce
	Signature         []byte // DER ECDSA P-256 over AuthenticatorData || SHA-256(ClientDataJSON)
}

// Authenticator is the contract for a platform credential provider.
// All three operations are user-visible device prompts except IsAvailable,
// which has no side effects and is safe to poll.
type Authenticator interface {
	// IsAvailable reports whether a platform authenticator is usable right
	// now. Callers check this at flow start every time; availability is never
	// cached across flows because it can change mid-session.
	IsAvailable(ctx context.Context) bool

	// CreateCredential triggers a hardware user-presence/biometric prompt and
	// mints a new credential. Fails with ErrUserCancelled or ErrTimeout if
	// the user does not complete the prompt, ErrNotSupported if no platform
	// authenticator exists.
	CreateCredential(ctx context.Context, params CreateParams) (*Credential, error)

	// GetAssertion triggers a hardware prompt scoped to previously registered
	// credentials and signs the challenge. Fails with ErrUserCancelled,
	// ErrCredentialNotFound or ErrTimeout.
	GetAssertion(ctx context.Context, challenge []byte, allowedIDs [][]byte) (*Assertion, error)
}
