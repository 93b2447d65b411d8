// Package protocol defines the wire types and error taxonomy shared by the
// registry client, the registry/verifier server, and the signing flow.
package protocol

import (
	"errors"
	"fmt"
	"net/http"
)

// Protocol error codes. Every failure the core can surface maps to exactly
// one of these; callers must never collapse them into a generic message.
const (
	ErrCodeHardwareUnavailable = "authn.hardware_unavailable"    // No platform authenticator on this device
	ErrCodeUserCancelled       = "authn.user_cancelled"          // User declined or dismissed the hardware prompt
	ErrCodePromptTimeout       = "authn.prompt_timeout"          // Hardware prompt timed out without user action
	ErrCodeCredentialNotFound  = "authn.credential_not_found"    // No registered credential matched the assertion request
	ErrCodeInvalidKeyMaterial  = "derive.invalid_key_material"   // HTTP 400 - Credential public key malformed or not on curve
	ErrCodeDuplicateCredential = "register.duplicate_credential" // HTTP 409 - Credential id already bound to a different identity
	ErrCodeInvalidProof        = "register.invalid_proof"        // HTTP 400 - Proof-of-control signature failed verification
	ErrCodeChallengeNotFound   = "challenge.not_found"           // HTTP 401 - Challenge id unknown to the verifier
	ErrCodeChallengeExpired    = "challenge.expired"             // HTTP 401 - Challenge TTL exceeded before verification
	ErrCodeChallengeConsumed   = "challenge.consumed"            // HTTP 401 - Challenge already spent by a prior valid assertion
	ErrCodeSignatureMismatch   = "proposal.signature_mismatch"   // HTTP 401 - Assertion invalid or bound to the wrong nonce/digest
	ErrCodeProposalMismatch    = "proposal.binding_mismatch"     // HTTP 400 - Submitted path/digest/tier differ from the bound intent
	ErrCodeUnknownSigner       = "proposal.unknown_signer"       // HTTP 404 - No registration for the claimed credential
	ErrCodeInvalidSession      = "session.invalid_token"         // HTTP 401 - Session token malformed, forged or expired
	ErrCodeRegistryUnavailable = "registry.unavailable"          // Transport failure; bounded retry with backoff
)

// httpStatusMap maps server-originated error codes to HTTP status codes.
// Client-local codes (hardware, transport) are absent and map to zero.
var httpStatusMap = map[string]int{
	ErrCodeInvalidKeyMaterial:  http.StatusBadRequest,
	ErrCodeDuplicateCredential: http.StatusConflict,
	ErrCodeInvalidProof:        http.StatusBadRequest,
	ErrCodeChallengeNotFound:   http.StatusUnauthorized,
	ErrCodeChallengeExpired:    http.StatusUnauthorized,
	ErrCodeChallengeConsumed:   http.StatusUnauthorized,
	ErrCodeSignatureMismatch:   http.StatusUnauthorized,
	ErrCodeProposalMismatch:    http.StatusBadRequest,
	ErrCodeUnknownSigner:       http.StatusNotFound,
	ErrCodeInvalidSession:      http.StatusUnauthorized,
}

// Error is a protocol failure with a structured machine code.
type Error struct {
	Code    string // One of the ErrCode* constants
	Message string // Human-readable description, specific to the failure
	Status  int    // HTTP status code, zero for client-local errors
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatus returns the HTTP status for this error, or 500 if the code has
// no mapping (server-side fallback; never reached for client-local codes).
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// Is matches two protocol errors by code, so callers can use errors.Is with
// the constructor results as targets.
func (e *Error) Is(target error) bool {
	var pe *Error
	if errors.As(target, &pe) {
		return pe.Code == e.Code
	}
	return false
}

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message, Status: httpStatusMap[code]}
}

// ErrHardwareUnavailable creates an error for a missing platform authenticator.
func ErrHardwareUnavailable() *Error {
	return newError(ErrCodeHardwareUnavailable, "no platform authenticator is available on this device")
}

// ErrUserCancelled creates an error for a declined or dismissed hardware prompt.
func ErrUserCancelled() *Error {
	return newError(ErrCodeUserCancelled, "the biometric prompt was cancelled")
}

// ErrPromptTimeout creates an error for a hardware prompt that timed out.
func ErrPromptTimeout() *Error {
	return newError(ErrCodePromptTimeout, "the biometric prompt timed out before the user responded")
}

// ErrCredentialNotFound creates an error for an assertion request that matched
// no registered credential on the authenticator.
func ErrCredentialNotFound() *Error {
	return newError(ErrCodeCredentialNotFound, "no registered credential matched the assertion request")
}

// ErrInvalidKeyMaterial creates an error for malformed credential key bytes.
func ErrInvalidKeyMaterial(reason string) *Error {
	return newError(ErrCodeInvalidKeyMaterial, fmt.Sprintf("invalid credential key material: %s", reason))
}

// ErrDuplicateCredential creates an error for a credential id that is already
// bound to a different derived identity.
func ErrDuplicateCredential(credentialID string) *Error {
	return newError(ErrCodeDuplicateCredential, fmt.Sprintf("credential %q is already bound to a different identity", credentialID))
}

// ErrInvalidProof creates an error for a proof-of-control signature that does
// not verify over the registration payload.
func ErrInvalidProof(reason string) *Error {
	return newError(ErrCodeInvalidProof, fmt.Sprintf("proof-of-control signature rejected: %s", reason))
}

// ErrChallengeNotFound creates an error for an unknown challenge id.
func ErrChallengeNotFound(id string) *Error {
	return newError(ErrCodeChallengeNotFound, fmt.Sprintf("challenge %q not found", id))
}

// ErrChallengeExpired creates an error for a challenge past its TTL.
func ErrChallengeExpired(id string) *Error {
	return newError(ErrCodeChallengeExpired, fmt.Sprintf("challenge %q has expired; request a fresh challenge", id))
}

// ErrChallengeConsumed creates an error for a challenge already spent by a
// prior valid assertion.
func ErrChallengeConsumed(id string) *Error {
	return newError(ErrCodeChallengeConsumed, fmt.Sprintf("challenge %q has already been consumed", id))
}

// ErrSignatureMismatch creates an error for an assertion that does not verify
// against the registered credential, or verifies over the wrong nonce/digest.
// Security-relevant: callers log this distinctly and never retry it.
func ErrSignatureMismatch(reason string) *Error {
	return newError(ErrCodeSignatureMismatch, fmt.Sprintf("assertion signature rejected: %s", reason))
}

// ErrProposalMismatch creates an error for a submission whose path, digest or
// tier differ from the intent the challenge was bound to.
func ErrProposalMismatch(field string) *Error {
	return newError(ErrCodeProposalMismatch, fmt.Sprintf("proposal %s does not match the challenged intent", field))
}

// ErrUnknownSigner creates an error for a submission whose credential id has
// no registration on file.
func ErrUnknownSigner(credentialID string) *Error {
	return newError(ErrCodeUnknownSigner, fmt.Sprintf("no registration found for credential %q", credentialID))
}

// ErrInvalidSession creates an error for a bearer session token that fails
// signature, issuer or expiry validation.
func ErrInvalidSession() *Error {
	return newError(ErrCodeInvalidSession, "session token is invalid or expired")
}

// ErrRegistryUnavailable creates an error for a registry transport failure.
// Transient: callers retry with bounded exponential backoff, then surface it.
func ErrRegistryUnavailable(err error) *Error {
	msg := "registry is unreachable"
	if err != nil {
		msg = fmt.Sprintf("registry is unreachable: %s", err.Error())
	}
	return newError(ErrCodeRegistryUnavailable, msg)
}

// ErrorCode extracts the protocol error code from an error.
// Returns empty string if the error is not a protocol Error.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsRetryable reports whether the error is transient and safe to retry.
// Only registry transport failures qualify; verification and hardware
// failures are never retried automatically.
func IsRetryable(err error) bool {
	return ErrorCode(err) == ErrCodeRegistryUnavailable
}

// FromWire reconstructs a typed protocol error from a wire error response.
// Unknown codes are preserved as-is so nothing is silently swallowed.
func FromWire(status int, code, message string) *Error {
	return &Error{Code: code, Message: message, Status: status}
}
