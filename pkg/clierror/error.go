// Package clierror provides structured errors for CLI output with codes,
// exit codes, and remediation hints.
package clierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sealwrite/sealwrite/pkg/authenticator"
	"github.com/sealwrite/sealwrite/pkg/protocol"
)

// Exit codes for sealctl commands.
const (
	ExitSuccess     = 0 // Operation completed successfully
	ExitGeneral     = 1 // Unknown/unhandled error
	ExitAuth        = 2 // Biometric prompt failed or no authenticator
	ExitChallenge   = 3 // Challenge expired or already consumed
	ExitNotFound    = 4 // Resource doesn't exist
	ExitUnavailable = 5 // Registry unreachable
)

// Error codes (strings) for programmatic error handling
const (
	CodeBiometricUnavailable = "BIOMETRIC_UNAVAILABLE"
	CodePromptCancelled      = "PROMPT_CANCELLED"
	CodePromptTimeout        = "PROMPT_TIMEOUT"
	CodeCredentialNotFound   = "CREDENTIAL_NOT_FOUND"
	CodeNotRegistered        = "NOT_REGISTERED"
	CodeChallengeExpired     = "CHALLENGE_EXPIRED"
	CodeChallengeConsumed    = "CHALLENGE_CONSUMED"
	CodeSignatureMismatch    = "SIGNATURE_MISMATCH"
	CodeDuplicateCredential  = "DUPLICATE_CREDENTIAL"
	CodeSessionInvalid       = "SESSION_INVALID"
	CodeRegistryUnreachable  = "REGISTRY_UNREACHABLE"
	CodeInternalError        = "INTERNAL_ERROR"
)

// CLIError represents a structured error for CLI output.
type CLIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Hint      string `json:"hint,omitempty"`
	Retryable bool   `json:"retryable"`
	ExitCode  int    `json:"-"` // Not serialized, used for os.Exit
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	return e.Message
}

// BiometricUnavailable creates an error for a missing platform authenticator.
func BiometricUnavailable() *CLIError {
	return &CLIError{
		Code:      CodeBiometricUnavailable,
		Message:   "no platform authenticator is available on this device",
		Hint:      "Biometric hardware is required; check that it is enabled in system settings",
		Retryable: false,
		ExitCode:  ExitAuth,
	}
}

// PromptCancelled creates an error for a declined biometric prompt.
func PromptCancelled() *CLIError {
	return &CLIError{
		Code:      CodePromptCancelled,
		Message:   "the biometric prompt was cancelled",
		Hint:      "Re-run the command and complete the prompt to authorize",
		Retryable: true,
		ExitCode:  ExitAuth,
	}
}

// PromptTimeout creates an error for a biometric prompt that timed out.
func PromptTimeout() *CLIError {
	return &CLIError{
		Code:      CodePromptTimeout,
		Message:   "the biometric prompt timed out",
		Hint:      "Re-run the command and respond to the prompt",
		Retryable: true,
		ExitCode:  ExitAuth,
	}
}

// CredentialNotFound creates an error when the authenticator has no matching
// credential.
func CredentialNotFound() *CLIError {
	return &CLIError{
		Code:      CodeCredentialNotFound,
		Message:   "no registered credential found on this authenticator",
		Hint:      "Register this device with 'sealctl register' first",
		Retryable: false,
		ExitCode:  ExitNotFound,
	}
}

// NotRegistered creates an error when the device has no cached registration.
func NotRegistered() *CLIError {
	return &CLIError{
		Code:      CodeNotRegistered,
		Message:   "this device has no registered identity",
		Hint:      "Run 'sealctl register' to create one",
		Retryable: false,
		ExitCode:  ExitNotFound,
	}
}

// ChallengeExpired creates an error for a challenge past its TTL.
func ChallengeExpired() *CLIError {
	return &CLIError{
		Code:      CodeChallengeExpired,
		Message:   "the signing challenge expired before the prompt completed",
		Hint:      "Re-run the command to request a fresh challenge",
		Retryable: true,
		ExitCode:  ExitChallenge,
	}
}

// ChallengeConsumed creates an error for a challenge that was already spent.
func ChallengeConsumed() *CLIError {
	return &CLIError{
		Code:      CodeChallengeConsumed,
		Message:   "the signing challenge was already used",
		Hint:      "Re-run the command to request a fresh challenge",
		Retryable: true,
		ExitCode:  ExitChallenge,
	}
}

// SignatureMismatch creates an error for an assertion the verifier rejected.
func SignatureMismatch(reason string) *CLIError {
	return &CLIError{
		Code:      CodeSignatureMismatch,
		Message:   fmt.Sprintf("the verifier rejected the assertion: %s", reason),
		Hint:      "If this repeats, the cached registration may be stale; re-register the device",
		Retryable: false,
		ExitCode:  ExitAuth,
	}
}

// DuplicateCredential creates an error when the credential is already bound
// to a different identity.
func DuplicateCredential() *CLIError {
	return &CLIError{
		Code:      CodeDuplicateCredential,
		Message:   "this credential is already registered to a different identity",
		Retryable: false,
		ExitCode:  ExitGeneral,
	}
}

// SessionInvalid creates an error for a session token the registry rejected.
func SessionInvalid() *CLIError {
	return &CLIError{
		Code:      CodeSessionInvalid,
		Message:   "the session token is invalid or expired",
		Hint:      "Run 'sealctl login' to mint a fresh session token",
		Retryable: false,
		ExitCode:  ExitAuth,
	}
}

// RegistryUnreachable creates an error for registry transport failures.
func RegistryUnreachable(target string) *CLIError {
	return &CLIError{
		Code:      CodeRegistryUnreachable,
		Message:   fmt.Sprintf("failed to reach the registry at '%s'", target),
		Hint:      "Check network connectivity and the --registry address",
		Retryable: true,
		ExitCode:  ExitUnavailable,
	}
}

// InternalError creates an error for unexpected internal errors.
func InternalError(err error) *CLIError {
	msg := "an unexpected internal error occurred"
	if err != nil {
		msg = fmt.Sprintf("internal error: %s", err.Error())
	}
	return &CLIError{
		Code:      CodeInternalError,
		Message:   msg,
		Retryable: false,
		ExitCode:  ExitGeneral,
	}
}

// FromError maps bridge and protocol errors onto CLI errors with hints.
// Already-structured CLI errors pass through unchanged.
func FromError(err error, registryURL string) *CLIError {
	var ce *CLIError
	if errors.As(err, &ce) {
		return ce
	}

	switch {
	case errors.Is(err, authenticator.ErrNotSupported):
		return BiometricUnavailable()
	case errors.Is(err, authenticator.ErrUserCancelled):
		return PromptCancelled()
	case errors.Is(err, authenticator.ErrTimeout):
		return PromptTimeout()
	case errors.Is(err, authenticator.ErrCredentialNotFound):
		return CredentialNotFound()
	}

	switch protocol.ErrorCode(err) {
	case protocol.ErrCodeHardwareUnavailable:
		return BiometricUnavailable()
	case protocol.ErrCodeChallengeExpired:
		return ChallengeExpired()
	case protocol.ErrCodeChallengeConsumed, protocol.ErrCodeChallengeNotFound:
		return ChallengeConsumed()
	case protocol.ErrCodeSignatureMismatch, protocol.ErrCodeInvalidProof:
		return SignatureMismatch(err.Error())
	case protocol.ErrCodeDuplicateCredential:
		return DuplicateCredential()
	case protocol.ErrCodeInvalidSession:
		return SessionInvalid()
	case protocol.ErrCodeRegistryUnavailable:
		return RegistryUnreachable(registryURL)
	}

	return InternalError(err)
}

// FormatError returns the error formatted for the given output format.
// Supported formats: "json" for JSON output, anything else for human-readable format.
func FormatError(err *CLIError, outputFormat string) string {
	if outputFormat == "json" {
		data, jsonErr := json.MarshalIndent(err, "", "  ")
		if jsonErr != nil {
			// Fallback to simple JSON if marshaling fails
			return fmt.Sprintf(`{"code":"%s","message":"%s"}`, err.Code, err.Message)
		}
		return string(data)
	}

	output := fmt.Sprintf("Error [%s]: %s", err.Code, err.Message)
	if err.Hint != "" {
		output += fmt.Sprintf("\nHint: %s", err.Hint)
	}
	return output
}

// PrintError prints the error to stderr in the appropriate format.
func PrintError(err *CLIError, outputFormat string) {
	fmt.Fprintln(os.Stderr, FormatError(err, outputFormat))
}
