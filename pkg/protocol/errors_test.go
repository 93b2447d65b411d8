package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorCodesMapToStatuses(t *testing.T) {
	tests := []struct {
		err    *Error
		status int
	}{
		{ErrInvalidKeyMaterial("bad point"), http.StatusBadRequest},
		{ErrDuplicateCredential("abc"), http.StatusConflict},
		{ErrInvalidProof("no"), http.StatusBadRequest},
		{ErrChallengeNotFound("chal_x"), http.StatusUnauthorized},
		{ErrChallengeExpired("chal_x"), http.StatusUnauthorized},
		{ErrChallengeConsumed("chal_x"), http.StatusUnauthorized},
		{ErrSignatureMismatch("nope"), http.StatusUnauthorized},
		{ErrProposalMismatch("path"), http.StatusBadRequest},
		{ErrUnknownSigner("abc"), http.StatusNotFound},
		{ErrInvalidSession(), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		if got := tt.err.HTTPStatus(); got != tt.status {
			t.Errorf("%s: HTTPStatus() = %d, want %d", tt.err.Code, got, tt.status)
		}
	}
}

func TestClientLocalErrorsHaveNoWireStatus(t *testing.T) {
	for _, e := range []*Error{ErrHardwareUnavailable(), ErrUserCancelled(), ErrPromptTimeout(), ErrRegistryUnavailable(nil)} {
		if e.Status != 0 {
			t.Errorf("%s: client-local error carries wire status %d", e.Code, e.Status)
		}
	}
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", ErrChallengeConsumed("chal_a"))

	if !errors.Is(wrapped, ErrChallengeConsumed("chal_b")) {
		t.Error("errors.Is must match by code regardless of message")
	}
	if errors.Is(wrapped, ErrChallengeExpired("chal_a")) {
		t.Error("errors.Is must not match a different code")
	}
}

func TestErrorCode(t *testing.T) {
	if got := ErrorCode(fmt.Errorf("wrap: %w", ErrUnknownSigner("x"))); got != ErrCodeUnknownSigner {
		t.Errorf("ErrorCode through wrapping = %q", got)
	}
	if got := ErrorCode(errors.New("plain")); got != "" {
		t.Errorf("ErrorCode for non-protocol error = %q, want empty", got)
	}
	if got := ErrorCode(nil); got != "" {
		t.Errorf("ErrorCode(nil) = %q, want empty", got)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(ErrRegistryUnavailable(errors.New("refused"))) {
		t.Error("transport failures must be retryable")
	}
	for _, e := range []error{
		ErrSignatureMismatch("no"),
		ErrChallengeConsumed("chal_x"),
		ErrUserCancelled(),
		errors.New("plain"),
	} {
		if IsRetryable(e) {
			t.Errorf("%v must not be retryable", e)
		}
	}
}

func TestFromWirePreservesUnknownCodes(t *testing.T) {
	e := FromWire(http.StatusTeapot, "future.code", "something new")
	if e.Code != "future.code" || e.Status != http.StatusTeapot {
		t.Errorf("unknown wire code was not preserved: %+v", e)
	}
}

func TestRegistrationSigningPayload_FieldBoundaries(t *testing.T) {
	payload := RegistrationSigningPayload([]byte{0xAA, 0xBB}, []byte{0xCC}, "dev")

	// 3 length prefixes + 2 + 1 + 3 bytes of content
	if len(payload) != 12+6 {
		t.Fatalf("payload length = %d, want %d", len(payload), 18)
	}
	if binary.BigEndian.Uint32(payload[:4]) != 2 {
		t.Error("first length prefix wrong")
	}

	t.Log("Shifting bytes between fields must change the payload")
	shifted := RegistrationSigningPayload([]byte{0xAA}, []byte{0xBB, 0xCC}, "dev")
	if string(shifted) == string(payload) {
		t.Error("field boundaries are not committed; payloads collide")
	}
}
