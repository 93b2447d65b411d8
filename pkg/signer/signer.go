// Package signer drives the proposal-signing state machine:
//
//	Idle → ChallengeRequested → AwaitingAssertion → Verifying → {Signed, Rejected, Expired}
//
// A failed or expired attempt requires a brand-new challenge — nonces are
// single-use by construction, so there are no silent retries across
// transitions. The only retry that exists is resubmitting the identical
// already-obtained assertion on registry transport failure, which the
// registry client performs without re-prompting the user.
package signer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sealwrite/sealwrite/pkg/authenticator"
	"github.com/sealwrite/sealwrite/pkg/proposal"
	"github.com/sealwrite/sealwrite/pkg/protocol"
	"github.com/sealwrite/sealwrite/pkg/registry"
	"github.com/sealwrite/sealwrite/pkg/store"
)

// State is a position in the signing state machine.
type State int

const (
	StateIdle State = iota
	StateChallengeRequested
	StateAwaitingAssertion
	StateVerifying
	StateSigned
	StateRejected
	StateExpired
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChallengeRequested:
		return "challenge-requested"
	case StateAwaitingAssertion:
		return "awaiting-assertion"
	case StateVerifying:
		return "verifying"
	case StateSigned:
		return "signed"
	case StateRejected:
		return "rejected"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Reason codes carried by terminal Rejected/Expired results.
const (
	ReasonUserCancelled       = "user_cancelled"
	ReasonHardwareUnavailable = "hardware_unavailable"
	ReasonCredentialNotFound  = "credential_not_found"
	ReasonPromptTimeout       = "prompt_timeout"
	ReasonChallengeExpired    = "challenge_expired"
	ReasonChallengeConsumed   = "challenge_consumed"
	ReasonSignatureMismatch   = "signature_mismatch"
	ReasonVerifierRejected    = "verifier_rejected"
	ReasonRegistryUnavailable = "registry_unavailable"
)

// ErrSigningInProgress is returned when Sign is called while an earlier call
// has an outstanding hardware prompt.
var ErrSigningInProgress = errors.New("signer: a signing flow is already in progress")

// Result is the terminal outcome of one signing attempt.
type Result struct {
	State    State
	Reason   string // reason code for Rejected/Expired, empty for Signed
	Proposal *proposal.SignedProposal
	Receipt  *protocol.ProposalResponse
}

// Signer assembles and submits signed proposals for one registered identity.
type Signer struct {
	auth    authenticator.Authenticator
	client  *registry.Client
	linkage *store.Linkage

	mu    sync.Mutex
	state State
	busy  bool
}

// New creates a signer for the identity described by linkage.
func New(auth authenticator.Authenticator, client *registry.Client, linkage *store.Linkage) *Signer {
	return &Signer{auth: auth, client: client, linkage: linkage, state: StateIdle}
}

// State returns the current state.
func (s *Signer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Signer) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Sign runs one full authorization flow for intent. On any terminal outcome
// the signer returns to a state from which a fresh Sign call starts over
// with a new challenge. The returned Result always carries the terminal
// state; err is non-nil for every outcome except Signed.
func (s *Signer) Sign(ctx context.Context, intent proposal.WriteIntent) (*Result, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrSigningInProgress
	}
	s.busy = true
	s.state = StateIdle
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	if !intent.Tier.Valid() {
		return s.reject(ReasonVerifierRejected, fmt.Errorf("invalid tier %d", intent.Tier))
	}

	digest, err := proposal.ContentDigestString(intent.Content)
	if err != nil {
		return s.reject(ReasonVerifierRejected, err)
	}

	// Idle → ChallengeRequested
	s.setState(StateChallengeRequested)
	ch, err := s.client.RequestChallenge(ctx, intent.Path, digest, int(intent.Tier))
	if err != nil {
		return s.rejectErr(err)
	}
	nonce, err := base64.StdEncoding.DecodeString(ch.Nonce)
	if err != nil {
		return s.reject(ReasonVerifierRejected, fmt.Errorf("registry returned malformed nonce: %w", err))
	}

	// ChallengeRequested → AwaitingAssertion
	s.setState(StateAwaitingAssertion)
	assertion, err := s.auth.GetAssertion(ctx, nonce, [][]byte{s.linkage.CredentialID})
	if err != nil {
		return s.rejectErr(err)
	}
	if err := authenticator.VerifyAssertionShape(assertion); err != nil {
		return s.reject(ReasonSignatureMismatch, err)
	}

	// A challenge that expired while the prompt was up cannot be submitted;
	// surface Expired locally instead of a guaranteed server rejection.
	if time.Now().After(ch.ExpiresAt) {
		s.setState(StateExpired)
		return &Result{State: StateExpired, Reason: ReasonChallengeExpired},
			protocol.ErrChallengeExpired(ch.ChallengeID)
	}

	// AwaitingAssertion → Verifying
	s.setState(StateVerifying)
	sp := &proposal.SignedProposal{
		ProposalID:        "prop_" + uuid.New().String()[:8],
		Path:              intent.Path,
		ContentDigest:     digest,
		Tier:              intent.Tier,
		Nonce:             nonce,
		CredentialID:      assertion.CredentialID,
		SignerAddress:     s.linkage.DerivedAddress,
		SignerPublicKey:   s.linkage.DerivedPublicKey,
		AuthenticatorData: assertion.AuthenticatorData,
		ClientDataJSON:    assertion.ClientDataJSON,
		Signature:         assertion.Signature,
		AssembledAt:       time.Now(),
	}

	receipt, err := s.client.SubmitProposal(ctx, &protocol.ProposalRequest{
		ChallengeID:       ch.ChallengeID,
		Nonce:             ch.Nonce,
		Path:              sp.Path,
		ContentDigest:     sp.ContentDigest,
		Content:           base64.StdEncoding.EncodeToString(intent.Content),
		Tier:              int(sp.Tier),
		CredentialID:      base64.StdEncoding.EncodeToString(sp.CredentialID),
		SignerAddress:     sp.SignerAddress,
		SignerPublicKey:   base64.StdEncoding.EncodeToString(sp.SignerPublicKey),
		AuthenticatorData: base64.StdEncoding.EncodeToString(sp.AuthenticatorData),
		ClientDataJSON:    base64.StdEncoding.EncodeToString(sp.ClientDataJSON),
		Signature:         base64.StdEncoding.EncodeToString(sp.Signature),
	})
	if err != nil {
		return s.rejectErr(err)
	}

	// Verifying → Signed
	s.setState(StateSigned)
	return &Result{State: StateSigned, Proposal: sp, Receipt: receipt}, nil
}

// rejectErr maps an error from the bridge or registry to a terminal state
// with a specific reason code. Expiry gets its own terminal state; every
// other failure lands in Rejected.
func (s *Signer) rejectErr(err error) (*Result, error) {
	switch {
	case errors.Is(err, authenticator.ErrUserCancelled):
		return s.reject(ReasonUserCancelled, err)
	case errors.Is(err, authenticator.ErrNotSupported):
		return s.reject(ReasonHardwareUnavailable, err)
	case errors.Is(err, authenticator.ErrCredentialNotFound):
		return s.reject(ReasonCredentialNotFound, err)
	case errors.Is(err, authenticator.ErrTimeout):
		return s.reject(ReasonPromptTimeout, err)
	}

	switch protocol.ErrorCode(err) {
	case protocol.ErrCodeChallengeExpired:
		s.setState(StateExpired)
		return &Result{State: StateExpired, Reason: ReasonChallengeExpired}, err
	case protocol.ErrCodeChallengeConsumed:
		return s.reject(ReasonChallengeConsumed, err)
	case protocol.ErrCodeSignatureMismatch:
		return s.reject(ReasonSignatureMismatch, err)
	case protocol.ErrCodeRegistryUnavailable:
		return s.reject(ReasonRegistryUnavailable, err)
	default:
		return s.reject(ReasonVerifierRejected, err)
	}
}

func (s *Signer) reject(reason string, err error) (*Result, error) {
	s.setState(StateRejected)
	return &Result{State: StateRejected, Reason: reason}, err
}
