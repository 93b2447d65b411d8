package api

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sealwrite/sealwrite/pkg/audit"
	"github.com/sealwrite/sealwrite/pkg/authenticator"
	"github.com/sealwrite/sealwrite/pkg/proposal"
	"github.com/sealwrite/sealwrite/pkg/protocol"
	"github.com/sealwrite/sealwrite/pkg/store"
)

// handleSubmitProposal handles POST /api/v1/proposals.
//
// Verification order matters: the challenge is consumed first (so a replay
// of a fully valid envelope still fails with ChallengeConsumed), then the
// binding to the challenged intent is checked, then the assertion signature
// against the registered credential key. The credential public key always
// comes from the registration record, never from the submission.
func (s *Server) handleSubmitProposal(w http.ResponseWriter, r *http.Request) {
	var req protocol.ProposalRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	credentialID, err := base64.StdEncoding.DecodeString(req.CredentialID)
	if err != nil || len(credentialID) == 0 {
		writeError(w, http.StatusBadRequest, "credential_id is required")
		return
	}
	nonce, err := base64.StdEncoding.DecodeString(req.Nonce)
	if err != nil {
		writeError(w, http.StatusBadRequest, "nonce is required")
		return
	}
	authData, err := base64.StdEncoding.DecodeString(req.AuthenticatorData)
	if err != nil {
		writeError(w, http.StatusBadRequest, "authenticator_data is required")
		return
	}
	clientData, err := base64.StdEncoding.DecodeString(req.ClientDataJSON)
	if err != nil {
		writeError(w, http.StatusBadRequest, "client_data_json is required")
		return
	}
	sig, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, "signature is required")
		return
	}

	reg, err := s.store.GetRegistrationByCredentialID(credentialID)
	if err != nil {
		s.writeProtocolError(w, err)
		return
	}
	if reg == nil {
		s.writeProtocolError(w, protocol.ErrUnknownSigner(req.CredentialID))
		return
	}

	// Claimed signer fields are cross-checked against the registration, not
	// trusted. Checked before consumption so a mismatched claim does not
	// burn the challenge.
	if req.SignerAddress != reg.DerivedAddress {
		s.denyProposal(w, reg.DerivedAddress, req.ChallengeID, protocol.ErrProposalMismatch("signer address"))
		return
	}
	signerKey, err := base64.StdEncoding.DecodeString(req.SignerPublicKey)
	if err != nil || !bytes.Equal(signerKey, reg.DerivedPublicKey) {
		s.denyProposal(w, reg.DerivedAddress, req.ChallengeID, protocol.ErrProposalMismatch("signer public key"))
		return
	}

	now := time.Now()
	bound, err := s.challenges.Consume(req.ChallengeID, nonce, now)
	if err != nil {
		s.denyProposal(w, reg.DerivedAddress, req.ChallengeID, err)
		return
	}

	sp := &proposal.SignedProposal{
		Path:          req.Path,
		ContentDigest: req.ContentDigest,
		Tier:          proposal.Tier(req.Tier),
	}
	if err := proposal.VerifyBinding(sp, bound); err != nil {
		s.denyProposal(w, reg.DerivedAddress, req.ChallengeID, err)
		return
	}

	// When content bytes ride along, the digest is recomputed rather than
	// trusted; one flipped byte after signing fails here.
	if req.Content != "" {
		content, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			writeError(w, http.StatusBadRequest, "content is not valid base64")
			return
		}
		if err := proposal.VerifyContent(content, req.ContentDigest); err != nil {
			s.denyProposal(w, reg.DerivedAddress, req.ChallengeID, err)
			return
		}
	}

	credentialKey, err := authenticator.PublicKeyFromSEC1(reg.CredentialPublicKey)
	if err != nil {
		s.writeProtocolError(w, protocol.ErrInvalidKeyMaterial(err.Error()))
		return
	}
	if err := proposal.VerifyAssertion(credentialKey, authData, clientData, sig, bound.Nonce); err != nil {
		s.denyProposal(w, reg.DerivedAddress, req.ChallengeID, err)
		return
	}

	accepted := &store.AcceptedProposal{
		ID:            "prop_" + uuid.New().String()[:UUIDShortLength],
		Path:          bound.Path,
		ContentDigest: bound.ContentDigest,
		Tier:          bound.Tier,
		SignerAddress: reg.DerivedAddress,
		AcceptedAt:    now,
	}
	if err := s.store.RecordAcceptedProposal(accepted); err != nil {
		s.writeProtocolError(w, err)
		return
	}

	s.audit.Emit(audit.Event{
		Type:   audit.EventProposalAccepted,
		Actor:  reg.DerivedAddress,
		Target: accepted.Path,
	})

	writeJSON(w, http.StatusOK, protocol.ProposalResponse{
		ProposalID:    accepted.ID,
		Status:        "accepted",
		Path:          accepted.Path,
		ContentDigest: accepted.ContentDigest,
		Tier:          accepted.Tier,
		SignerAddress: accepted.SignerAddress,
		AcceptedAt:    accepted.AcceptedAt,
	})
}

// denyProposal audits and writes a proposal rejection. Signature mismatches
// are security-relevant and get their own audit event type.
func (s *Server) denyProposal(w http.ResponseWriter, actor, target string, err error) {
	eventType := audit.EventProposalDenied
	if protocol.ErrorCode(err) == protocol.ErrCodeSignatureMismatch {
		eventType = audit.EventSignatureMismatch
	}
	s.audit.Emit(audit.Event{
		Type:   eventType,
		Actor:  actor,
		Target: target,
		Reason: protocol.ErrorCode(err),
	})
	s.writeProtocolError(w, err)
}
