package api

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/sealwrite/sealwrite/pkg/audit"
	"github.com/sealwrite/sealwrite/pkg/authenticator"
	"github.com/sealwrite/sealwrite/pkg/challenge"
	"github.com/sealwrite/sealwrite/pkg/proposal"
	"github.com/sealwrite/sealwrite/pkg/protocol"
)

// handleAuthChallenge handles POST /api/v1/auth/challenge. Auth challenges
// authorize a session token, not a write, so they carry no intent binding.
func (s *Server) handleAuthChallenge(w http.ResponseWriter, r *http.Request) {
	ch, err := s.challenges.Issue(challenge.PurposeAuth, "", "", 0)
	if err != nil {
		s.writeProtocolError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, protocol.ChallengeResponse{
		ChallengeID: ch.ID,
		Nonce:       base64.StdEncoding.EncodeToString(ch.Nonce),
		ExpiresAt:   ch.ExpiresAt,
	})
}

// handleAuthVerify handles POST /api/v1/auth/verify: consume the auth
// challenge, verify the assertion against the registered credential, and
// mint a session token for the derived address.
func (s *Server) handleAuthVerify(w http.ResponseWriter, r *http.Request) {
	var req protocol.AuthVerifyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	credentialID, err := base64.StdEncoding.DecodeString(req.CredentialID)
	if err != nil || len(credentialID) == 0 {
		writeError(w, http.StatusBadRequest, "credential_id is required")
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

	// The assertion embeds the nonce; parse it out so consumption can
	// verify nonce equality before anything else is trusted.
	cd, err := authenticator.ParseClientData(clientData)
	if err != nil {
		s.denyProposal(w, reg.DerivedAddress, req.ChallengeID, protocol.ErrSignatureMismatch(err.Error()))
		return
	}
	nonce, err := cd.ChallengeBytes()
	if err != nil {
		s.denyProposal(w, reg.DerivedAddress, req.ChallengeID, protocol.ErrSignatureMismatch(err.Error()))
		return
	}

	bound, err := s.challenges.Consume(req.ChallengeID, nonce, time.Now())
	if err != nil {
		s.denyProposal(w, reg.DerivedAddress, req.ChallengeID, err)
		return
	}
	if bound.Purpose != challenge.PurposeAuth {
		s.denyProposal(w, reg.DerivedAddress, req.ChallengeID, protocol.ErrProposalMismatch("purpose"))
		return
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

	token, expiresAt, err := s.tokens.Issue(reg.DerivedAddress)
	if err != nil {
		s.writeProtocolError(w, err)
		return
	}

	s.audit.Emit(audit.Event{
		Type:  audit.EventSessionIssued,
		Actor: reg.DerivedAddress,
	})

	writeJSON(w, http.StatusOK, protocol.AuthVerifyResponse{
		Token:     token,
		Address:   reg.DerivedAddress,
		ExpiresAt: expiresAt,
	})
}

// handleSession handles GET /api/v1/session: introspect a bearer session
// token and return the derived address it was minted for.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		s.writeProtocolError(w, protocol.ErrInvalidSession())
		return
	}
	address, err := s.tokens.Verify(token)
	if err != nil {
		s.writeProtocolError(w, protocol.ErrInvalidSession())
		return
	}
	writeJSON(w, http.StatusOK, protocol.SessionResponse{Address: address})
}
