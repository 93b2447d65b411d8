package api

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sealwrite/sealwrite/pkg/audit"
	"github.com/sealwrite/sealwrite/pkg/derive"
	"github.com/sealwrite/sealwrite/pkg/protocol"
	"github.com/sealwrite/sealwrite/pkg/store"
	"github.com/sealwrite/sealwrite/pkg/wallet"
)

// handleRegister handles POST /api/v1/register. The server independently
// re-derives the identity from the submitted credential public key — the
// client's claimed address is checked, never trusted — and verifies the
// proof-of-control signature over the exact registration payload bytes.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req protocol.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	credentialID, err := base64.StdEncoding.DecodeString(req.CredentialID)
	if err != nil || len(credentialID) == 0 {
		writeError(w, http.StatusBadRequest, "credential_id is required")
		return
	}
	credentialKey, err := base64.StdEncoding.DecodeString(req.CredentialPublicKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, "credential_public_key is required")
		return
	}
	derivedKey, err := base64.StdEncoding.DecodeString(req.DerivedPublicKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, "derived_public_key is required")
		return
	}
	proofKey, err := base64.StdEncoding.DecodeString(req.ProofPublicKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, "proof_public_key is required")
		return
	}
	proofSig, err := base64.StdEncoding.DecodeString(req.ProofSignature)
	if err != nil {
		writeError(w, http.StatusBadRequest, "proof_signature is required")
		return
	}
	if req.DeviceLabel == "" {
		writeError(w, http.StatusBadRequest, "device_label is required")
		return
	}

	// The linkage is public-computable: recompute it and refuse mismatches.
	identity, err := derive.DeriveIdentity(credentialKey)
	if err != nil {
		s.writeProtocolError(w, err)
		return
	}
	if identity.Address != req.DerivedAddress {
		s.writeProtocolError(w, protocol.ErrInvalidProof("claimed derived address does not match the credential public key"))
		return
	}
	if !bytes.Equal(derivedKey, identity.PublicKey) {
		s.writeProtocolError(w, protocol.ErrInvalidProof("claimed derived public key does not match the credential public key"))
		return
	}

	payload := protocol.RegistrationSigningPayload(credentialID, derivedKey, req.DeviceLabel)
	if err := wallet.VerifySignature(proofKey, req.ProofSigner, payload, proofSig); err != nil {
		s.audit.Emit(audit.Event{
			Type:   audit.EventRegistrationDenied,
			Actor:  req.ProofSigner,
			Target: req.DerivedAddress,
			Reason: protocol.ErrCodeInvalidProof,
		})
		s.writeProtocolError(w, protocol.ErrInvalidProof(err.Error()))
		return
	}

	reg, err := s.store.CreateRegistration(&store.Registration{
		ID:                  "reg_" + uuid.New().String()[:UUIDShortLength],
		CredentialID:        credentialID,
		CredentialPublicKey: credentialKey,
		DerivedAddress:      identity.Address,
		DerivedPublicKey:    derivedKey,
		DeviceLabel:         req.DeviceLabel,
		ProofSigner:         req.ProofSigner,
		ProofSignature:      proofSig,
		CreatedAt:           time.Now(),
	})
	if err != nil {
		if protocol.ErrorCode(err) == protocol.ErrCodeDuplicateCredential {
			s.audit.Emit(audit.Event{
				Type:   audit.EventRegistrationDenied,
				Actor:  req.ProofSigner,
				Target: req.DerivedAddress,
				Reason: protocol.ErrCodeDuplicateCredential,
			})
		}
		s.writeProtocolError(w, err)
		return
	}

	s.audit.Emit(audit.Event{
		Type:   audit.EventRegistration,
		Actor:  reg.DerivedAddress,
		Target: reg.ID,
	})

	writeJSON(w, http.StatusCreated, protocol.RegisterResponse{
		RegistrationID:   reg.ID,
		CredentialID:     req.CredentialID,
		DerivedAddress:   reg.DerivedAddress,
		DerivedPublicKey: req.DerivedPublicKey,
		DeviceLabel:      reg.DeviceLabel,
		CreatedAt:        reg.CreatedAt,
	})
}
