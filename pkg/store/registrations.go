package store

import (
	"bytes"
	"database/sql"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/sealwrite/sealwrite/pkg/protocol"
)

// Registration links a credential to its derived identity and device
// metadata, with the proof-of-control signature that authorized the binding.
type Registration struct {
	ID                  string
	CredentialID        []byte
	CredentialPublicKey []byte // uncompressed SEC1 P-256 point
	DerivedAddress      string
	DerivedPublicKey    []byte // compressed secp256k1 point
	DeviceLabel         string
	ProofSigner         string // wallet address that signed the registration payload
	ProofSignature      []byte
	CreatedAt           time.Time
}

// CreateRegistration persists a registration. Registration is idempotent on
// credential id: re-registering the same credential for the same derived
// address returns the existing record; the same credential bound to a
// different identity fails with DuplicateCredential.
func (s *Store) CreateRegistration(reg *Registration) (*Registration, error) {
	existing, err := s.GetRegistrationByCredentialID(reg.CredentialID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.DerivedAddress == reg.DerivedAddress && bytes.Equal(existing.CredentialID, reg.CredentialID) {
			return existing, nil
		}
		return nil, protocol.ErrDuplicateCredential(base64.StdEncoding.EncodeToString(reg.CredentialID))
	}

	_, err = s.db.Exec(
		`INSERT INTO registrations (id, credential_id, credential_public_key, derived_address, derived_public_key, device_label, proof_signer, proof_signature, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reg.ID, reg.CredentialID, reg.CredentialPublicKey, reg.DerivedAddress,
		reg.DerivedPublicKey, reg.DeviceLabel, reg.ProofSigner, reg.ProofSignature,
		reg.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}
	return reg, nil
}

// GetRegistrationByCredentialID retrieves a registration by credential id.
// Returns nil if none exists.
func (s *Store) GetRegistrationByCredentialID(credentialID []byte) (*Registration, error) {
	return s.scanRegistration(s.db.QueryRow(
		`SELECT id, credential_id, credential_public_key, derived_address, derived_public_key, device_label, proof_signer, proof_signature, created_at
		 FROM registrations WHERE credential_id = ?`, credentialID))
}

// GetRegistrationByAddress retrieves a registration by derived address.
// Returns nil if none exists.
func (s *Store) GetRegistrationByAddress(address string) (*Registration, error) {
	return s.scanRegistration(s.db.QueryRow(
		`SELECT id, credential_id, credential_public_key, derived_address, derived_public_key, device_label, proof_signer, proof_signature, created_at
		 FROM registrations WHERE derived_address = ?`, address))
}

func (s *Store) scanRegistration(row *sql.Row) (*Registration, error) {
	var reg Registration
	var createdAt int64
	err := row.Scan(&reg.ID, &reg.CredentialID, &reg.CredentialPublicKey,
		&reg.DerivedAddress, &reg.DerivedPublicKey, &reg.DeviceLabel,
		&reg.ProofSigner, &reg.ProofSignature, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	reg.CreatedAt = time.Unix(createdAt, 0)
	return &reg, nil
}
