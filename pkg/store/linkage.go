// Client-side linkage cache: the non-secret identifiers persisted locally
// after a successful registration, so a device can sign again without
// re-registering. Keyed by derived address.
package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Linkage is the locally cached credential-to-identity binding. Every field
// is public; losing this cache costs a re-derivation, not a secret.
type Linkage struct {
	DerivedAddress   string
	CredentialID     []byte
	DerivedPublicKey []byte
	DeviceLabel      string
	CreatedAt        time.Time
}

// SaveLinkage upserts the linkage for its derived address.
func (s *Store) SaveLinkage(l *Linkage) error {
	_, err := s.db.Exec(
		`INSERT INTO linkages (derived_address, credential_id, derived_public_key, device_label, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(derived_address) DO UPDATE SET
		   credential_id = excluded.credential_id,
		   derived_public_key = excluded.derived_public_key,
		   device_label = excluded.device_label`,
		l.DerivedAddress, l.CredentialID, l.DerivedPublicKey, l.DeviceLabel, l.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save linkage: %w", err)
	}
	return nil
}

// GetLinkage retrieves the linkage for a derived address.
// Returns nil if none exists.
func (s *Store) GetLinkage(address string) (*Linkage, error) {
	return s.scanLinkage(s.db.QueryRow(
		`SELECT derived_address, credential_id, derived_public_key, device_label, created_at
		 FROM linkages WHERE derived_address = ?`, address))
}

// ActiveLinkage returns the most recently saved linkage, or nil if the
// device has no registration on file.
func (s *Store) ActiveLinkage() (*Linkage, error) {
	return s.scanLinkage(s.db.QueryRow(
		`SELECT derived_address, credential_id, derived_public_key, device_label, created_at
		 FROM linkages ORDER BY created_at DESC LIMIT 1`))
}

// DeleteLinkage removes the linkage for a derived address. Idempotent.
func (s *Store) DeleteLinkage(address string) error {
	if _, err := s.db.Exec(`DELETE FROM linkages WHERE derived_address = ?`, address); err != nil {
		return fmt.Errorf("failed to delete linkage: %w", err)
	}
	return nil
}

func (s *Store) scanLinkage(row *sql.Row) (*Linkage, error) {
	var l Linkage
	var createdAt int64
	err := row.Scan(&l.DerivedAddress, &l.CredentialID, &l.DerivedPublicKey, &l.DeviceLabel, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get linkage: %w", err)
	}
	l.CreatedAt = time.Unix(createdAt, 0)
	return &l, nil
}
