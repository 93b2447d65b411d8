package store

import (
	"database/sql"
	"fmt"
	"time"
)

// AcceptedProposal is the durable acceptance receipt for a verified write.
type AcceptedProposal struct {
	ID            string
	Path          string
	ContentDigest string
	Tier          int
	SignerAddress string
	AcceptedAt    time.Time
}

// RecordAcceptedProposal persists an acceptance receipt.
func (s *Store) RecordAcceptedProposal(p *AcceptedProposal) error {
	_, err := s.db.Exec(
		`INSERT INTO accepted_proposals (id, path, content_digest, tier, signer_address, accepted_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Path, p.ContentDigest, p.Tier, p.SignerAddress, p.AcceptedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record accepted proposal: %w", err)
	}
	return nil
}

// GetAcceptedProposal retrieves an acceptance receipt by proposal id.
// Returns nil if none exists.
func (s *Store) GetAcceptedProposal(id string) (*AcceptedProposal, error) {
	row := s.db.QueryRow(
		`SELECT id, path, content_digest, tier, signer_address, accepted_at
		 FROM accepted_proposals WHERE id = ?`, id)

	var p AcceptedProposal
	var acceptedAt int64
	err := row.Scan(&p.ID, &p.Path, &p.ContentDigest, &p.Tier, &p.SignerAddress, &acceptedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get accepted proposal: %w", err)
	}
	p.AcceptedAt = time.Unix(acceptedAt, 0)
	return &p, nil
}
