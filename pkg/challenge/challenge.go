// Package challenge mints and consumes single-use challenges. A challenge
// binds one random nonce to one proposed write (path, content digest, tier);
// it can be consumed by at most one valid assertion and is rejected after
// its TTL elapses. Expired or consumed challenges are never revived — the
// caller restarts with a fresh one.
package challenge

import (
	"crypto/rand"
	"fmt"
	"time"
)

// NonceSize is the number of bytes in a generated challenge nonce.
const NonceSize = 32

// DefaultTTL is the time window during which a challenge is valid.
const DefaultTTL = 5 * time.Minute

// Purpose distinguishes what a challenge authorizes.
type Purpose string

const (
	// PurposeProposal authorizes one content write.
	PurposeProposal Purpose = "proposal"

	// PurposeAuth authorizes minting one session token.
	PurposeAuth Purpose = "auth"
)

// Challenge is a server-issued, single-use random value bound to a specific
// proposed write. Immutable after issuance.
type Challenge struct {
	ID            string
	Nonce         []byte
	Purpose       Purpose
	Path          string
	ContentDigest string // CIDv1 string; empty for auth challenges
	Tier          int
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// GenerateNonce generates a cryptographically random nonce.
// Uses crypto/rand; never math/rand.
func GenerateNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate challenge nonce: %w", err)
	}
	return nonce, nil
}

// IsExpired checks whether the challenge has exceeded its TTL.
// Pass time.Now() at the callsite rather than calling it internally, so
// verification paths evaluate expiry at one consistent instant.
func (c *Challenge) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
