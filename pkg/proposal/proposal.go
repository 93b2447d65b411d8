// Package proposal defines write proposals and verifies biometric-signed
// proposal envelopes. Content is addressed by CIDv1 digests so a proposal
// commits to exact bytes, and verification binds the assertion signature to
// the credential key, the issued nonce, and the challenged intent — a valid
// signature over any other nonce or a tampered path/content/tier is
// rejected, which is what prevents signature reuse across proposals.
package proposal

import (
	"fmt"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Tier is the payment/priority tier a write is submitted under. Tier
// economics live in the payment contract; the protocol only binds the value.
type Tier int

const (
	TierStandard  Tier = 0
	TierPriority  Tier = 1
	TierPermanent Tier = 2
)

// String returns a human-readable tier name.
func (t Tier) String() string {
	switch t {
	case TierStandard:
		return "standard"
	case TierPriority:
		return "priority"
	case TierPermanent:
		return "permanent"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Valid reports whether the tier is one the protocol accepts.
func (t Tier) Valid() bool {
	return t >= TierStandard && t <= TierPermanent
}

// WriteIntent is a caller-supplied proposed write before any challenge or
// signature exists.
type WriteIntent struct {
	Path    string
	Content []byte
	Tier    Tier
}

// SignedProposal is the finished, verifiable envelope authorizing one
// specific content write at one specific tier. Immutable once assembled.
type SignedProposal struct {
	ProposalID    string
	Path          string
	ContentDigest string // CIDv1
	Tier          Tier
	Nonce         []byte // consumed challenge nonce

	CredentialID        []byte
	CredentialPublicKey []byte // uncompressed SEC1 P-256 point
	SignerAddress       string // derived ledger address
	SignerPublicKey     []byte // compressed secp256k1 point

	AuthenticatorData []byte
	ClientDataJSON    []byte
	Signature         []byte

	AssembledAt time.Time
}

// ContentDigest computes the content-addressed digest for proposal content:
// a CIDv1 with the raw codec over SHA2-256. Deterministic; the same bytes
// always produce the same CID.
func ContentDigest(content []byte) (cid.Cid, error) {
	mh, err := multihash.Sum(content, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, fmt.Errorf("failed to hash content: %w", err)
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// ContentDigestString is ContentDigest rendered as the canonical CID string.
func ContentDigestString(content []byte) (string, error) {
	c, err := ContentDigest(content)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

// ParseDigest validates a digest string is a well-formed CID.
func ParseDigest(s string) (cid.Cid, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, fmt.Errorf("invalid content digest: %w", err)
	}
	return c, nil
}
