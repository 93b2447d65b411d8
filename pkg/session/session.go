// Package session governs where key material is allowed to live. Three
// retention tiers, with different leakage consequences:
//
//  1. Hardware-sealed private material never exists outside the
//     authenticator and is unrepresentable here — any attempt to store it
//     is a programming error and is rejected.
//  2. Session-scoped material (the derived private scalar, session tokens)
//     lives only in process memory and is wiped when the session ends.
//  3. Persistent-public material (credential ids, derived addresses and
//     public keys, device labels) may be written to durable local storage;
//     that path goes through pkg/store, never through this package.
//
// Writing a derived private scalar to durable storage is the single most
// consequence-bearing failure this design exists to prevent; the tier model
// makes it unexpressible rather than merely discouraged.
package session

import (
	"fmt"
	"sync"
)

// Tier classifies where a value is allowed to live.
type Tier int

const (
	// TierHardware marks material sealed inside the authenticator.
	TierHardware Tier = iota

	// TierSession marks material held in memory for one session only.
	TierSession

	// TierDurable marks non-secret public identifiers.
	TierDurable
)

// Kind identifies a stored value and fixes its retention tier.
type Kind string

const (
	// KindCredentialPrivateKey exists only to make the hardware tier
	// explicit; it can never be put into any store.
	KindCredentialPrivateKey Kind = "credential-private-key"

	// KindDerivedScalar is the derived ledger private key, cached for
	// repeated signing within one session.
	KindDerivedScalar Kind = "derived-scalar"

	// KindSessionToken is a registry-issued session JWT.
	KindSessionToken Kind = "session-token"

	// KindCredentialID is the opaque authenticator credential handle.
	KindCredentialID Kind = "credential-id"

	// KindDerivedAddress is the derived ledger address.
	KindDerivedAddress Kind = "derived-address"

	// KindDerivedPublicKey is the derived ledger public key.
	KindDerivedPublicKey Kind = "derived-public-key"

	// KindDeviceLabel is the human-readable device label.
	KindDeviceLabel Kind = "device-label"
)

// tierOf fixes the retention tier per kind. Unknown kinds default to the
// session tier: holding something unexpected in memory is recoverable,
// persisting it is not.
func tierOf(kind Kind) Tier {
	switch kind {
	case KindCredentialPrivateKey:
		return TierHardware
	case KindDerivedScalar, KindSessionToken:
		return TierSession
	case KindCredentialID, KindDerivedAddress, KindDerivedPublicKey, KindDeviceLabel:
		return TierDurable
	default:
		return TierSession
	}
}

// TierOf reports the retention tier for a kind.
func TierOf(kind Kind) Tier { return tierOf(kind) }

// Store is the session-scoped value store. Everything in it is discarded
// when the session ends; nothing in it ever reaches disk.
type Store struct {
	mu     sync.Mutex
	values map[Kind][]byte
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{values: make(map[Kind][]byte)}
}

// Put stores a copy of value under kind. Hardware-tier kinds are rejected:
// that material must not exist in this process at all.
func (s *Store) Put(kind Kind, value []byte) error {
	if tierOf(kind) == TierHardware {
		return fmt.Errorf("session: refusing to store hardware-sealed material %q", kind)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.values[kind] = cp
	return nil
}

// Get returns a copy of the value for kind, or nil if absent.
func (s *Store) Get(kind Kind) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[kind]
	if !ok {
		return nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp
}

// Clear wipes and removes the value for kind.
func (s *Store) Clear(kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wipeLocked(kind)
}

// ClearAll wipes every stored value. Called on session end.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for kind := range s.values {
		s.wipeLocked(kind)
	}
}

// wipeLocked zeroes the backing bytes before dropping the reference, so the
// scalar does not linger in reachable memory. Must be called with mu held.
func (s *Store) wipeLocked(kind Kind) {
	if v, ok := s.values[kind]; ok {
		for i := range v {
			v[i] = 0
		}
		delete(s.values, kind)
	}
}

// Len returns the number of stored values (for testing).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}
