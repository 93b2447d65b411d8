package challenge

import (
	"crypto/subtle"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sealwrite/sealwrite/pkg/protocol"
)

// ErrStoreFull indicates the store reached its maximum outstanding
// challenges. Transient; callers may retry after earlier challenges expire.
var ErrStoreFull = errors.New("challenge store full: maximum entries reached")

const (
	// DefaultMaxEntries caps outstanding challenges to bound memory.
	DefaultMaxEntries = 100_000

	// DefaultCleanupInterval is how often expired challenges are swept.
	DefaultCleanupInterval = 30 * time.Second

	// idShortLength truncates UUIDs for challenge ids, e.g. "chal_a1b2c3d4".
	idShortLength = 8
)

// entry pairs a challenge with its consumption flag. The flag is flipped
// with compare-and-swap so exactly one submission wins under concurrency.
type entry struct {
	ch       *Challenge
	consumed atomic.Bool
}

// Store is an in-memory challenge store with TTL expiry and atomic
// single-use consumption. Safe for concurrent use. Challenges are ephemeral
// by design and never touch durable storage.
type Store struct {
	entries    sync.Map // id -> *entry
	entryCount atomic.Int64
	maxEntries int64
	ttl        time.Duration

	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTTL sets the challenge time-to-live.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.ttl = ttl }
}

// WithMaxEntries sets the maximum number of outstanding challenges.
func WithMaxEntries(max int) StoreOption {
	return func(s *Store) { s.maxEntries = int64(max) }
}

// NewStore creates a challenge store and starts its cleanup goroutine.
// Call Close to stop it.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		maxEntries:  DefaultMaxEntries,
		ttl:         DefaultTTL,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.cleanupLoop(DefaultCleanupInterval)
	return s
}

// Issue mints a new challenge bound to (path, digest, tier). Each call mints
// a fresh nonce; issuance is deliberately not idempotent.
func (s *Store) Issue(purpose Purpose, path, contentDigest string, tier int) (*Challenge, error) {
	nonce, err := GenerateNonce()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ch := &Challenge{
		ID:            "chal_" + uuid.New().String()[:idShortLength],
		Nonce:         nonce,
		Purpose:       purpose,
		Path:          path,
		ContentDigest: contentDigest,
		Tier:          tier,
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.ttl),
	}

	s.entries.Store(ch.ID, &entry{ch: ch})
	if s.entryCount.Add(1) > s.maxEntries {
		s.entries.Delete(ch.ID)
		s.entryCount.Add(-1)
		return nil, ErrStoreFull
	}
	return ch, nil
}

// Peek returns the challenge for id without consuming it, or nil if unknown.
func (s *Store) Peek(id string) *Challenge {
	v, ok := s.entries.Load(id)
	if !ok {
		return nil
	}
	return v.(*entry).ch
}

// Consume spends the challenge identified by id, verifying the presented
// nonce and the TTL at instant now. Exactly one caller can win; every later
// attempt gets ChallengeConsumed even with a cryptographically valid
// assertion. Expired challenges are removed and rejected.
func (s *Store) Consume(id string, nonce []byte, now time.Time) (*Challenge, error) {
	v, ok := s.entries.Load(id)
	if !ok {
		return nil, protocol.ErrChallengeNotFound(id)
	}
	e := v.(*entry)

	if e.ch.IsExpired(now) {
		s.delete(id)
		return nil, protocol.ErrChallengeExpired(id)
	}

	if subtle.ConstantTimeCompare(nonce, e.ch.Nonce) != 1 {
		return nil, protocol.ErrSignatureMismatch("presented nonce does not match the issued challenge")
	}

	if !e.consumed.CompareAndSwap(false, true) {
		return nil, protocol.ErrChallengeConsumed(id)
	}
	return e.ch, nil
}

// Discard drops a challenge without consuming it. Used when a caller
// abandons an intent before signing, so the nonce cannot linger.
func (s *Store) Discard(id string) {
	s.delete(id)
}

// Close stops the cleanup goroutine.
func (s *Store) Close() error {
	close(s.stopCleanup)
	<-s.cleanupDone
	return nil
}

// Len returns the number of stored challenges (for testing).
func (s *Store) Len() int {
	return int(s.entryCount.Load())
}

func (s *Store) delete(id string) {
	if _, loaded := s.entries.LoadAndDelete(id); loaded {
		s.entryCount.Add(-1)
	}
}

func (s *Store) cleanupLoop(interval time.Duration) {
	defer close(s.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			s.cleanup(time.Now())
		}
	}
}

// cleanup removes expired and consumed challenges. Consumed entries are kept
// until expiry so replays answer ChallengeConsumed instead of NotFound.
func (s *Store) cleanup(now time.Time) {
	s.entries.Range(func(key, value any) bool {
		e := value.(*entry)
		if e.ch.IsExpired(now) {
			if s.entries.CompareAndDelete(key, value) {
				s.entryCount.Add(-1)
			}
		}
		return true
	})
}
