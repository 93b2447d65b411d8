package challenge

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sealwrite/sealwrite/pkg/protocol"
)

func TestIssueAndConsume(t *testing.T) {
	t.Log("Creating challenge store")
	s := NewStore()
	defer s.Close()

	ch, err := s.Issue(PurposeProposal, "/docs/readme", "bafy-digest", 0)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if len(ch.Nonce) != NonceSize {
		t.Errorf("nonce must be %d bytes, got %d", NonceSize, len(ch.Nonce))
	}

	t.Log("Consuming the challenge with the correct nonce")
	got, err := s.Consume(ch.ID, ch.Nonce, time.Now())
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if got.Path != "/docs/readme" || got.ContentDigest != "bafy-digest" || got.Tier != 0 {
		t.Error("consumed challenge lost its intent binding")
	}
}

func TestConsumeTwiceFails(t *testing.T) {
	s := NewStore()
	defer s.Close()

	ch, err := s.Issue(PurposeProposal, "/p", "d", 1)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := s.Consume(ch.ID, ch.Nonce, time.Now()); err != nil {
		t.Fatalf("first consume failed: %v", err)
	}

	t.Log("Replaying the same challenge")
	_, err = s.Consume(ch.ID, ch.Nonce, time.Now())
	if protocol.ErrorCode(err) != protocol.ErrCodeChallengeConsumed {
		t.Errorf("replay must fail with ChallengeConsumed, got %v", err)
	}
}

func TestConsumeWrongNonce(t *testing.T) {
	s := NewStore()
	defer s.Close()

	ch, err := s.Issue(PurposeProposal, "/p", "d", 0)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	wrong := make([]byte, NonceSize)
	_, err = s.Consume(ch.ID, wrong, time.Now())
	if protocol.ErrorCode(err) != protocol.ErrCodeSignatureMismatch {
		t.Errorf("wrong nonce must fail with SignatureMismatch, got %v", err)
	}

	t.Log("A failed nonce check must not consume the challenge")
	if _, err := s.Consume(ch.ID, ch.Nonce, time.Now()); err != nil {
		t.Errorf("challenge was consumed by the failed attempt: %v", err)
	}
}

func TestConsumeUnknownID(t *testing.T) {
	s := NewStore()
	defer s.Close()

	_, err := s.Consume("chal_missing", make([]byte, NonceSize), time.Now())
	if protocol.ErrorCode(err) != protocol.ErrCodeChallengeNotFound {
		t.Errorf("unknown id must fail with ChallengeNotFound, got %v", err)
	}
}

func TestConsumeExpired(t *testing.T) {
	ttl := 10 * time.Millisecond
	s := NewStore(WithTTL(ttl))
	defer s.Close()

	ch, err := s.Issue(PurposeProposal, "/p", "d", 0)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	t.Logf("Consuming after the TTL (%v) has passed", ttl)
	_, err = s.Consume(ch.ID, ch.Nonce, time.Now().Add(ttl+time.Millisecond))
	if protocol.ErrorCode(err) != protocol.ErrCodeChallengeExpired {
		t.Errorf("expired challenge must fail with ChallengeExpired, got %v", err)
	}

	t.Log("Expired challenges are removed; a second attempt sees NotFound")
	_, err = s.Consume(ch.ID, ch.Nonce, time.Now())
	if protocol.ErrorCode(err) != protocol.ErrCodeChallengeNotFound {
		t.Errorf("expected ChallengeNotFound after removal, got %v", err)
	}
}

func TestFreshNoncePerIssue(t *testing.T) {
	s := NewStore()
	defer s.Close()

	a, err := s.Issue(PurposeProposal, "/same", "same", 0)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	b, err := s.Issue(PurposeProposal, "/same", "same", 0)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if a.ID == b.ID {
		t.Error("two issuances shared a challenge id")
	}
	if string(a.Nonce) == string(b.Nonce) {
		t.Error("two issuances shared a nonce")
	}
}

func TestConcurrentConsumeSingleWinner(t *testing.T) {
	s := NewStore()
	defer s.Close()

	ch, err := s.Issue(PurposeProposal, "/p", "d", 0)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	const goroutines = 32
	var wins, replays counter
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.Consume(ch.ID, ch.Nonce, time.Now())
			switch protocol.ErrorCode(err) {
			case "":
				wins.add()
			case protocol.ErrCodeChallengeConsumed:
				replays.add()
			}
		}()
	}
	close(start)
	wg.Wait()

	if wins.load() != 1 {
		t.Errorf("exactly one consumer must win, got %d", wins.load())
	}
	if replays.load() != goroutines-1 {
		t.Errorf("expected %d replay rejections, got %d", goroutines-1, replays.load())
	}
}

func TestMaxEntries(t *testing.T) {
	s := NewStore(WithMaxEntries(2))
	defer s.Close()

	for i := 0; i < 2; i++ {
		if _, err := s.Issue(PurposeProposal, "/p", "d", 0); err != nil {
			t.Fatalf("issue %d failed: %v", i, err)
		}
	}
	_, err := s.Issue(PurposeProposal, "/p", "d", 0)
	if !errors.Is(err, ErrStoreFull) {
		t.Errorf("expected ErrStoreFull, got %v", err)
	}
}

func TestDiscard(t *testing.T) {
	s := NewStore()
	defer s.Close()

	ch, err := s.Issue(PurposeProposal, "/p", "d", 0)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	s.Discard(ch.ID)

	_, err = s.Consume(ch.ID, ch.Nonce, time.Now())
	if protocol.ErrorCode(err) != protocol.ErrCodeChallengeNotFound {
		t.Errorf("discarded challenge must be gone, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("store should be empty, has %d entries", s.Len())
	}
}

func TestCleanupKeepsConsumedUntilExpiry(t *testing.T) {
	s := NewStore(WithTTL(time.Hour))
	defer s.Close()

	ch, err := s.Issue(PurposeProposal, "/p", "d", 0)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := s.Consume(ch.ID, ch.Nonce, time.Now()); err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	t.Log("Sweeping before expiry keeps the consumed entry for replay answers")
	s.cleanup(time.Now())
	_, err = s.Consume(ch.ID, ch.Nonce, time.Now())
	if protocol.ErrorCode(err) != protocol.ErrCodeChallengeConsumed {
		t.Errorf("expected ChallengeConsumed before expiry, got %v", err)
	}

	t.Log("Sweeping after expiry removes the entry")
	s.cleanup(time.Now().Add(2 * time.Hour))
	if s.Len() != 0 {
		t.Errorf("store should be empty after expiry sweep, has %d", s.Len())
	}
}

// counter is a tiny counter helper for concurrency tests.
type counter struct {
	mu sync.Mutex
	n  int
}

func (a *counter) add() {
	a.mu.Lock()
	a.n++
	a.mu.Unlock()
}

func (a *counter) load() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.n
}
