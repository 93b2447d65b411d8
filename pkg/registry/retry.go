package registry

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/sealwrite/sealwrite/pkg/protocol"
)

var (
	// ErrMaxRetriesExceeded wraps the last error after all attempts failed.
	ErrMaxRetriesExceeded = errors.New("retry: max attempts exceeded")

	// ErrCircuitOpen is returned when the breaker is rejecting calls.
	ErrCircuitOpen = errors.New("circuit breaker: circuit is open")
)

// RetryConfig configures bounded retry for registry transport failures.
// Only RegistryUnavailable is retried; verification failures, duplicate
// registrations and hardware errors surface immediately.
type RetryConfig struct {
	// InitialDelay is the delay before the first retry. Default: 500ms
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries. Default: 10s
	MaxDelay time.Duration

	// Multiplier is the backoff multiplier applied after each retry. Default: 2.0
	Multiplier float64

	// MaxAttempts is the maximum number of attempts (including first try). Default: 4
	MaxAttempts int

	// Jitter is the random factor (0-1) added to delay to prevent thundering herd. Default: 0.1
	Jitter float64
}

// DefaultRetryConfig returns a RetryConfig with sensible defaults. The
// attempt count is deliberately small: after it is exhausted the flow
// surfaces failure and the user restarts with a fresh challenge.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		MaxAttempts:  4,
		Jitter:       0.1,
	}
}

// Retry executes fn with exponential backoff until it succeeds, returns a
// non-retryable error, or exhausts all attempts. Respects context
// cancellation.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !protocol.IsRetryable(lastErr) {
			return lastErr
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		actualDelay := delay
		if cfg.Jitter > 0 {
			jitterRange := float64(delay) * cfg.Jitter
			actualDelay = delay + time.Duration(rand.Float64()*jitterRange)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(actualDelay):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return errors.Join(ErrMaxRetriesExceeded, lastErr)
}

// CircuitBreaker fast-fails registry calls while the registry is known to be
// down, so a signing flow does not burn its bounded retries on a dead
// endpoint.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	resetTimeout     time.Duration

	open             bool
	consecutiveFails int
	lastFailTime     time.Time
}

// NewCircuitBreaker creates a breaker that opens after threshold consecutive
// failures and probes again after resetTimeout.
func NewCircuitBreaker(threshold int, resetTimeout time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 60 * time.Second
	}
	return &CircuitBreaker{failureThreshold: threshold, resetTimeout: resetTimeout}
}

// Execute runs fn through the breaker. When open and before the reset
// timeout, returns ErrCircuitOpen without calling fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	if cb.open && time.Since(cb.lastFailTime) < cb.resetTimeout {
		cb.mu.Unlock()
		return ErrCircuitOpen
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil && protocol.IsRetryable(err) {
		cb.consecutiveFails++
		cb.lastFailTime = time.Now()
		if cb.consecutiveFails >= cb.failureThreshold {
			cb.open = true
		}
		return err
	}
	cb.consecutiveFails = 0
	cb.open = false
	return err
}
