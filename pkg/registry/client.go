// Package registry is the HTTP client for the credential registry and
// proposal verifier. Transport failures map to RegistryUnavailable and are
// retried with bounded exponential backoff; every other failure is decoded
// into its typed protocol error and surfaced immediately.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sealwrite/sealwrite/pkg/protocol"
)

// Client talks to a registry service.
type Client struct {
	baseURL string
	http    *http.Client
	retry   RetryConfig
	breaker *CircuitBreaker
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetryConfig overrides the retry behavior.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithCircuitBreaker overrides the default breaker.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// New creates a registry client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		retry:   DefaultRetryConfig(),
		breaker: NewCircuitBreaker(0, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// withRetry runs fn through the circuit breaker inside the bounded retry
// loop. Each transport attempt counts toward the breaker; an open breaker
// fast-fails without touching the wire and is not itself retried.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	return Retry(ctx, c.retry, func() error {
		return c.breaker.Execute(fn)
	})
}

// Register submits registration material. Retried on transport failure only;
// registration is idempotent on credential id so a retried request that
// already landed returns the existing record rather than a duplicate.
func (c *Client) Register(ctx context.Context, req *protocol.RegisterRequest) (*protocol.RegisterResponse, error) {
	var resp protocol.RegisterResponse
	err := c.withRetry(ctx, func() error {
		return c.post(ctx, "/api/v1/register", req, &resp, http.StatusCreated)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// RequestChallenge requests a challenge bound to (path, digest, tier).
// Each successful call mints a fresh nonce; callers must discard any earlier
// challenge for the same intent before requesting another.
func (c *Client) RequestChallenge(ctx context.Context, path, contentDigest string, tier int) (*protocol.ChallengeResponse, error) {
	q := url.Values{}
	q.Set("path", path)
	q.Set("contentDigest", contentDigest)
	q.Set("tier", strconv.Itoa(tier))

	var resp protocol.ChallengeResponse
	err := c.withRetry(ctx, func() error {
		return c.get(ctx, "/api/v1/challenge?"+q.Encode(), &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitProposal submits a signed proposal for verification. The request
// body carries an already-obtained assertion; retries resend the identical
// body and never re-prompt the user.
func (c *Client) SubmitProposal(ctx context.Context, req *protocol.ProposalRequest) (*protocol.ProposalResponse, error) {
	var resp protocol.ProposalResponse
	err := c.withRetry(ctx, func() error {
		return c.post(ctx, "/api/v1/proposals", req, &resp, http.StatusOK)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// RequestAuthChallenge requests a session-authentication challenge.
func (c *Client) RequestAuthChallenge(ctx context.Context) (*protocol.ChallengeResponse, error) {
	var resp protocol.ChallengeResponse
	err := c.withRetry(ctx, func() error {
		return c.post(ctx, "/api/v1/auth/challenge", struct{}{}, &resp, http.StatusOK)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyAuth exchanges an assertion over an auth challenge for a session
// token.
func (c *Client) VerifyAuth(ctx context.Context, req *protocol.AuthVerifyRequest) (*protocol.AuthVerifyResponse, error) {
	var resp protocol.AuthVerifyResponse
	err := c.withRetry(ctx, func() error {
		return c.post(ctx, "/api/v1/auth/verify", req, &resp, http.StatusOK)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Session introspects a bearer session token and returns the identity it
// was minted for.
func (c *Client) Session(ctx context.Context, token string) (*protocol.SessionResponse, error) {
	var resp protocol.SessionResponse
	err := c.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/session", nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return c.do(req, &resp, http.StatusOK)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out, http.StatusOK)
}

func (c *Client) post(ctx context.Context, path string, body, out any, wantStatus int) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out, wantStatus)
}

// do executes the request and decodes either the expected response or a
// typed protocol error. Network failures and 5xx responses become
// RegistryUnavailable; 4xx responses decode their machine code.
func (c *Client) do(req *http.Request, out any, wantStatus int) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return protocol.ErrRegistryUnavailable(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return protocol.ErrRegistryUnavailable(err)
	}

	if resp.StatusCode == wantStatus {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	if resp.StatusCode >= 500 {
		return protocol.ErrRegistryUnavailable(fmt.Errorf("registry returned %d", resp.StatusCode))
	}

	var wire protocol.ErrorResponse
	if err := json.Unmarshal(body, &wire); err != nil || wire.Code == "" {
		return fmt.Errorf("registry returned %d: %s", resp.StatusCode, string(body))
	}
	return protocol.FromWire(resp.StatusCode, wire.Code, wire.Message)
}
