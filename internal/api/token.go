package api

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"
)

const (
	// DefaultSessionTokenTTL is the validity window for session tokens
	// when no override is configured.
	DefaultSessionTokenTTL = time.Hour

	sessionTokenIssuer = "sealwrite-registry"

	tokenKeyPEMType = "SEALWRITE SESSION KEY"
)

// ErrInvalidToken is returned by Verify for tokens that fail signature or
// claim validation.
var ErrInvalidToken = errors.New("invalid session token")

// TokenIssuer mints and verifies EdDSA-signed session tokens. The subject
// is the derived ledger address that authenticated.
type TokenIssuer struct {
	key    ed25519.PrivateKey
	signer jose.Signer
	ttl    time.Duration
}

// NewTokenIssuer creates an issuer around an existing Ed25519 signing key.
func NewTokenIssuer(key ed25519.PrivateKey) (*TokenIssuer, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.EdDSA, Key: key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating token signer: %w", err)
	}
	return &TokenIssuer{key: key, signer: signer, ttl: DefaultSessionTokenTTL}, nil
}

// NewEphemeralTokenIssuer generates a fresh signing key. Tokens minted with
// it do not survive a restart, which is fine for tests and dev servers.
func NewEphemeralTokenIssuer() (*TokenIssuer, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating session signing key: %w", err)
	}
	return NewTokenIssuer(key)
}

// LoadOrGenerateTokenIssuer reads the signing key from path, generating and
// persisting one (0600, parent 0700) if the file does not exist yet.
func LoadOrGenerateTokenIssuer(path string) (*TokenIssuer, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		block, _ := pem.Decode(data)
		if block == nil || block.Type != tokenKeyPEMType {
			return nil, fmt.Errorf("session key file %s is not a valid key PEM", path)
		}
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing session signing key: %w", err)
		}
		key, ok := parsed.(ed25519.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("session key file %s does not hold an Ed25519 key", path)
		}
		return NewTokenIssuer(key)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading session signing key: %w", err)
	}

	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating session signing key: %w", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("encoding session signing key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating session key directory: %w", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: tokenKeyPEMType, Bytes: der})
	if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
		return nil, fmt.Errorf("writing session signing key: %w", err)
	}
	return NewTokenIssuer(key)
}

// Issue mints a session token for the given derived address and returns the
// serialized JWT along with its expiry.
func (ti *TokenIssuer) Issue(address string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ti.ttl)
	claims := jwt.Claims{
		Issuer:   sessionTokenIssuer,
		Subject:  address,
		ID:       uuid.New().String(),
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.Signed(ti.signer).Claims(claims).Serialize()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing session token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify checks the token signature and expiry and returns the derived
// address the token was issued for.
func (ti *TokenIssuer) Verify(token string) (string, error) {
	parsed, err := jwt.ParseSigned(token, []jose.SignatureAlgorithm{jose.EdDSA})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var claims jwt.Claims
	if err := parsed.Claims(ti.key.Public(), &claims); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if err := claims.Validate(jwt.Expected{
		Issuer: sessionTokenIssuer,
		Time:   time.Now(),
	}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
