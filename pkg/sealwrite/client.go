// Package sealwrite is the high-level client: one type that composes the
// authenticator bridge, identity derivation, the registry client, the local
// linkage cache and the session store into the three flows a caller needs —
// registering a biometric identity, signing write proposals, and
// authenticating a session.
package sealwrite

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/sealwrite/sealwrite/pkg/authenticator"
	"github.com/sealwrite/sealwrite/pkg/derive"
	"github.com/sealwrite/sealwrite/pkg/proposal"
	"github.com/sealwrite/sealwrite/pkg/protocol"
	"github.com/sealwrite/sealwrite/pkg/registry"
	"github.com/sealwrite/sealwrite/pkg/session"
	"github.com/sealwrite/sealwrite/pkg/signer"
	"github.com/sealwrite/sealwrite/pkg/store"
	"github.com/sealwrite/sealwrite/pkg/wallet"
)

// Config configures a Client.
type Config struct {
	// RegistryURL is the base URL of the registry/verifier service.
	RegistryURL string

	// RelyingParty scopes created credentials. Defaults to "sealwrite.local".
	RelyingParty string

	// DBPath is the linkage cache location. Defaults to store.DefaultPath().
	DBPath string
}

// Client drives the registration, signing and authentication flows for one
// device. It is not safe for concurrent use; the underlying authenticator
// allows only one outstanding hardware prompt anyway.
type Client struct {
	auth         authenticator.Authenticator
	registry     *registry.Client
	db           *store.Store
	sessions     *session.Store
	relyingParty string
}

// New creates a client. The caller supplies the authenticator so tests and
// headless environments can plug in a software one.
func New(auth authenticator.Authenticator, cfg Config, opts ...registry.Option) (*Client, error) {
	if cfg.RegistryURL == "" {
		return nil, fmt.Errorf("sealwrite: registry URL is required")
	}
	rp := cfg.RelyingParty
	if rp == "" {
		rp = "sealwrite.local"
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = store.DefaultPath()
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{
		auth:         auth,
		registry:     registry.New(cfg.RegistryURL, opts...),
		db:           db,
		sessions:     session.NewStore(),
		relyingParty: rp,
	}, nil
}

// Close ends the session and releases the linkage cache.
func (c *Client) Close() error {
	c.sessions.ClearAll()
	return c.db.Close()
}

// IsBiometricAvailable reports whether a platform authenticator is usable
// right now. Checked live at every flow start; never cached.
func (c *Client) IsBiometricAvailable(ctx context.Context) bool {
	return c.auth.IsAvailable(ctx)
}

// ActiveIdentity returns the device's registered identity, or nil if the
// device has never registered.
func (c *Client) ActiveIdentity() (*store.Linkage, error) {
	return c.db.ActiveLinkage()
}

// RegisterBiometricIdentity runs the full registration flow: mint a
// credential behind a hardware prompt, derive the ledger identity from its
// public key, prove control of the existing wallet by signing the
// registration payload, submit everything to the registry, and cache the
// resulting linkage locally. Only public material is persisted.
func (c *Client) RegisterBiometricIdentity(ctx context.Context, deviceLabel string, walletKey *wallet.Key) (*store.Linkage, error) {
	if deviceLabel == "" {
		return nil, fmt.Errorf("sealwrite: device label is required")
	}
	if !c.auth.IsAvailable(ctx) {
		return nil, protocol.ErrHardwareUnavailable()
	}

	cred, err := c.auth.CreateCredential(ctx, authenticator.CreateParams{
		RelyingParty:    c.relyingParty,
		UserName:        deviceLabel,
		UserDisplayName: deviceLabel,
	})
	if err != nil {
		return nil, err
	}

	credentialKey := cred.PublicKey.SEC1Uncompressed()
	identity, err := derive.DeriveIdentity(credentialKey)
	if err != nil {
		return nil, err
	}

	payload := protocol.RegistrationSigningPayload(cred.ID, identity.PublicKey, deviceLabel)
	proofSig := walletKey.Sign(payload)

	resp, err := c.registry.Register(ctx, &protocol.RegisterRequest{
		CredentialID:        base64.StdEncoding.EncodeToString(cred.ID),
		CredentialPublicKey: base64.StdEncoding.EncodeToString(credentialKey),
		DerivedAddress:      identity.Address,
		DerivedPublicKey:    base64.StdEncoding.EncodeToString(identity.PublicKey),
		DeviceLabel:         deviceLabel,
		ProofSigner:         walletKey.Address(),
		ProofPublicKey:      base64.StdEncoding.EncodeToString(walletKey.PublicKey()),
		ProofSignature:      base64.StdEncoding.EncodeToString(proofSig),
	})
	if err != nil {
		return nil, err
	}

	linkage := &store.Linkage{
		DerivedAddress:   resp.DerivedAddress,
		CredentialID:     cred.ID,
		DerivedPublicKey: identity.PublicKey,
		DeviceLabel:      deviceLabel,
		CreatedAt:        resp.CreatedAt,
	}
	if err := c.db.SaveLinkage(linkage); err != nil {
		return nil, err
	}
	return linkage, nil
}

// SignWriteProposal runs one challenge-assert-verify flow for intent using
// the device's registered identity. The terminal Result carries the state
// and reason code even when err is non-nil.
func (c *Client) SignWriteProposal(ctx context.Context, intent proposal.WriteIntent) (*signer.Result, error) {
	linkage, err := c.db.ActiveLinkage()
	if err != nil {
		return nil, err
	}
	if linkage == nil {
		return nil, fmt.Errorf("sealwrite: no registered identity on this device")
	}
	return signer.New(c.auth, c.registry, linkage).Sign(ctx, intent)
}

// AuthenticateWithCredential proves possession of the registered credential
// to the registry and caches the minted session token in the session store.
func (c *Client) AuthenticateWithCredential(ctx context.Context) (*protocol.AuthVerifyResponse, error) {
	linkage, err := c.db.ActiveLinkage()
	if err != nil {
		return nil, err
	}
	if linkage == nil {
		return nil, fmt.Errorf("sealwrite: no registered identity on this device")
	}
	if !c.auth.IsAvailable(ctx) {
		return nil, protocol.ErrHardwareUnavailable()
	}

	ch, err := c.registry.RequestAuthChallenge(ctx)
	if err != nil {
		return nil, err
	}
	nonce, err := base64.StdEncoding.DecodeString(ch.Nonce)
	if err != nil {
		return nil, fmt.Errorf("sealwrite: registry returned malformed nonce: %w", err)
	}
	if time.Now().After(ch.ExpiresAt) {
		return nil, protocol.ErrChallengeExpired(ch.ChallengeID)
	}

	assertion, err := c.auth.GetAssertion(ctx, nonce, [][]byte{linkage.CredentialID})
	if err != nil {
		return nil, err
	}

	resp, err := c.registry.VerifyAuth(ctx, &protocol.AuthVerifyRequest{
		ChallengeID:       ch.ChallengeID,
		CredentialID:      base64.StdEncoding.EncodeToString(assertion.CredentialID),
		AuthenticatorData: base64.StdEncoding.EncodeToString(assertion.AuthenticatorData),
		ClientDataJSON:    base64.StdEncoding.EncodeToString(assertion.ClientDataJSON),
		Signature:         base64.StdEncoding.EncodeToString(assertion.Signature),
	})
	if err != nil {
		return nil, err
	}

	if err := c.sessions.Put(session.KindSessionToken, []byte(resp.Token)); err != nil {
		return nil, err
	}
	return resp, nil
}

// ValidateSession introspects the cached session token against the registry
// and returns the derived address it is valid for.
func (c *Client) ValidateSession(ctx context.Context) (string, error) {
	token := c.SessionToken()
	if token == "" {
		return "", protocol.ErrInvalidSession()
	}
	resp, err := c.registry.Session(ctx, token)
	if err != nil {
		return "", err
	}
	return resp.Address, nil
}

// SessionToken returns the cached session token, or empty if no session is
// active.
func (c *Client) SessionToken() string {
	return string(c.sessions.Get(session.KindSessionToken))
}

// EndSession wipes all session-scoped material: the cached token and any
// derived scalar. Durable public identifiers in the linkage cache survive.
func (c *Client) EndSession() {
	c.sessions.ClearAll()
}
