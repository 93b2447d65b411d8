package authenticator

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// Emulator is a software authenticator for development and tests. It holds
// P-256 private keys in process memory (or, when configured with a state
// directory, in owner-only PEM files) and produces the same assertion shape
// a platform authenticator would.
//
// The emulator is NOT a hardware boundary. It exists so flows can run on
// machines without a platform authenticator; production callers use the real
// platform bridge.
type Emulator struct {
	mu       sync.Mutex
	keys     map[string]*ecdsa.PrivateKey // hex credential id -> sealed key
	counters map[string]uint32

	origin    string
	stateDir  string // empty means memory-only
	available atomic.Bool
	decline   atomic.Bool
	inFlight  atomic.Bool
}

// EmulatorOption configures an Emulator.
type EmulatorOption func(*Emulator)

// WithOrigin sets the origin embedded in client data. Default "local://sealctl".
func WithOrigin(origin string) EmulatorOption {
	return func(e *Emulator) { e.origin = origin }
}

// WithStateDir persists emulated credentials under dir so a dev CLI can sign
// across invocations. Files are written with owner-only permissions.
func WithStateDir(dir string) EmulatorOption {
	return func(e *Emulator) { e.stateDir = dir }
}

// NewEmulator creates a software authenticator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		keys:     make(map[string]*ecdsa.PrivateKey),
		counters: make(map[string]uint32),
		origin:   "local://sealctl",
	}
	e.available.Store(true)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetAvailable toggles availability, simulating biometric enrollment changes
// mid-session.
func (e *Emulator) SetAvailable(v bool) { e.available.Store(v) }

// DeclineNext makes the next prompt fail with ErrUserCancelled.
func (e *Emulator) DeclineNext() { e.decline.Store(true) }

// IsAvailable reports current availability. No side effects.
func (e *Emulator) IsAvailable(ctx context.Context) bool {
	return e.available.Load()
}

// beginPrompt enforces the one-outstanding-prompt rule and the simulated
// user decision. The returned func settles the prompt.
func (e *Emulator) beginPrompt(ctx context.Context) (func(), error) {
	if !e.available.Load() {
		return nil, ErrNotSupported
	}
	if !e.inFlight.CompareAndSwap(false, true) {
		return nil, ErrPromptOutstanding
	}
	settle := func() { e.inFlight.Store(false) }
	if e.decline.CompareAndSwap(true, false) {
		settle()
		return nil, ErrUserCancelled
	}
	select {
	case <-ctx.Done():
		settle()
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, ErrUserCancelled
	default:
	}
	return settle, nil
}

// CreateCredential mints a new emulated credential.
func (e *Emulator) CreateCredential(ctx context.Context, params CreateParams) (*Credential, error) {
	settle, err := e.beginPrompt(ctx)
	if err != nil {
		return nil, err
	}
	defer settle()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("emulator: generate credential key: %w", err)
	}

	id := make([]byte, 16)
	if _, err := rand.Read(id); err != nil {
		return nil, fmt.Errorf("emulator: generate credential id: %w", err)
	}

	e.mu.Lock()
	e.keys[hex.EncodeToString(id)] = key
	e.counters[hex.EncodeToString(id)] = 0
	e.mu.Unlock()

	if e.stateDir != "" {
		if err := e.saveKey(id, key); err != nil {
			return nil, err
		}
	}

	return &Credential{
		ID: id,
		PublicKey: PublicKey{
			X: key.PublicKey.X.FillBytes(make([]byte, 32)),
			Y: key.PublicKey.Y.FillBytes(make([]byte, 32)),
		},
		Attachment: AttachmentPlatform,
		CreatedAt:  time.Now(),
	}, nil
}

// GetAssertion signs the challenge with the first allowed credential present
// on the emulator.
func (e *Emulator) GetAssertion(ctx context.Context, challenge []byte, allowedIDs [][]byte) (*Assertion, error) {
	settle, err := e.beginPrompt(ctx)
	if err != nil {
		return nil, err
	}
	defer settle()

	credID, key, err := e.lookupKey(allowedIDs)
	if err != nil {
		return nil, err
	}

	clientData, err := EncodeClientData(challenge, e.origin)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.counters[hex.EncodeToString(credID)]++
	count := e.counters[hex.EncodeToString(credID)]
	e.mu.Unlock()

	authData := buildAuthenticatorData(e.origin, count)
	clientHash := sha256.Sum256(clientData)
	digest := sha256.Sum256(append(append([]byte{}, authData...), clientHash[:]...))

	sig, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("emulator: sign assertion: %w", err)
	}

	return &Assertion{
		CredentialID:      credID,
		AuthenticatorData: authData,
		ClientDataJSON:    clientData,
		Signature:         sig,
	}, nil
}

func (e *Emulator) lookupKey(allowedIDs [][]byte) ([]byte, *ecdsa.PrivateKey, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range allowedIDs {
		if key, ok := e.keys[hex.EncodeToString(id)]; ok {
			return id, key, nil
		}
	}
	if e.stateDir != "" {
		for _, id := range allowedIDs {
			key, err := e.loadKey(id)
			if err == nil {
				e.keys[hex.EncodeToString(id)] = key
				return id, key, nil
			}
		}
	}
	return nil, nil, ErrCredentialNotFound
}

// buildAuthenticatorData assembles rpIdHash | flags | signCount.
// Flags 0x05 = user present + user verified.
func buildAuthenticatorData(rpID string, signCount uint32) []byte {
	rpHash := sha256.Sum256([]byte(rpID))
	out := make([]byte, 0, 37)
	out = append(out, rpHash[:]...)
	out = append(out, 0x05)
	var count [4]byte
	binary.BigEndian.PutUint32(count[:], signCount)
	return append(out, count[:]...)
}

func (e *Emulator) keyPath(id []byte) string {
	return filepath.Join(e.stateDir, hex.EncodeToString(id)+".pem")
}

func (e *Emulator) saveKey(id []byte, key *ecdsa.PrivateKey) error {
	if err := os.MkdirAll(e.stateDir, 0700); err != nil {
		return fmt.Errorf("emulator: create state dir: %w", err)
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return fmt.Errorf("emulator: encode credential key: %w", err)
	}
	data := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
	if err := os.WriteFile(e.keyPath(id), data, 0600); err != nil {
		return fmt.Errorf("emulator: write credential key: %w", err)
	}
	return nil
}

func (e *Emulator) loadKey(id []byte) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(e.keyPath(id))
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "EC PRIVATE KEY" {
		return nil, fmt.Errorf("emulator: invalid credential key file")
	}
	return x509.ParseECPrivateKey(block.Bytes)
}

// VerifyAssertionShape is a cheap structural check callers can run before
// handing an assertion to the verifier: authenticator data length and the
// user-presence flag.
func VerifyAssertionShape(a *Assertion) error {
	if a == nil {
		return fmt.Errorf("assertion is nil")
	}
	if len(a.AuthenticatorData) < 37 {
		return fmt.Errorf("authenticator data too short: %d bytes", len(a.AuthenticatorData))
	}
	if a.AuthenticatorData[32]&0x01 == 0 {
		return fmt.Errorf("user presence flag not set")
	}
	if len(a.Signature) == 0 || len(a.CredentialID) == 0 {
		return fmt.Errorf("assertion missing signature or credential id")
	}
	if !bytes.HasPrefix(a.ClientDataJSON, []byte("{")) {
		return fmt.Errorf("client data is not JSON")
	}
	return nil
}

var _ Authenticator = (*Emulator)(nil)
