package wallet

import (
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const pemType = "SEALWRITE WALLET KEY"

var (
	// ErrKeyNotFound indicates no wallet key exists at the store path.
	ErrKeyNotFound = errors.New("wallet key not found")

	// ErrInvalidPermissions indicates the key file is readable by other
	// users. The key is refused rather than loaded.
	ErrInvalidPermissions = errors.New("insecure wallet key permissions: file accessible to other users")

	// ErrInvalidKeyFormat indicates the key file is not in the expected
	// format.
	ErrInvalidKeyFormat = errors.New("invalid wallet key format: expected 32-byte secp256k1 key PEM")
)

// FileKeyStore stores a wallet private key in an owner-only PEM file.
type FileKeyStore struct {
	path string
}

// NewFileKeyStore creates a file-based wallet key store.
func NewFileKeyStore(path string) *FileKeyStore {
	return &FileKeyStore{path: path}
}

// Path returns the file path (for display purposes).
func (s *FileKeyStore) Path() string { return s.path }

// Exists returns true if a key file exists.
func (s *FileKeyStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads and validates the wallet key. Returns ErrKeyNotFound if the
// file doesn't exist and ErrInvalidPermissions if it is group/world
// accessible.
func (s *FileKeyStore) Load() (*Key, error) {
	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stat wallet key: %w", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		return nil, ErrInvalidPermissions
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read wallet key: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemType {
		return nil, ErrInvalidKeyFormat
	}
	if len(block.Bytes) != 32 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeyFormat, len(block.Bytes))
	}

	return &Key{priv: secp256k1.PrivKeyFromBytes(block.Bytes)}, nil
}

// Save writes the wallet key with owner-only permissions, creating parent
// directories as needed.
func (s *FileKeyStore) Save(key *Key) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create wallet key directory: %w", err)
	}
	data := pem.EncodeToMemory(&pem.Block{Type: pemType, Bytes: key.priv.Serialize()})
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write wallet key: %w", err)
	}
	return nil
}

// LoadOrGenerate loads the stored wallet key, generating and saving a fresh
// one if none exists.
func (s *FileKeyStore) LoadOrGenerate() (*Key, error) {
	key, err := s.Load()
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}
	key, err = Generate()
	if err != nil {
		return nil, err
	}
	if err := s.Save(key); err != nil {
		return nil, err
	}
	return key, nil
}
