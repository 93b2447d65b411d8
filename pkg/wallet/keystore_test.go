package wallet

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestKeystoreSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "wallet.pem")
	ks := NewFileKeyStore(path)

	if ks.Exists() {
		t.Fatal("store should start empty")
	}

	key, err := Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if err := ks.Save(key); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	t.Log("Checking owner-only file permissions")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("key file mode = %o, want 600", info.Mode().Perm())
	}

	loaded, err := ks.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Address() != key.Address() {
		t.Error("loaded key differs from saved key")
	}
}

func TestKeystoreLoadMissing(t *testing.T) {
	ks := NewFileKeyStore(filepath.Join(t.TempDir(), "absent.pem"))
	_, err := ks.Load()
	if !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestKeystoreRejectsLoosePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.pem")
	ks := NewFileKeyStore(path)

	key, err := Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if err := ks.Save(key); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}

	_, err = ks.Load()
	if !errors.Is(err, ErrInvalidPermissions) {
		t.Errorf("expected ErrInvalidPermissions, got %v", err)
	}
}

func TestKeystoreRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.pem")
	if err := os.WriteFile(path, []byte("not a pem"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_, err := NewFileKeyStore(path).Load()
	if !errors.Is(err, ErrInvalidKeyFormat) {
		t.Errorf("expected ErrInvalidKeyFormat, got %v", err)
	}
}

func TestLoadOrGenerate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.pem")
	ks := NewFileKeyStore(path)

	first, err := ks.LoadOrGenerate()
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if !ks.Exists() {
		t.Fatal("key was not persisted")
	}

	t.Log("A second call loads the same key instead of generating a new one")
	second, err := ks.LoadOrGenerate()
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if first.Address() != second.Address() {
		t.Error("LoadOrGenerate returned a different key on reload")
	}
}
