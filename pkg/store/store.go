// Package store provides SQLite-based durable storage for the credential
// registry and the client-side linkage cache. Only public identifiers are
// ever written here: credential ids, derived addresses and public keys,
// device labels, proof signatures and acceptance receipts. Private scalars
// have no column, no table and no code path into this package.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// cliName is used for state directory paths. Default "sealctl".
var cliName = "sealctl"

// SetCLIName sets the CLI name used for state directory paths. Call at CLI
// startup to isolate state between tools sharing this package.
func SetCLIName(name string) {
	cliName = name
}

// DefaultPath returns the default database path,
// ~/.local/share/<cli>/sealwrite.db (or the platform equivalent).
func DefaultPath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, ".local", "share", cliName, "sealwrite.db")
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. The parent directory is created with owner-only permissions.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS registrations (
		id                    TEXT PRIMARY KEY,
		credential_id         BLOB NOT NULL UNIQUE,
		credential_public_key BLOB NOT NULL,
		derived_address       TEXT NOT NULL UNIQUE,
		derived_public_key    BLOB NOT NULL,
		device_label          TEXT NOT NULL,
		proof_signer          TEXT NOT NULL,
		proof_signature       BLOB NOT NULL,
		created_at            INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS linkages (
		derived_address    TEXT PRIMARY KEY,
		credential_id      BLOB NOT NULL,
		derived_public_key BLOB NOT NULL,
		device_label       TEXT NOT NULL,
		created_at         INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS accepted_proposals (
		id             TEXT PRIMARY KEY,
		path           TEXT NOT NULL,
		content_digest TEXT NOT NULL,
		tier           INTEGER NOT NULL,
		signer_address TEXT NOT NULL,
		accepted_at    INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
