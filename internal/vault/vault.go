// Package vault encrypts and decrypts per-agent secrets (spec.md §3, §4.1
// "Init ... decrypts or creates the vault", §7 "Integrity").
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a secret key has no stored value, and after
// a secret has been removed (spec.md §8 "after removal reads error").
var ErrNotFound = errors.New("vault: secret not found")

// ErrDecryptFailed is the generic integrity failure spec.md §7 requires:
// it never leaks which check failed.
var ErrDecryptFailed = errors.New("vault: decryption failed")

// Vault encrypts secrets with AES-256-GCM under a single per-process master
// key, storing ciphertext per (agent, key) in a sqlite table.
//
// Standard library crypto/aes + crypto/cipher is used rather than a
// third-party AEAD package: none of the examples reach for an external
// crypto library for this concern, and Go's stdlib GCM implementation is
// the idiomatic default for exactly this shape of problem.
type Vault struct {
	db        *sql.DB
	masterKey [32]byte
}

// LoadOrCreateMasterKey reads MOXXY_VAULT_KEY (base64, 32 bytes) from the
// environment, or reads/generates a key file at path.
func LoadOrCreateMasterKey(path string) ([32]byte, error) {
	var key [32]byte
	if env := os.Getenv("MOXXY_VAULT_KEY"); env != "" {
		raw, err := base64.StdEncoding.DecodeString(env)
		if err != nil || len(raw) != 32 {
			return key, fmt.Errorf("vault: MOXXY_VAULT_KEY must be 32 bytes base64-encoded")
		}
		copy(key[:], raw)
		return key, nil
	}

	if raw, err := os.ReadFile(path); err == nil {
		decoded, err := base64.StdEncoding.DecodeString(string(raw))
		if err != nil || len(decoded) != 32 {
			return key, fmt.Errorf("vault: corrupt key file at %s", path)
		}
		copy(key[:], decoded)
		return key, nil
	}

	if _, err := rand.Read(key[:]); err != nil {
		return key, fmt.Errorf("vault: generate key: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(key[:])
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		return key, fmt.Errorf("vault: persist key: %w", err)
	}
	return key, nil
}

// Open opens (creating if necessary) the per-agent secret table at path.
func Open(path string, masterKey [32]byte) (*Vault, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("vault: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS secrets (
		agent TEXT NOT NULL,
		key TEXT NOT NULL,
		ciphertext BLOB NOT NULL,
		PRIMARY KEY (agent, key)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("vault: open: %w", err)
	}
	return &Vault{db: db, masterKey: masterKey}, nil
}

// Close releases the underlying database handle.
func (v *Vault) Close() error { return v.db.Close() }

// agentKey derives a per-agent subkey so compromising one agent's derived
// key cannot decrypt another agent's secrets even though the DB file can be
// shared, matching spec.md's per-(agent, key) identity for secrets.
func agentKey(master [32]byte, agent string) [32]byte {
	h := sha256.New()
	h.Write(master[:])
	h.Write([]byte(agent))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (v *Vault) cipherFor(agent string) (cipher.AEAD, error) {
	key := agentKey(v.masterKey, agent)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	return cipher.NewGCM(block)
}

// Set encrypts and stores value under (agent, key).
func (v *Vault) Set(ctx context.Context, agent, key, value string) error {
	gcm, err := v.cipherFor(agent)
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("vault: nonce: %w", err)
	}
	ciphertext := gcm.Seal(nonce, nonce, []byte(value), nil)

	_, err = v.db.ExecContext(ctx, `
		INSERT INTO secrets (agent, key, ciphertext) VALUES (?, ?, ?)
		ON CONFLICT(agent, key) DO UPDATE SET ciphertext = excluded.ciphertext
	`, agent, key, ciphertext)
	if err != nil {
		return fmt.Errorf("vault: set: %w", err)
	}
	return nil
}

// Get decrypts and returns the plaintext for (agent, key).
func (v *Vault) Get(ctx context.Context, agent, key string) (string, error) {
	var ciphertext []byte
	err := v.db.QueryRowContext(ctx,
		`SELECT ciphertext FROM secrets WHERE agent = ? AND key = ?`, agent, key).Scan(&ciphertext)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("vault: get: %w", err)
	}

	gcm, err := v.cipherFor(agent)
	if err != nil {
		return "", err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return "", ErrDecryptFailed
	}
	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}

// Remove deletes a secret. Subsequent Get calls return ErrNotFound.
func (v *Vault) Remove(ctx context.Context, agent, key string) error {
	_, err := v.db.ExecContext(ctx, `DELETE FROM secrets WHERE agent = ? AND key = ?`, agent, key)
	if err != nil {
		return fmt.Errorf("vault: remove: %w", err)
	}
	return nil
}

// List returns the keys (never values) stored for an agent.
func (v *Vault) List(ctx context.Context, agent string) ([]string, error) {
	rows, err := v.db.QueryContext(ctx, `SELECT key FROM secrets WHERE agent = ?`, agent)
	if err != nil {
		return nil, fmt.Errorf("vault: list: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("vault: list: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// AllDecrypted returns the full decrypted vault for an agent, used only
// when injecting secrets into a privileged tool whose manifest sets
// needs_env (spec.md §3 "At-most-one secret leak on path").
func (v *Vault) AllDecrypted(ctx context.Context, agent string) (map[string]string, error) {
	keys, err := v.List(ctx, agent)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		val, err := v.Get(ctx, agent, k)
		if err != nil {
			return nil, err
		}
		out[k] = val
	}
	return out, nil
}
