package infra

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

// An audit key lives next to the database it unlocks, as "<db>.key". The file
// holds one line: the key in the hex form SQLCipher takes in PRAGMA key,
// followed by a short fingerprint. The same fingerprint is stored in the
// database's meta table, so a key file from another install is rejected
// before any history is read.

const (
	auditKeySuffix = ".key"
	auditKeySize   = 32 // SQLCipher raw key
	fingerprintLen = 8
)

var (
	// ErrAuditKeyMissing means the database exists but nothing can unlock it.
	ErrAuditKeyMissing = errors.New("audit database has no key")

	// ErrAuditKeyMismatch means the key file does not belong to the database.
	ErrAuditKeyMismatch = errors.New("audit key does not unlock audit database")
)

// AuditKeyFile implements domain.KeyProvider for one audit database.
type AuditKeyFile struct {
	path string
}

// NewAuditKeyFile returns the key file of the database at dbPath.
func NewAuditKeyFile(dbPath string) *AuditKeyFile {
	return &AuditKeyFile{path: dbPath + auditKeySuffix}
}

// Path returns the key file location.
func (f *AuditKeyFile) Path() string {
	return f.path
}

// GetKey reads and verifies the key.
func (f *AuditKeyFile) GetKey() ([]byte, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit key: %w", err)
	}

	fields := strings.Fields(string(raw))
	if len(fields) != 2 {
		return nil, fmt.Errorf("malformed audit key file %s", f.path)
	}
	key, err := hex.DecodeString(fields[0])
	if err != nil || len(key) != auditKeySize {
		return nil, fmt.Errorf("malformed audit key in %s", f.path)
	}
	if KeyFingerprint(key) != fields[1] {
		return nil, fmt.Errorf("audit key file %s is corrupted: fingerprint mismatch", f.path)
	}
	return key, nil
}

// StoreKey writes the key atomically with owner-only permissions.
func (f *AuditKeyFile) StoreKey(key []byte) error {
	if len(key) != auditKeySize {
		return fmt.Errorf("audit key must be %d bytes, got %d", auditKeySize, len(key))
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	line := hex.EncodeToString(key) + " " + KeyFingerprint(key) + "\n"
	tmpPath := fmt.Sprintf("%s.%d.tmp", f.path, os.Getpid())
	if err := os.WriteFile(tmpPath, []byte(line), 0600); err != nil {
		return fmt.Errorf("failed to write audit key: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write audit key: %w", err)
	}
	return nil
}

// KeyExists checks if the key file exists.
func (f *AuditKeyFile) KeyExists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// KeyFingerprint identifies a key without revealing it.
func KeyFingerprint(key []byte) string {
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:fingerprintLen])
}

// provisionAuditKey returns the key for the database at dbPath. A new key is
// minted only for a database that does not exist yet; one minted for an
// existing file could never open it.
func provisionAuditKey(keys domain.KeyProvider, dbPath string) ([]byte, error) {
	if keys.KeyExists() {
		return keys.GetKey()
	}
	if _, err := os.Stat(dbPath); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAuditKeyMissing, dbPath)
	}

	key := make([]byte, auditKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate audit key: %w", err)
	}
	if err := keys.StoreKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

var _ domain.KeyProvider = (*AuditKeyFile)(nil)
