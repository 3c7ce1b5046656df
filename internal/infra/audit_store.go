package infra

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

const (
	auditDBName        = "audit.db"
	auditSchemaVersion = "1"

	// DefaultHistoryLimit is used when Recent is called with a non-positive limit.
	DefaultHistoryLimit = 20
)

// AuditStore implements domain.EnforcementRecorder using a SQLCipher
// encrypted SQLite database.
type AuditStore struct {
	db     *sql.DB
	dbPath string
}

// AuditDBPath returns the audit database location inside dataDir.
func AuditDBPath(dataDir string) string {
	return filepath.Join(dataDir, auditDBName)
}

// NewAuditStore opens (or creates) the encrypted audit database at dbPath.
// The key is used as the SQLCipher raw key via PRAGMA key. Opening an
// existing database with a key that does not belong to it returns
// ErrAuditKeyMismatch.
func NewAuditStore(dbPath string, key []byte) (*AuditStore, error) {
	_, statErr := os.Stat(dbPath)
	existed := statErr == nil

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, hex.EncodeToString(key))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	// A wrong key only surfaces on the first real read.
	if err := unlock(db); err != nil {
		db.Close()
		if existed {
			return nil, fmt.Errorf("%w: %s: %v", ErrAuditKeyMismatch, dbPath, err)
		}
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	store := &AuditStore{db: db, dbPath: dbPath}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	if err := store.bindKey(key); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func unlock(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return err
	}
	var n int
	return db.QueryRow(`SELECT COUNT(*) FROM sqlite_master`).Scan(&n)
}

// bindKey records the key fingerprint on first open and checks it afterwards.
func (s *AuditStore) bindKey(key []byte) error {
	want := KeyFingerprint(key)
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO meta (key, value) VALUES ('key_fingerprint', ?)`, want); err != nil {
		return fmt.Errorf("failed to record key fingerprint: %w", err)
	}
	var got string
	if err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'key_fingerprint'`).Scan(&got); err != nil {
		return fmt.Errorf("failed to read key fingerprint: %w", err)
	}
	if got != want {
		return fmt.Errorf("%w: %s: fingerprint %s, key %s", ErrAuditKeyMismatch, s.dbPath, got, want)
	}
	return nil
}

func (s *AuditStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS enforcement_actions (
		id TEXT PRIMARY KEY,
		pid INTEGER NOT NULL,
		process_name TEXT NOT NULL,
		action TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_enforcement_actions_created
		ON enforcement_actions (created_at);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`, auditSchemaVersion)
	return err
}

// Record stores one enforcement action.
func (s *AuditStore) Record(rec domain.EnforcementRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("enforcement record has no id")
	}
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO enforcement_actions (id, pid, process_name, action, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PID, rec.ProcessName, string(rec.Action), rec.Reason, at.UnixNano(),
	)
	return err
}

// Recent returns up to limit records, newest first.
func (s *AuditStore) Recent(limit int) ([]domain.EnforcementRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := s.db.Query(`
		SELECT id, pid, process_name, action, reason, created_at
		FROM enforcement_actions
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EnforcementRecord
	for rows.Next() {
		var rec domain.EnforcementRecord
		var action string
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.PID, &rec.ProcessName, &action, &rec.Reason, &createdAt); err != nil {
			return nil, err
		}
		rec.Action = domain.EnforcementAction(action)
		rec.At = time.Unix(0, createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (s *AuditStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM enforcement_actions`).Scan(&n)
	return n, err
}

// Path returns the database file path.
func (s *AuditStore) Path() string {
	return s.dbPath
}

// Close releases the database connection.
func (s *AuditStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// OpenAuditStore opens the audit database in dataDir with the key stored
// beside it, creating both on first use.
func OpenAuditStore(dataDir string) (*AuditStore, error) {
	dbPath := AuditDBPath(dataDir)
	key, err := provisionAuditKey(NewAuditKeyFile(dbPath), dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to provision audit key: %w", err)
	}
	return NewAuditStore(dbPath, key)
}

var _ domain.EnforcementRecorder = (*AuditStore)(nil)
