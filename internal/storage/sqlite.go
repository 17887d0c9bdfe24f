package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLite store constants.
const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// defaultCapacity is the entry budget when none is configured.
	defaultCapacity = 1024

	// connMaxIdleTime is how long idle connections are kept open.
	connMaxIdleTime = 30 * time.Minute
)

// Value kind tags stored alongside each entry. A typed getter only matches
// entries of its own kind; a kind mismatch reads as an absent key.
const (
	kindBool   = "bool"
	kindInt    = "int"
	kindFloat  = "float"
	kindString = "string"
	kindBytes  = "bytes"
)

// Config contains SQLite store configuration options.
// These map to the storage section of config.yaml.
type Config struct {
	// Path is the filesystem path to the SQLite database file.
	// The directory will be created if it doesn't exist.
	Path string

	// Namespace scopes keys, mirroring an NVS namespace. Multiple registries
	// can share one database file under different namespaces.
	Namespace string

	// WALMode enables Write-Ahead Logging for better concurrent access.
	WALMode bool

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	BusyTimeout int

	// Capacity is the entry budget reported by Stats and enforced on Put.
	// Zero selects the default (1024 entries).
	Capacity int
}

// SQLiteStore is a Store backed by a single SQLite table.
//
// One row per (namespace, key); values are stored as text for scalars and
// raw blobs for bytes. All methods are safe for concurrent use.
type SQLiteStore struct {
	db        *sql.DB
	namespace string
	capacity  int

	// mu serialises writes so the capacity check and insert are atomic.
	mu sync.Mutex
}

// Open creates a new SQLite-backed store with the specified configuration.
//
// It performs the following setup:
//  1. Creates the database directory if it doesn't exist
//  2. Opens the database file (creates if not present)
//  3. Configures WAL mode and busy timeout
//  4. Sets appropriate file permissions (0600)
//  5. Creates the parameter table if absent
//
// Parameters:
//   - cfg: Store configuration
//
// Returns:
//   - *SQLiteStore: Ready store
//   - error: If connection or schema setup fails
func Open(cfg Config) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	// Build connection string with pragmas
	// See: https://github.com/mattn/go-sqlite3#connection-string
	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path,
		cfg.BusyTimeout*msPerSecond,
	)

	// Add WAL mode if enabled
	if cfg.WALMode {
		connStr += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	const schema = `
		CREATE TABLE IF NOT EXISTS parameters (
			namespace  TEXT NOT NULL,
			key        TEXT NOT NULL,
			kind       TEXT NOT NULL,
			value      BLOB NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (namespace, key)
		)`
	if _, err := db.Exec(schema); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("creating parameter table: %w", err)
	}

	// Set file permissions (owner read/write only)
	_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // First run may create the file later

	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity
	}

	return &SQLiteStore{
		db:        db,
		namespace: cfg.Namespace,
		capacity:  capacity,
	}, nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}

// get reads the raw value for a key, matching the expected kind.
func (s *SQLiteStore) get(key, kind string) ([]byte, bool) {
	var gotKind string
	var value []byte

	row := s.db.QueryRow(
		`SELECT kind, value FROM parameters WHERE namespace = ? AND key = ?`,
		s.namespace, key,
	)
	if err := row.Scan(&gotKind, &value); err != nil {
		return nil, false
	}
	if gotKind != kind {
		return nil, false
	}
	return value, true
}

// put upserts a typed value, enforcing the capacity budget for new keys.
func (s *SQLiteStore) put(key, kind string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	row := s.db.QueryRow(
		`SELECT COUNT(*) FROM parameters WHERE namespace = ? AND key = ?`,
		s.namespace, key,
	)
	if err := row.Scan(&exists); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	if exists == 0 {
		used, err := s.usedEntries()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
		if used >= s.capacity {
			return fmt.Errorf("%w: %d entries", ErrCapacityExceeded, s.capacity)
		}
	}

	_, err := s.db.Exec(
		`INSERT INTO parameters (namespace, key, kind, value, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET
		     kind = excluded.kind,
		     value = excluded.value,
		     updated_at = excluded.updated_at`,
		s.namespace, key, kind, value, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// usedEntries counts keys in this store's namespace. Caller holds mu.
func (s *SQLiteStore) usedEntries() (int, error) {
	var used int
	row := s.db.QueryRow(`SELECT COUNT(*) FROM parameters WHERE namespace = ?`, s.namespace)
	if err := row.Scan(&used); err != nil {
		return 0, err
	}
	return used, nil
}

// GetBool returns the stored boolean for key, or def if absent.
func (s *SQLiteStore) GetBool(key string, def bool) (bool, bool) {
	raw, found := s.get(key, kindBool)
	if !found {
		return def, false
	}
	return string(raw) == "1", true
}

// GetInt returns the stored int32 for key, or def if absent.
func (s *SQLiteStore) GetInt(key string, def int32) (int32, bool) {
	raw, found := s.get(key, kindInt)
	if !found {
		return def, false
	}
	v, err := strconv.ParseInt(string(raw), 10, 32)
	if err != nil {
		return def, false
	}
	return int32(v), true
}

// GetFloat returns the stored float32 for key, or def if absent.
func (s *SQLiteStore) GetFloat(key string, def float32) (float32, bool) {
	raw, found := s.get(key, kindFloat)
	if !found {
		return def, false
	}
	v, err := strconv.ParseFloat(string(raw), 32)
	if err != nil {
		return def, false
	}
	return float32(v), true
}

// GetString returns the stored string for key, or def if absent.
func (s *SQLiteStore) GetString(key string, def string) (string, bool) {
	raw, found := s.get(key, kindString)
	if !found {
		return def, false
	}
	return string(raw), true
}

// GetBytes returns the stored blob for key, or nil if absent.
// The returned slice is a fresh copy the caller may retain.
func (s *SQLiteStore) GetBytes(key string) ([]byte, bool) {
	raw, found := s.get(key, kindBytes)
	if !found {
		return nil, false
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, true
}

// PutBool stores a boolean value.
func (s *SQLiteStore) PutBool(key string, value bool) error {
	encoded := "0"
	if value {
		encoded = "1"
	}
	return s.put(key, kindBool, []byte(encoded))
}

// PutInt stores an int32 value.
func (s *SQLiteStore) PutInt(key string, value int32) error {
	return s.put(key, kindInt, []byte(strconv.FormatInt(int64(value), 10)))
}

// PutFloat stores a float32 value.
func (s *SQLiteStore) PutFloat(key string, value float32) error {
	return s.put(key, kindFloat, []byte(strconv.FormatFloat(float64(value), 'g', -1, 32)))
}

// PutString stores a string value.
func (s *SQLiteStore) PutString(key string, value string) error {
	return s.put(key, kindString, []byte(value))
}

// PutBytes stores a blob value.
func (s *SQLiteStore) PutBytes(key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	return s.put(key, kindBytes, stored)
}

// Remove deletes a single key. Removing an absent key is not an error.
func (s *SQLiteStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`DELETE FROM parameters WHERE namespace = ? AND key = ?`,
		s.namespace, key,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// Clear deletes every key in this store's namespace.
func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM parameters WHERE namespace = ?`, s.namespace)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// Stats reports entry usage against the configured capacity budget.
func (s *SQLiteStore) Stats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	used, err := s.usedEntries()
	if err != nil {
		if errors.Is(err, sql.ErrConnDone) {
			return Stats{}, ErrStoreClosed
		}
		return Stats{}, fmt.Errorf("reading store stats: %w", err)
	}

	free := s.capacity - used
	if free < 0 {
		free = 0
	}
	return Stats{
		UsedEntries:  used,
		FreeEntries:  free,
		TotalEntries: s.capacity,
	}, nil
}
