// Package state provides the console's durable client-side storage.
//
// The store is a small bucketed key/value table in SQLite (pure-Go
// modernc.org/sqlite driver, no CGO). The session token is its main tenant;
// see TokenStorage.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/y-ui/yuictl/internal/clock"
	"github.com/y-ui/yuictl/internal/logging"
)

// Common errors
var (
	ErrNotFound    = errors.New("key not found")
	ErrStoreClosed = errors.New("store is closed")
)

// MemoryPath opens a store that lives only as long as the process.
const MemoryPath = ":memory:"

// chmod is replaced in tests.
var chmod = os.Chmod

// Store is the key/value storage interface.
type Store interface {
	Get(bucket, key string) ([]byte, error)
	Set(bucket, key string, value []byte) error
	Delete(bucket, key string) error

	GetJSON(bucket, key string, v any) error
	SetJSON(bucket, key string, v any) error

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	clock  clock.Clock
}

// Options configures the SQLite store.
type Options struct {
	Path   string          // Database file path (":memory:" for in-memory)
	Clock  clock.Clock     // Optional: time source (defaults to RealClock if nil)
	Logger *logging.Logger // Optional: defaults to the "state" component logger
}

// NewSQLiteStore opens (creating if needed) a SQLite-backed store.
func NewSQLiteStore(ctx context.Context, opts Options) (*SQLiteStore, error) {
	dsn := opts.Path
	if dsn == "" {
		dsn = MemoryPath
	}
	if dsn != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
		dsn = "file:" + dsn + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: an in-memory database is per-connection, and the
	// console never needs concurrent writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SQLiteStore{
		db:    db,
		clock: clock.OrReal(opts.Clock),
	}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if opts.Path != "" && opts.Path != MemoryPath {
		// The token is a credential; keep the file private.
		if err := chmod(opts.Path, 0o600); err != nil {
			logger := opts.Logger
			if logger == nil {
				logger = logging.WithComponent("state")
			}
			logger.Warn("failed to restrict state file permissions", "path", opts.Path, "error", err)
		}
	}

	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS entries (
			bucket TEXT NOT NULL,
			key TEXT NOT NULL,
			value BLOB,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (bucket, key)
		);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Get retrieves a value by bucket and key.
func (s *SQLiteStore) Get(bucket, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var value []byte
	err := s.db.QueryRow(
		"SELECT value FROM entries WHERE bucket = ? AND key = ?",
		bucket, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores a value, replacing any previous one (last writer wins).
func (s *SQLiteStore) Set(bucket, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO entries (bucket, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(bucket, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, bucket, key, value, s.clock.Now().UTC())
	return err
}

// Delete removes a key. Deleting a missing key returns ErrNotFound.
func (s *SQLiteStore) Delete(bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	result, err := s.db.Exec("DELETE FROM entries WHERE bucket = ? AND key = ?", bucket, key)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetJSON retrieves and unmarshals a JSON value.
func (s *SQLiteStore) GetJSON(bucket, key string, v any) error {
	data, err := s.Get(bucket, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// SetJSON marshals and stores a JSON value.
func (s *SQLiteStore) SetJSON(bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(bucket, key, data)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
