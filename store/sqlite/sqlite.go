/*
Package sqlite provides a SQLite-backed implementation of ledger.Store.

PURPOSE:
  Persists state blobs in a single key/value table. The ledger only ever
  reads and writes whole documents, so the schema is deliberately dumb:
  one row per key, the document as a BLOB.

CONCURRENCY:
  Uses sync.RWMutex for in-process thread-safety and WAL mode for better
  reader/writer behavior on disk. Note this does NOT add cross-invocation
  safety to the ledger itself: two processes doing read-modify-write of
  the same key still race, exactly as with any other Store backend.

USAGE:
  store, err := sqlite.New("./data/bestdoc.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  led := ledger.New(store)

SEE ALSO:
  - ledger/store.go: the contract implemented here
  - store/memory:    in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/splach-coder/dkm-apis/ledger"
)

// Store implements ledger.Store on a SQLite database.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (creating if needed) a SQLite store at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS state_blobs (
		key        TEXT PRIMARY KEY,
		data       BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);`
	_, err := s.db.Exec(schema)
	return err
}

// Read returns the blob at key, or ledger.ErrNotFound.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM state_blobs WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", key, err)
	}
	return data, nil
}

// Write upserts the blob at key. Last writer wins.
func (s *Store) Write(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO state_blobs (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	return nil
}
