/*
store.go - Durable blob store contract

PURPOSE:
  The ledger is persisted as one structured document at a well-known key.
  This file defines the minimal contract the ledger needs from whatever
  storage backs it: read a blob, write a blob. Transport, authentication
  and retries live behind the implementation.

MISSING KEY SEMANTICS:
  Read returns ErrNotFound for a key that has never been written. The
  ledger deliberately treats that as "empty state", not as an error -
  bootstrap and re-ingestion are idempotent by record id.

IMPLEMENTATIONS:
  - store/memory: in-memory map (tests, dev)
  - store/sqlite: SQLite blob table (local persistence)
  Production blob storage is an external collaborator implementing the
  same two methods.
*/
package ledger

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store.Read for a key that has never been
// written. Callers must distinguish it from transport failures.
var ErrNotFound = errors.New("state key not found")

// Store persists opaque blobs under string keys. Both methods must honor
// ctx cancellation and return within a bounded time; a timeout surfaces
// as an error, never as success.
type Store interface {
	// Read returns the blob at key, or ErrNotFound.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write replaces the blob at key. There is no version token: the last
	// writer wins, whole-document.
	Write(ctx context.Context, key string, data []byte) error
}
