/*
errors.go - Error types for the ingestion ledger

PURPOSE:
  All error types of the ledger package in one place. Callers decide retry
  behavior with errors.Is/errors.As; the ledger itself never retries a
  mutation internally (a silent retry of a read-modify-write could apply
  the same batch twice).

ERROR CATEGORIES:
  1. Store errors     - wrapped as StoreError, retryable at cycle granularity
  2. Record errors    - MalformedRecordError, per-record, never blocks a batch
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStoreUnavailable marks a durable-store read or write failure.
	// The whole ingestion cycle may be retried; individual mutations are not.
	ErrStoreUnavailable = errors.New("ledger store unavailable")

	// ErrRecordMalformed marks a record whose required fields are missing or
	// unparseable. The record is skipped this cycle and retried on the next
	// one once corrected upstream.
	ErrRecordMalformed = errors.New("record malformed")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// StoreError wraps a failed store operation with the key and operation that
// failed. Unwraps to ErrStoreUnavailable.
type StoreError struct {
	Op  string // "read" or "write"
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("ledger store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return ErrStoreUnavailable }

// MalformedRecord describes one record skipped during ingestion or
// transformation. It is reported, not returned as a hard failure: the rest
// of the batch proceeds and the record stays unprocessed.
type MalformedRecord struct {
	ID     RecordID
	Reason string
}

func (e *MalformedRecord) Error() string {
	return fmt.Sprintf("record %d malformed: %s", e.ID, e.Reason)
}

func (e *MalformedRecord) Unwrap() error { return ErrRecordMalformed }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on a retried cycle.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
