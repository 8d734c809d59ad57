// Package memory provides an in-memory ledger.Store (for testing/dev).
package memory

import (
	"context"
	"sync"

	"github.com/splach-coder/dkm-apis/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory blob store
// =============================================================================

type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte

	// FailReads / FailWrites force the next operations to fail with the
	// given error. Used by tests to exercise transient-store paths.
	FailReads  error
	FailWrites error
}

func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

// Read returns a copy of the blob at key, or ledger.ErrNotFound.
func (s *Store) Read(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.FailReads != nil {
		return nil, s.FailReads
	}
	data, ok := s.blobs[key]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write replaces the blob at key. Last writer wins, whole-document.
func (s *Store) Write(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites != nil {
		return s.FailWrites
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	s.blobs[key] = stored
	return nil
}

// Keys returns the stored keys. Test helper.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		keys = append(keys, k)
	}
	return keys
}
