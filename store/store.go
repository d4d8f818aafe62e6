// Package store provides the persistent key-value capability backing the
// local sliding-window limiter. Implementations are deliberately tiny:
// the limiter serializes bucket records itself and only needs string
// get/set/remove semantics, which keeps in-memory fakes trivial and lets
// integrators plug in whatever client-side store they have.
package store

import "sync"

// Store is the injected persistence capability. A missing key is not an
// error: Get returns ok=false. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// MemoryStore is a mutex-guarded map implementation of [Store]. It is the
// default backing store and the fake used throughout the test suite.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]string),
	}
}

// Get describes the stored value for key, reporting ok=false when absent.
func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[key]
	return v, ok, nil
}

// Set stores value under key, replacing any previous value.
func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return nil
}

// Remove deletes key. Removing a missing key is a no-op.
func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// Len returns the number of stored keys. Used by tests.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.data)
}
