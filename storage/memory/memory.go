// Package memory provides the in-process Store used by tests and the
// demo profile.
package memory

import (
	"context"
	"sync"

	shield "github.com/it22317094/posguard-brylix-shield"
)

// Store is a mutex-guarded map. Values are copied on the way in and out
// so callers cannot alias the internal buffers.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ shield.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Get returns the value for key, or ErrKeyNotFound.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, shield.ErrKeyNotFound
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	in := make([]byte, len(value))
	copy(in, value)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = in
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// Len reports the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
