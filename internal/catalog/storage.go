package catalog

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Storage is the subset of browser local storage the catalog needs. go-app's
// BrowserStorage satisfies it structurally; MemStorage stands in for tests
// and server-side prerendering.
type Storage interface {
	Get(k string, v any) error
	Set(k string, v any) error
	Del(k string)
}

// MemStorage is an in-memory Storage with the same JSON semantics as the
// browser implementation.
type MemStorage struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemStorage() *MemStorage {
	return &MemStorage{m: make(map[string][]byte)}
}

func (s *MemStorage) Get(k string, v any) error {
	s.mu.RLock()
	data, ok := s.m[k]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (s *MemStorage) Set(k string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage set %q: %w", k, err)
	}
	s.mu.Lock()
	s.m[k] = data
	s.mu.Unlock()
	return nil
}

func (s *MemStorage) Del(k string) {
	s.mu.Lock()
	delete(s.m, k)
	s.mu.Unlock()
}

// Contains reports whether a key is present. Test helper.
func (s *MemStorage) Contains(k string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.m[k]
	return ok
}
