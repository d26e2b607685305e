package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps everything in process memory. Used for tests and for
// throwaway runs where nothing should survive a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]string)}
}

// Get implements Store.Get
func (s *MemoryStore) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	if err := validateAddress(namespace, key); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[namespace][key]
	return v, ok, nil
}

// Set implements Store.Set
func (s *MemoryStore) Set(ctx context.Context, namespace, key, value string) error {
	if err := validateAddress(namespace, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.data[namespace]
	if !ok {
		ns = make(map[string]string)
		s.data[namespace] = ns
	}
	ns[key] = value
	return nil
}

// Delete implements Store.Delete
func (s *MemoryStore) Delete(ctx context.Context, namespace, key string) error {
	if err := validateAddress(namespace, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[namespace], key)
	return nil
}

// Namespaces implements Store.Namespaces
func (s *MemoryStore) Namespaces(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for ns, keys := range s.data {
		if len(keys) > 0 {
			out = append(out, ns)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Ping implements Store.Ping
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close implements Store.Close
func (s *MemoryStore) Close() error { return nil }
