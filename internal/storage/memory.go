package storage

import (
	"context"
	"sync"
)

// MemoryStore is an in-process ObjectStore used by tests and local runs
// without an object-storage endpoint.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailDelete makes Delete return an error, for exercising best-effort
	// cleanup paths.
	FailDelete bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Upload(_ context.Context, bucket, key string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := Ref(bucket, key)
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[ref] = cp
	return ref, nil
}

func (s *MemoryStore) Download(_ context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[ref]
	if !ok {
		return nil, ErrObjectNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (s *MemoryStore) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDelete {
		return ErrObjectNotFound
	}
	delete(s.objects, ref)
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, bucket, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[Ref(bucket, key)]
	return ok, nil
}

// Len reports how many objects are held, for cleanup assertions in tests.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

var _ ObjectStore = (*MemoryStore)(nil)
