package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
)

// MemoryStore is a map-backed Store for tests and embedded use.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]Record)}
}

func key(name, scope string) string {
	return filepath.Clean(scope) + "\x00" + name
}

func (s *MemoryStore) List(_ context.Context, scope string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]Record, 0, len(s.recs))
	for _, r := range s.recs {
		all = append(all, r)
	}
	return visible(all, scope), nil
}

func (s *MemoryStore) Get(_ context.Context, name, scope string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]Record, 0, len(s.recs))
	for _, r := range s.recs {
		all = append(all, r)
	}
	rec, ok := findByName(visible(all, scope), name, scope)
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Put(_ context.Context, rec Record) error {
	s.mu.Lock()
	s.recs[key(rec.Name, rec.Scope)] = rec
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, name, scope string) error {
	rec, err := s.Get(ctx, name, scope)
	if errors.Is(err, ErrRecordNotFound) {
		return nil // idempotent
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.recs, key(rec.Name, rec.Scope))
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
