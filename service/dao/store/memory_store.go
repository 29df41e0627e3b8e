package store

import (
	"context"
	"sync"

	"github.com/viant/idmint/service/dao"
)

// MemoryStore is a generic in-memory dao.Service. Keys come from keySelector;
// values are copied on the way in and out with copyFn so callers never share
// memory with the store.
type MemoryStore[K comparable, T any] struct {
	mu          sync.RWMutex
	records     map[K]*T
	keySelector func(*T) K
	copyFn      func(*T) *T
	matcher     func(*T, []*dao.Parameter) bool
}

// NewMemoryStore creates a new MemoryStore. A nil copyFn stores pointers as is.
func NewMemoryStore[K comparable, T any](keySelector func(*T) K, copyFn func(*T) *T) *MemoryStore[K, T] {
	if copyFn == nil {
		copyFn = func(v *T) *T { return v }
	}
	return &MemoryStore[K, T]{
		records:     make(map[K]*T),
		keySelector: keySelector,
		copyFn:      copyFn,
	}
}

// WithMatcher sets the List filter.
func (s *MemoryStore[K, T]) WithMatcher(matcher func(*T, []*dao.Parameter) bool) *MemoryStore[K, T] {
	s.matcher = matcher
	return s
}

// Save stores or overwrites a record.
func (s *MemoryStore[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	var zero K
	if key == zero {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = s.copyFn(v)
	return nil
}

// Load returns a record by key.
func (s *MemoryStore[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, dao.ErrNotFound
	}
	return s.copyFn(v), nil
}

// Update replaces the record under key with fn's result while holding the
// write lock. current is nil when the key is absent and must not be modified.
func (s *MemoryStore[K, T]) Update(key K, fn func(current *T) (*T, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.records[key])
	if err != nil {
		return err
	}
	if next == nil {
		return dao.ErrNilEntity
	}
	s.records[key] = s.copyFn(next)
	return nil
}

// Modify runs fn on the stored record itself, without copying, while holding
// the write lock. fn must leave the record untouched when it fails.
func (s *MemoryStore[K, T]) Modify(key K, fn func(current *T) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[key]
	if !ok {
		return dao.ErrNotFound
	}
	return fn(current)
}

// Delete removes a record.
func (s *MemoryStore[K, T]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return dao.ErrNotFound
	}
	delete(s.records, key)
	return nil
}

// List returns all stored records accepted by the matcher.
func (s *MemoryStore[K, T]) List(_ context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*T, 0, len(s.records))
	for _, v := range s.records {
		if s.matcher != nil && !s.matcher(v, parameters) {
			continue
		}
		out = append(out, s.copyFn(v))
	}
	return out, nil
}
