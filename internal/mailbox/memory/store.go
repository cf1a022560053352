// Package memory provides an in-process mailbox store for tests and for
// running the orchestrator and agent inside one binary.
package memory

import (
	"context"
	"sync"
	"time"
)

// Store keeps mailbox entries in a map. Writes wake any watchers of the
// key, so in-process waiters do not have to sit out a full poll interval.
type Store struct {
	mu       sync.Mutex
	values   map[string]entry
	watchers map[string][]chan struct{}
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		values:   make(map[string]entry),
		watchers: make(map[string][]chan struct{}),
	}
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.values[key] = entry{value: append([]byte(nil), value...)}
	s.notifyLocked(key)
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(s.values, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.values[key]; ok {
		if e.expiresAt.IsZero() || time.Now().Before(e.expiresAt) {
			return false, nil
		}
	}
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	s.values[key] = e
	s.notifyLocked(key)
	return true, nil
}

// Watch returns a channel that ticks on every write to key. The channel is
// buffered; a slow reader misses intermediate ticks but never the fact
// that something changed.
func (s *Store) Watch(key string) <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.watchers[key] = append(s.watchers[key], ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) notifyLocked(key string) {
	for _, ch := range s.watchers[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
