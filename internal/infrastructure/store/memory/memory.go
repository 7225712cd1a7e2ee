// Package memory implements an in-process expiring key-value store.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SerPepe/402fly/internal/infrastructure/store"
)

type entry struct {
	value   []byte
	expires time.Time
}

func (e entry) expiredAt(now time.Time) bool {
	return now.After(e.expires)
}

// Store keeps entries in a mutex-guarded map. Expired entries are invisible
// to Get immediately and reclaimed by the cleanup sweep.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func New() *Store {
	return &Store{
		entries: make(map[string]entry),
	}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || e.expiredAt(time.Now()) {
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	return e.value, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{
		value:   value,
		expires: time.Now().Add(ttl),
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return fmt.Errorf("%w: %q", store.ErrNotFound, key)
	}

	delete(s.entries, key)
	return nil
}

// Cleanup removes expired entries and returns how many were reclaimed.
func (s *Store) Cleanup() int {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if e.expiredAt(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// StartCleanup sweeps expired entries on the given interval until the context
// is cancelled.
func (s *Store) StartCleanup(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Cleanup()
		}
	}
}
