// Package memory is an in-process CounterStore for tests and local
// development. Counts live in a process-local map, so it must not back
// a multi-instance deployment.
package memory

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count  int64
	expiry time.Time
}

type Store struct {
	mu sync.Mutex
	m  map[string]*entry
}

func NewStore() *Store {
	s := &Store{m: map[string]*entry{}}
	go s.cleanupLoop()

	return s
}

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		s.mu.Lock()
		for k, e := range s.m {
			if e == nil || e.expiry.Before(now) {
				delete(s.m, k)
			}
		}
		s.mu.Unlock()
	}
}

// Incr performs the compare-and-increment under one critical section so
// a rejected call never consumes quota and two concurrent calls cannot
// both take the last slot.
func (s *Store) Incr(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[key]
	if !ok || e == nil || e.expiry.Before(now) {
		e = &entry{count: 1, expiry: now.Add(ttl)}
		s.m[key] = e
		return 1, true, nil
	}

	if e.count >= limit {
		return e.count, false, nil
	}

	e.count++
	return e.count, true, nil
}
