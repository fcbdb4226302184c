// Package ratelimit implements the per-client request counters that gate
// sensitive endpoints. Counters use a sliding window that restarts once the
// window has elapsed since the first counted request.
//
// Two stores are provided: MemoryStore keeps counters in process memory and
// RedisStore shares them across instances. Both satisfy Limiter.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether another request from key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// entry tracks request counts for a single key within a time window.
type entry struct {
	count       int
	windowStart time.Time
}

// MemoryStore is an in-process Limiter. Increment-then-compare happens under
// one mutex so concurrent requests from the same key cannot both slip under
// the limit. Expired entries are removed by Sweep, which Run calls
// periodically.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a store allowing limit requests per window.
func NewMemoryStore(limit int, window time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow counts a request for key and reports whether it is within the limit.
// It never returns an error.
func (s *MemoryStore) Allow(_ context.Context, key string) (bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || now.Sub(e.windowStart) > s.window {
		e = &entry{windowStart: now}
		s.entries[key] = e
	}
	e.count++
	return e.count <= s.limit, nil
}

// Sweep deletes entries whose window has elapsed and returns how many were
// removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if now.Sub(e.windowStart) > s.window {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Run sweeps expired entries every interval until ctx is cancelled.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
