// Package memory implements strategy.Store with in-process maps.
// Intended for unit testing and development; limits enforced through it
// are only visible within one process.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/throttle/strategy"
)

// Compile-time interface check.
var _ strategy.Store = (*Store)(nil)

type window struct {
	count   int64
	resetAt time.Time
}

// Store is a mutex-guarded in-memory strategy.Store.
// Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	now     func() time.Time
	slots   map[string]map[string]time.Time // key -> jid -> slot expiry
	windows map[string]window
}

// Option configures the Store.
type Option func(*Store)

// WithClock overrides the time source, for tests that advance time.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a new empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		now:     time.Now,
		slots:   make(map[string]map[string]time.Time),
		windows: make(map[string]window),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AcquireSlot implements strategy.Store.
func (s *Store) AcquireSlot(_ context.Context, key, jid string, limit int, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	set := s.slots[key]
	for id, expiresAt := range set {
		if !now.Before(expiresAt) {
			delete(set, id)
		}
	}

	// A jid that already holds a slot is readmitted with a refreshed
	// expiry rather than counted against itself, so at-least-once
	// redelivery of a running job is not throttled by its own slot.
	active := len(set)
	if _, held := set[jid]; held {
		active--
	}
	if active >= limit || limit <= 0 {
		return false, nil
	}
	if set == nil {
		set = make(map[string]time.Time)
		s.slots[key] = set
	}
	set[jid] = now.Add(ttl)
	return true, nil
}

// ReleaseSlot implements strategy.Store.
func (s *Store) ReleaseSlot(_ context.Context, key, jid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if set, ok := s.slots[key]; ok {
		delete(set, jid)
		if len(set) == 0 {
			delete(s.slots, key)
		}
	}
	return nil
}

// IncrWindow implements strategy.Store.
func (s *Store) IncrWindow(_ context.Context, key string, period time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = window{count: 0, resetAt: now.Add(period)}
	}
	w.count++
	s.windows[key] = w
	return w.count, nil
}

// ActiveCount returns the number of live slots under key. Useful in
// tests and diagnostics.
func (s *Store) ActiveCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for _, expiresAt := range s.slots[key] {
		if now.Before(expiresAt) {
			n++
		}
	}
	return n
}
