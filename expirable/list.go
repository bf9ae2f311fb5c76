// Package expirable provides a small in-process set of string tokens
// with independent expiries. The throttled fetcher uses it to keep
// recently throttled queues out of polling for a cooldown interval.
package expirable

import "time"

type entry struct {
	token     string
	expiresAt time.Time
}

// List holds tokens with per-token expiry. Expired entries are purged
// lazily whenever Tokens is called; a purge never blocks a read.
//
// List has no internal locking. It is owned by a single fetch loop and
// must not be shared across goroutines.
type List struct {
	now     func() time.Time
	entries []entry
}

// Option configures a List.
type Option func(*List)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *List) { l.now = now }
}

// New creates an empty list.
func New(opts ...Option) *List {
	l := &List{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Add records token with expiry now+ttl, replacing any prior expiry for
// the same token. A zero or negative ttl yields an entry that is
// already expired.
func (l *List) Add(token string, ttl time.Duration) {
	expiresAt := l.now().Add(ttl)
	for i := range l.entries {
		if l.entries[i].token == token {
			l.entries[i].expiresAt = expiresAt
			return
		}
	}
	l.entries = append(l.entries, entry{token: token, expiresAt: expiresAt})
}

// Tokens returns the tokens whose expiry has not passed, discarding the
// rest as a side effect. A token is live iff now < expiresAt.
func (l *List) Tokens() []string {
	now := l.now()
	live := l.entries[:0]
	tokens := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		if now.Before(e.expiresAt) {
			live = append(live, e)
			tokens = append(tokens, e.token)
		}
	}
	l.entries = live
	return tokens
}

// Len returns the number of live tokens, purging expired ones.
func (l *List) Len() int { return len(l.Tokens()) }
