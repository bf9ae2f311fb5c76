package strategy

import (
	"context"
	"time"
)

// Store is the shared key-value backend limiter state lives in.
// Implementations are in store/memory, store/redis, and store/postgres.
//
// Every worker process in the fleet evaluates limiters against the same
// store, concurrently. AcquireSlot and IncrWindow are therefore required
// to be atomic: a single indivisible operation (Lua script, transaction,
// or equivalent), never a read followed by a write.
type Store interface {
	// AcquireSlot adds jid to the active set under key iff the set holds
	// fewer than limit live entries besides jid itself, and returns
	// whether the slot was acquired. A jid already holding a slot is
	// readmitted with a refreshed expiry, never rejected by its own
	// entry. Each entry expires after ttl as a safety net
	// against slots leaked by crashed workers; ttl must exceed the
	// longest expected job runtime. A limit <= 0 never acquires.
	AcquireSlot(ctx context.Context, key, jid string, limit int, ttl time.Duration) (bool, error)

	// ReleaseSlot removes jid from the active set under key. Removing a
	// jid that is absent (already expired or already released) is not an
	// error.
	ReleaseSlot(ctx context.Context, key, jid string) error

	// IncrWindow increments the fixed-window counter under key and
	// returns the post-increment value. When the increment creates the
	// counter, its expiry is set to period.
	IncrWindow(ctx context.Context, key string, period time.Duration) (int64, error)
}
