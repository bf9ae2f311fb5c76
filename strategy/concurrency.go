package strategy

import (
	"context"
	"fmt"
	"time"
)

// Concurrency limits how many jobs of a class may be in flight at once.
// The active set lives in the shared store; the acquire is atomic, so
// N workers racing for the last slot admit exactly one.
type Concurrency struct {
	store   Store
	class   string
	limit   int
	limitFn LimitFunc
	ttl     time.Duration
	keyFn   KeyFunc
}

func newConcurrency(store Store, class string, o *ConcurrencyOptions) *Concurrency {
	ttl := o.TTL
	if ttl <= 0 {
		ttl = DefaultSlotTTL
	}
	return &Concurrency{
		store:   store,
		class:   class,
		limit:   o.Limit,
		limitFn: o.LimitFunc,
		ttl:     ttl,
		keyFn:   o.KeyFunc,
	}
}

// Throttled reports whether the job must be held back. On admission the
// jid now occupies a slot and the caller is responsible for releasing it
// via Finalize once the job finishes (or through orphan recovery).
func (c *Concurrency) Throttled(ctx context.Context, jid string, args ...any) (bool, error) {
	limit, err := c.resolveLimit(args)
	if err != nil {
		return false, err
	}

	key := throttlingKey(c.class, c.keyFn, args)
	acquired, err := c.store.AcquireSlot(ctx, key, jid, limit, c.ttl)
	if err != nil {
		return false, fmt.Errorf("strategy: concurrency %q: %w", key, err)
	}
	return !acquired, nil
}

// Finalize releases the slot held by jid. Releasing a jid that holds no
// slot is a no-op: the slot may already have expired via its safety TTL
// or been released by orphan recovery.
func (c *Concurrency) Finalize(ctx context.Context, jid string, args ...any) error {
	key := throttlingKey(c.class, c.keyFn, args)
	if err := c.store.ReleaseSlot(ctx, key, jid); err != nil {
		return fmt.Errorf("strategy: release %q: %w", key, err)
	}
	return nil
}

func (c *Concurrency) resolveLimit(args []any) (int, error) {
	if c.limitFn == nil {
		return c.limit, nil
	}
	limit, err := c.limitFn(args)
	if err != nil {
		return 0, fmt.Errorf("strategy: concurrency limit for %q: %w", c.class, err)
	}
	return limit, nil
}
