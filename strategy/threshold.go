package strategy

import (
	"context"
	"fmt"
	"time"
)

// Threshold limits how many jobs of a class may be admitted within a
// time window.
//
// Counting is fixed-window: the counter resets when its expiry lapses
// rather than sliding continuously, so a burst straddling a window edge
// can briefly admit up to twice the limit within a period-length sliding
// view. That is the accepted trade-off for O(1) cost per check; a
// sliding log or token bucket would be exact but proportionally more
// expensive on the shared store.
type Threshold struct {
	store    Store
	class    string
	limit    int
	limitFn  LimitFunc
	period   time.Duration
	periodFn PeriodFunc
	keyFn    KeyFunc
}

func newThreshold(store Store, class string, o *ThresholdOptions) *Threshold {
	return &Threshold{
		store:    store,
		class:    class,
		limit:    o.Limit,
		limitFn:  o.LimitFunc,
		period:   o.Period,
		periodFn: o.PeriodFunc,
		keyFn:    o.KeyFunc,
	}
}

// Throttled reports whether the job must be held back. The check itself
// consumes an admission: the window counter is incremented even when the
// answer is "throttled", which keeps the operation a single atomic
// increment.
func (t *Threshold) Throttled(ctx context.Context, _ string, args ...any) (bool, error) {
	limit, err := t.resolveLimit(args)
	if err != nil {
		return false, err
	}
	period, err := t.resolvePeriod(args)
	if err != nil {
		return false, err
	}

	key := throttlingKey(t.class, t.keyFn, args)
	n, err := t.store.IncrWindow(ctx, key, period)
	if err != nil {
		return false, fmt.Errorf("strategy: threshold %q: %w", key, err)
	}
	return n > int64(limit), nil
}

// Finalize is a no-op: a threshold admission is consumed at check time
// and there is no state to release.
func (t *Threshold) Finalize(_ context.Context, _ string, _ ...any) error { return nil }

func (t *Threshold) resolveLimit(args []any) (int, error) {
	if t.limitFn == nil {
		return t.limit, nil
	}
	limit, err := t.limitFn(args)
	if err != nil {
		return 0, fmt.Errorf("strategy: threshold limit for %q: %w", t.class, err)
	}
	return limit, nil
}

func (t *Threshold) resolvePeriod(args []any) (time.Duration, error) {
	if t.periodFn == nil {
		return t.period, nil
	}
	period, err := t.periodFn(args)
	if err != nil {
		return 0, fmt.Errorf("strategy: threshold period for %q: %w", t.class, err)
	}
	return period, nil
}
