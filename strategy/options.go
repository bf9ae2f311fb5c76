package strategy

import (
	"errors"
	"time"
)

// DefaultSlotTTL is the safety ceiling applied to concurrency slots when
// ConcurrencyOptions.TTL is zero. A slot not explicitly released (worker
// crash, missed orphan recovery) is reclaimed after this long.
const DefaultSlotTTL = 15 * time.Minute

var (
	// ErrNoLimit is returned by Registry.Add when a limiter is configured
	// without a static limit or a limit function.
	ErrNoLimit = errors.New("strategy: limiter requires a limit or limit function")

	// ErrNoPeriod is returned by Registry.Add when a threshold limiter is
	// configured without a static period or a period function.
	ErrNoPeriod = errors.New("strategy: threshold requires a period or period function")
)

// LimitFunc resolves a limit from the job's argument list at evaluation
// time. Errors propagate to the caller of the throttle check: a broken
// limit function is a configuration bug, not a runtime condition to hide.
type LimitFunc func(args []any) (int, error)

// PeriodFunc resolves a threshold window from the job's argument list.
type PeriodFunc func(args []any) (time.Duration, error)

// KeyFunc derives a key suffix from the job's argument list, so jobs of
// the same class can be throttled in independent buckets (per tenant,
// per shard, ...). An empty result falls back to the class-wide bucket.
type KeyFunc func(args []any) string

// Options configures the strategy for one job class. A nil limiter
// section leaves that limiter out of the strategy; with both nil the
// strategy never throttles.
type Options struct {
	Concurrency *ConcurrencyOptions
	Threshold   *ThresholdOptions
}

// ConcurrencyOptions bounds the number of simultaneously in-flight jobs
// sharing a throttling key.
type ConcurrencyOptions struct {
	// Limit is the maximum number of concurrent jobs. Ignored when
	// LimitFunc is set. A resolved limit <= 0 throttles everything,
	// which suspends the class.
	Limit int

	// LimitFunc resolves the limit per job from its arguments.
	LimitFunc LimitFunc

	// TTL is the safety expiry for held slots. Defaults to
	// DefaultSlotTTL. Must exceed the longest expected job runtime,
	// otherwise live jobs lose their slot mid-run.
	TTL time.Duration

	// KeyFunc derives an optional bucket suffix from job arguments.
	KeyFunc KeyFunc
}

// ThresholdOptions bounds the number of admissions within a fixed time
// window sharing a throttling key.
type ThresholdOptions struct {
	// Limit is the maximum admissions per window. Ignored when LimitFunc
	// is set.
	Limit int

	// LimitFunc resolves the limit per job from its arguments.
	LimitFunc LimitFunc

	// Period is the window length. Ignored when PeriodFunc is set.
	Period time.Duration

	// PeriodFunc resolves the window per job from its arguments.
	PeriodFunc PeriodFunc

	// KeyFunc derives an optional bucket suffix from job arguments.
	KeyFunc KeyFunc
}

func (o *ConcurrencyOptions) validate() error {
	if o.Limit <= 0 && o.LimitFunc == nil {
		return ErrNoLimit
	}
	return nil
}

func (o *ThresholdOptions) validate() error {
	if o.Limit <= 0 && o.LimitFunc == nil {
		return ErrNoLimit
	}
	if o.Period <= 0 && o.PeriodFunc == nil {
		return ErrNoPeriod
	}
	return nil
}
