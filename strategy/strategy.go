package strategy

import (
	"context"
	"errors"
)

// Strategy is the throttling policy bound to one job class, composed of
// zero, one, or two limiters. With no limiters it never throttles.
type Strategy struct {
	class       string
	concurrency *Concurrency
	threshold   *Threshold
}

// New builds a Strategy for the given class from its options, validating
// the limiter configuration.
func New(store Store, class string, opts Options) (*Strategy, error) {
	s := &Strategy{class: class}
	if opts.Concurrency != nil {
		if err := opts.Concurrency.validate(); err != nil {
			return nil, err
		}
		s.concurrency = newConcurrency(store, class, opts.Concurrency)
	}
	if opts.Threshold != nil {
		if err := opts.Threshold.validate(); err != nil {
			return nil, err
		}
		s.threshold = newThreshold(store, class, opts.Threshold)
	}
	return s, nil
}

// Class returns the job class this strategy is bound to.
func (s *Strategy) Class() string { return s.class }

// Throttled reports whether the job must be held back: true as soon as
// any composed limiter rejects it.
//
// Concurrency is evaluated before threshold and short-circuits: a job
// rejected for concurrency must not also consume a threshold admission,
// or the window counter would inflate with jobs that never ran. The
// same holds in the other direction: when the threshold rejects a job
// whose concurrency slot was just acquired, the slot is released again,
// so a requeued job never pins capacity it isn't using.
func (s *Strategy) Throttled(ctx context.Context, jid string, args ...any) (bool, error) {
	if s.concurrency != nil {
		throttled, err := s.concurrency.Throttled(ctx, jid, args...)
		if err != nil || throttled {
			return throttled, err
		}
	}
	if s.threshold != nil {
		throttled, err := s.threshold.Throttled(ctx, jid, args...)
		if s.concurrency != nil && (throttled || err != nil) {
			if relErr := s.concurrency.Finalize(ctx, jid, args...); relErr != nil {
				return throttled, errors.Join(err, relErr)
			}
		}
		return throttled, err
	}
	return false, nil
}

// Finalize releases any limiter state held on behalf of jid. Only the
// concurrency limiter has state to release; calling Finalize for a jid
// that holds nothing is a no-op.
func (s *Strategy) Finalize(ctx context.Context, jid string, args ...any) error {
	if s.concurrency == nil {
		return nil
	}
	return s.concurrency.Finalize(ctx, jid, args...)
}
