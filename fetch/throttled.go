package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/throttle"
	"github.com/xraph/throttle/expirable"
	"github.com/xraph/throttle/strategy"
)

// DefaultCooldown is how long a queue stays out of polling after a job
// from it was throttled.
const DefaultCooldown = 2 * time.Second

// Compile-time interface check.
var _ Fetcher = (*ThrottledFetcher)(nil)

// ThrottledFetcher decorates a Fetcher with throttle checks.
//
// A ThrottledFetcher instance serves one fetch loop: its cooldown list
// is unsynchronized by design, and the pause/retrieve/unpause sequence
// assumes no concurrent RetrieveWork calls on the same instance. Run
// one instance per loop; cross-loop correctness lives in the shared
// store, not here.
type ThrottledFetcher struct {
	inner    Fetcher
	registry *strategy.Registry
	codec    throttle.Codec
	cooldown *expirable.List
	duration time.Duration
	recorder Recorder
	logger   *slog.Logger
}

// ThrottledOption configures a ThrottledFetcher.
type ThrottledOption func(*ThrottledFetcher)

// WithCooldown sets how long a throttled job's queue is excluded from
// polling. Defaults to DefaultCooldown.
func WithCooldown(d time.Duration) ThrottledOption {
	return func(f *ThrottledFetcher) { f.duration = d }
}

// WithCodec sets the payload codec. Defaults to JSON.
func WithCodec(c throttle.Codec) ThrottledOption {
	return func(f *ThrottledFetcher) { f.codec = c }
}

// WithRecorder sets the throttle-decision recorder.
func WithRecorder(r Recorder) ThrottledOption {
	return func(f *ThrottledFetcher) { f.recorder = r }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ThrottledOption {
	return func(f *ThrottledFetcher) { f.logger = l }
}

// WithCooldownList overrides the cooldown list, for tests that control
// the clock.
func WithCooldownList(l *expirable.List) ThrottledOption {
	return func(f *ThrottledFetcher) { f.cooldown = l }
}

// NewThrottled wraps inner with throttle checks against reg.
func NewThrottled(inner Fetcher, reg *strategy.Registry, opts ...ThrottledOption) *ThrottledFetcher {
	f := &ThrottledFetcher{
		inner:    inner,
		registry: reg,
		codec:    throttle.JSONCodec{},
		cooldown: expirable.New(),
		duration: DefaultCooldown,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RetrieveWork runs one retrieval cycle: pause cooled-down queues,
// delegate, unpause, and test the result against the registry. It
// returns (nil, nil) when the inner fetcher had no work or when the
// retrieved job was throttled and requeued.
func (f *ThrottledFetcher) RetrieveWork(ctx context.Context) (UnitOfWork, error) {
	unit, err := f.retrieve(ctx)
	if err != nil || unit == nil {
		return nil, err
	}

	msg, decErr := throttle.DecodeMessage(f.codec, unit.Payload())
	if decErr != nil {
		// A payload this library cannot read is someone else's job
		// format; dispatch it rather than wedge the queue. No throttle
		// decision was made, so the recorder sees nothing.
		f.logger.Debug("payload not throttleable",
			slog.String("queue", unit.Queue()),
			slog.String("error", decErr.Error()),
		)
		return unit, nil
	}

	strat := f.registry.Get(msg.ClassName())
	if strat == nil {
		f.admitted(ctx, unit.Queue(), msg.ClassName())
		return unit, nil
	}

	throttled, thrErr := strat.Throttled(ctx, msg.JID, msg.Args...)
	if thrErr != nil {
		// The store failed mid-decision. Put the job back before
		// surfacing the error so it is not lost with this cycle.
		if rqErr := unit.Requeue(ctx); rqErr != nil {
			return nil, errors.Join(
				fmt.Errorf("fetch: throttle check: %w", thrErr),
				fmt.Errorf("fetch: requeue after failed check: %w", rqErr),
			)
		}
		return nil, fmt.Errorf("fetch: throttle check: %w", thrErr)
	}

	if !throttled {
		f.admitted(ctx, unit.Queue(), msg.ClassName())
		return unit, nil
	}

	if rqErr := unit.Requeue(ctx); rqErr != nil {
		return nil, fmt.Errorf("fetch: requeue throttled job: %w", rqErr)
	}
	f.cooldown.Add(unit.Queue(), f.duration)
	if f.recorder != nil {
		f.recorder.JobThrottled(ctx, unit.Queue(), msg.ClassName())
	}
	f.logger.Debug("job throttled",
		slog.String("queue", unit.Queue()),
		slog.String("class", msg.ClassName()),
		slog.String("jid", msg.JID),
	)
	return nil, nil
}

// retrieve delegates to the inner fetcher with cooled-down queues
// paused. The unpause runs unconditionally, including when the inner
// retrieval fails.
func (f *ThrottledFetcher) retrieve(ctx context.Context) (UnitOfWork, error) {
	paused := f.cooldown.Tokens()
	for _, q := range paused {
		f.inner.Pause(q)
	}
	defer func() {
		for _, q := range paused {
			f.inner.Unpause(q)
		}
	}()
	return f.inner.RetrieveWork(ctx)
}

// BulkRequeue delegates directly to the inner fetcher.
func (f *ThrottledFetcher) BulkRequeue(ctx context.Context, units []UnitOfWork) error {
	return f.inner.BulkRequeue(ctx, units)
}

// Pause delegates to the inner fetcher.
func (f *ThrottledFetcher) Pause(queue string) { f.inner.Pause(queue) }

// Unpause delegates to the inner fetcher.
func (f *ThrottledFetcher) Unpause(queue string) { f.inner.Unpause(queue) }

// CooldownQueues returns the queues currently excluded from polling.
func (f *ThrottledFetcher) CooldownQueues() []string {
	return f.cooldown.Tokens()
}

func (f *ThrottledFetcher) admitted(ctx context.Context, queue, class string) {
	if f.recorder != nil {
		f.recorder.JobAdmitted(ctx, queue, class)
	}
}
