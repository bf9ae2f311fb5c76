package fetch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/throttle/backoff"
)

// Handler processes one admitted unit of work.
type Handler func(ctx context.Context, unit UnitOfWork) error

// FetcherFactory builds the fetcher for one loop. Each loop needs its
// own ThrottledFetcher instance because the cooldown list is
// loop-local.
type FetcherFactory func() Fetcher

// Poller drives one or more fetch loops over a fetcher and hands
// admitted jobs to a handler.
type Poller struct {
	factory FetcherFactory
	handler Handler
	loops   int
	idle    backoff.Strategy
	logger  *slog.Logger
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithLoops sets the number of concurrent fetch loops. Defaults to 1.
func WithLoops(n int) PollerOption {
	return func(p *Poller) { p.loops = n }
}

// WithIdleBackoff sets the sleep strategy after empty retrieval cycles.
func WithIdleBackoff(s backoff.Strategy) PollerOption {
	return func(p *Poller) { p.idle = s }
}

// WithPollerLogger sets the structured logger.
func WithPollerLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) { p.logger = l }
}

// NewPoller creates a Poller. The factory is invoked once per loop.
func NewPoller(factory FetcherFactory, handler Handler, opts ...PollerOption) *Poller {
	p := &Poller{
		factory: factory,
		handler: handler,
		loops:   1,
		idle:    backoff.DefaultStrategy(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts the fetch loops and blocks until ctx is cancelled.
// It always returns ctx's error; retrieval and handler errors are
// logged and retried, not fatal.
func (p *Poller) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := range p.loops {
		g.Go(func() error {
			p.loop(ctx, i, p.factory())
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

func (p *Poller) loop(ctx context.Context, n int, fetcher Fetcher) {
	idle := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		unit, err := fetcher.RetrieveWork(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			idle++
			p.logger.Error("retrieve failed",
				slog.Int("loop", n),
				slog.String("error", err.Error()),
			)
			p.sleep(ctx, idle)
			continue
		}

		if unit == nil {
			// No work, or everything retrieved was throttled. Either
			// way the loop must not spin on an effectively empty
			// queue set.
			idle++
			p.sleep(ctx, idle)
			continue
		}

		idle = 0
		if handleErr := p.handler(ctx, unit); handleErr != nil {
			p.logger.Error("handler failed",
				slog.Int("loop", n),
				slog.String("queue", unit.Queue()),
				slog.String("error", handleErr.Error()),
			)
		}
	}
}

func (p *Poller) sleep(ctx context.Context, attempt int) {
	d := p.idle.Delay(attempt)
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
