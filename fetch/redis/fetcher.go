// Package redis provides a Fetcher over Redis lists: one list per
// queue, blocking pop for retrieval, left push for front-requeue.
//
// The active queue set is process-local state: Pause and Unpause toggle
// membership without touching Redis, so a paused queue simply drops out
// of the next BLPOP's key list.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/xraph/throttle"
	"github.com/xraph/throttle/fetch"
)

// DefaultTimeout is the blocking-pop timeout for one retrieval.
const DefaultTimeout = 2 * time.Second

// Compile-time interface checks.
var (
	_ fetch.Fetcher    = (*Fetcher)(nil)
	_ fetch.UnitOfWork = (*unit)(nil)
)

// Option configures the Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the blocking-pop timeout. Defaults to DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

// WithCodec sets the payload codec used by Enqueue. Defaults to JSON.
func WithCodec(c throttle.Codec) Option {
	return func(f *Fetcher) { f.codec = c }
}

// WithDequeueRate caps retrievals at r per second with the given burst.
// Zero disables pacing.
func WithDequeueRate(r float64, burst int) Option {
	return func(f *Fetcher) {
		if r > 0 {
			if burst <= 0 {
				burst = 1
			}
			f.limiter = rate.NewLimiter(rate.Limit(r), burst)
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// Fetcher retrieves jobs from Redis list queues.
//
// RetrieveWork is meant to be called from a single fetch loop; Pause
// and Unpause may be called from that loop between retrievals. The
// paused set is guarded so BulkRequeue and diagnostics can run from
// other goroutines.
type Fetcher struct {
	client  goredis.Cmdable
	queues  []string
	codec   throttle.Codec
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger

	mu     sync.Mutex
	paused map[string]struct{}
}

// New creates a Fetcher polling the given queues in order.
// The caller owns the Redis client lifecycle.
func New(client goredis.Cmdable, queues []string, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  client,
		queues:  queues,
		codec:   throttle.JSONCodec{},
		timeout: DefaultTimeout,
		logger:  slog.Default(),
		paused:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RetrieveWork pops one job from the first active queue with work,
// blocking up to the configured timeout. It returns (nil, nil) when no
// work arrived in time or every queue is paused.
func (f *Fetcher) RetrieveWork(ctx context.Context) (fetch.UnitOfWork, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("throttle/redisfetch: pacing: %w", err)
		}
	}

	active := f.activeQueues()
	if len(active) == 0 {
		// Effectively empty queue set; the caller backs off.
		return nil, nil
	}

	keys := make([]string, len(active))
	for i, q := range active {
		keys[i] = queueKey(q)
	}

	res, err := f.client.BLPop(ctx, f.timeout, keys...).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("throttle/redisfetch: retrieve: %w", err)
	}

	return &unit{
		client:  f.client,
		queue:   queueName(res[0]),
		payload: []byte(res[1]),
	}, nil
}

// BulkRequeue pushes all units back to the front of their queues in one
// pipeline.
func (f *Fetcher) BulkRequeue(ctx context.Context, units []fetch.UnitOfWork) error {
	if len(units) == 0 {
		return nil
	}
	pipe := f.client.Pipeline()
	for _, u := range units {
		pipe.LPush(ctx, queueKey(u.Queue()), u.Payload())
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("throttle/redisfetch: bulk requeue: %w", err)
	}
	return nil
}

// Pause removes a queue from the active polling set.
func (f *Fetcher) Pause(queue string) {
	f.mu.Lock()
	f.paused[queue] = struct{}{}
	f.mu.Unlock()
}

// Unpause restores a queue to the active polling set.
func (f *Fetcher) Unpause(queue string) {
	f.mu.Lock()
	delete(f.paused, queue)
	f.mu.Unlock()
}

// Enqueue serializes a job message and pushes it to the back of the
// queue, returning the generated jid.
func (f *Fetcher) Enqueue(ctx context.Context, queue, class string, args ...any) (string, error) {
	msg := &throttle.Message{
		Class: class,
		JID:   uuid.NewString(),
		Args:  args,
	}
	payload, err := f.codec.Encode(msg)
	if err != nil {
		return "", fmt.Errorf("throttle/redisfetch: encode %q: %w", class, err)
	}
	if err := f.client.RPush(ctx, queueKey(queue), payload).Err(); err != nil {
		return "", fmt.Errorf("throttle/redisfetch: enqueue %q: %w", class, err)
	}
	return msg.JID, nil
}

func (f *Fetcher) activeQueues() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	active := make([]string, 0, len(f.queues))
	for _, q := range f.queues {
		if _, ok := f.paused[q]; !ok {
			active = append(active, q)
		}
	}
	return active
}

// unit is one popped job.
type unit struct {
	client  goredis.Cmdable
	queue   string
	payload []byte
}

func (u *unit) Queue() string   { return u.queue }
func (u *unit) Payload() []byte { return u.payload }

// Requeue pushes the job back to the front of its queue, so a throttled
// job is retried before newer work.
func (u *unit) Requeue(ctx context.Context) error {
	if err := u.client.LPush(ctx, queueKey(u.queue), u.payload).Err(); err != nil {
		return fmt.Errorf("throttle/redisfetch: requeue: %w", err)
	}
	return nil
}
