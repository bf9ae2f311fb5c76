package fetch

import "context"

// UnitOfWork is one retrieved job plus the queue it came from.
// Implementations belong to the concrete fetcher (see fetch/redis).
type UnitOfWork interface {
	// Queue returns the name of the queue the job was popped from.
	Queue() string

	// Payload returns the serialized job message.
	Payload() []byte

	// Requeue pushes the job back to the front of its queue, preserving
	// at-least-once semantics.
	Requeue(ctx context.Context) error
}

// Fetcher is the underlying retrieval mechanism a ThrottledFetcher
// wraps. Implementations own the queue set and its polling policy
// (strict order or weighted); the decorator only toggles membership via
// Pause and Unpause.
type Fetcher interface {
	// RetrieveWork blocks until a job is available on an active queue or
	// its internal timeout lapses. It returns (nil, nil) when there is
	// no work; callers should back off before retrying.
	RetrieveWork(ctx context.Context) (UnitOfWork, error)

	// BulkRequeue pushes many units back onto their queues, typically
	// during shutdown.
	BulkRequeue(ctx context.Context, units []UnitOfWork) error

	// Pause removes a queue from the active polling set.
	Pause(queue string)

	// Unpause restores a queue to the active polling set.
	Unpause(queue string)
}

// Recorder observes throttle decisions. See the metrics package for an
// OpenTelemetry implementation.
//
// Only payloads this library can decode produce a decision: a foreign
// payload is dispatched without a Recorder call, so admitted plus
// throttled counts cover decodable jobs, not every retrieval.
type Recorder interface {
	// JobAdmitted is called when a retrieved job passes its throttle
	// check (or has no strategy) and is handed to the caller.
	JobAdmitted(ctx context.Context, queue, class string)

	// JobThrottled is called when a retrieved job is rejected, requeued,
	// and its queue placed in cooldown.
	JobThrottled(ctx context.Context, queue, class string)
}
