// Package fetch integrates throttling into job retrieval.
//
// ThrottledFetcher decorates any Fetcher: each retrieval cycle pauses
// queues currently in cooldown, delegates to the inner fetcher, tests
// the returned job against the strategy registry, and — when the job is
// throttled — requeues it at the front of its queue and puts that queue
// into cooldown. The cooldown is process-local and purely a politeness
// heuristic; correctness comes from the shared-store limiters.
//
// Poller runs one or more fetch loops over a Fetcher and hands admitted
// jobs to a handler, backing off while no work is available.
package fetch
