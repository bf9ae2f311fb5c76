// Package throttle limits how background jobs are admitted for execution
// across a fleet of worker processes that share nothing but a key-value
// store.
//
// Two limiter kinds are supported, composed per job class:
//
//   - Concurrency: at most N instances of a class in flight at once.
//   - Threshold: at most N admissions of a class per time window.
//
// Limits are enforced through atomic operations against a shared store
// (Redis or Postgres), so any number of independent fetch loops — across
// goroutines, processes, and hosts — observe the same budgets.
//
// # Quick start
//
//	store := redisstore.New(client)
//	reg := strategy.NewRegistry(store)
//	reg.Add("ReportsJob", strategy.Options{
//	    Threshold: &strategy.ThresholdOptions{Limit: 5, Period: 10 * time.Second},
//	})
//
//	inner := redisfetch.New(client, []string{"default"})
//	fetcher := fetch.NewThrottled(inner, reg)
//
// Wrap your fetch mechanism with fetch.NewThrottled: jobs whose strategy
// rejects them are pushed back to the front of their queue and the queue
// is excluded from polling for a short cooldown. Release concurrency
// slots after execution with the Finalizer middleware, and wire
// OrphanHandler into your fetcher's abandoned-job path so slots held by
// crashed workers are freed before their safety TTL runs out.
package throttle
