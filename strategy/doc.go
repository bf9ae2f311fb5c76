// Package strategy implements throttling strategies for job classes.
//
// A Strategy composes up to two limiters — Concurrency (bounded in-flight
// jobs) and Threshold (bounded admissions per time window) — evaluated in
// that order with short-circuiting. Limiter state lives in a shared Store
// whose mutations are atomic, which is what makes the limits hold across
// independent worker processes.
//
// A Registry maps job class names to their strategies and optionally
// resolves a class through its declared ancestry when the class has no
// strategy of its own.
package strategy
