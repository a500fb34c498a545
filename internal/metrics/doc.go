// Package metrics aggregates circuit breaker observability data. Breaker
// hooks publish events over a buffered channel; a collector goroutine
// folds them into per-service counters and latency percentiles and exposes
// a JSON snapshot for the ops endpoint. Event publishing never blocks the
// breaker's call path.
package metrics
