// Package monitor watches a breaker registry and reports state changes.
// It polls breaker statuses on an interval, logs open/close transitions
// and forwards them to the metrics collector. Purely observational; the
// breakers never depend on it.
package monitor
