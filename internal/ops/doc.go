// Package ops exposes the administrative HTTP surface of the gate:
// breaker status snapshots and manual resets.
package ops
