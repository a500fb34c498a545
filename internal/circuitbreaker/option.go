package circuitbreaker

import (
	"log/slog"
	"time"
)

// OnStateChangeFunc is called after the circuit transitions between states.
type OnStateChangeFunc func(service string, from, to State)

// OnCallFunc is called after an admitted call completes.
type OnCallFunc func(service string, state State, elapsed time.Duration, err error)

// OnRejectFunc is called when a call is rejected without being invoked.
type OnRejectFunc func(service string, err error)

// Option configures a Breaker at construction time.
type Option func(*Breaker)

// WithLogger sets the logger used for analyzer failures and state changes.
// A nil logger disables breaker logging.
func WithLogger(log *slog.Logger) Option {
	return func(b *Breaker) {
		b.logger = log
	}
}

// WithClock sets the clock used for open-timeout decisions. Useful for tests.
func WithClock(clock Clock) Option {
	return func(b *Breaker) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// WithAnalyzer attaches an optional failure analyzer. The analyzer observes
// outcomes after bookkeeping and can never veto an admission decision; a
// panicking analyzer is recovered and logged, never propagated.
func WithAnalyzer(analyzer FailureAnalyzer) Option {
	return func(b *Breaker) {
		b.analyzer = analyzer
	}
}

// OnStateChange sets a hook observing state transitions.
func OnStateChange(fn OnStateChangeFunc) Option {
	return func(b *Breaker) {
		b.onStateChange = fn
	}
}

// OnCall sets a hook observing completed calls.
func OnCall(fn OnCallFunc) Option {
	return func(b *Breaker) {
		b.onCall = fn
	}
}

// OnReject sets a hook observing rejected calls.
func OnReject(fn OnRejectFunc) Option {
	return func(b *Breaker) {
		b.onReject = fn
	}
}
