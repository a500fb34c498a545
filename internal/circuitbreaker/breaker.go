package circuitbreaker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Rejecting calls
	StateHalfOpen              // Probing recovery with trial calls
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// MarshalText lets State render as its name in JSON status payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "CLOSED":
		*s = StateClosed
	case "OPEN":
		*s = StateOpen
	case "HALF-OPEN":
		*s = StateHalfOpen
	default:
		return fmt.Errorf("unknown breaker state %q", text)
	}
	return nil
}

// Stats are the monotonic call counters of one breaker. TotalCalls counts
// every Execute attempt including rejected ones; SuccessfulCalls and
// FailedCalls count admitted calls only.
type Stats struct {
	TotalCalls      int64 `json:"total_calls"`
	SuccessfulCalls int64 `json:"successful_calls"`
	FailedCalls     int64 `json:"failed_calls"`
	TimesOpened     int64 `json:"times_opened"`
	TimesClosed     int64 `json:"times_closed"`
}

// Status is a consistent point-in-time snapshot of one breaker, read under
// a single lock acquisition.
type Status struct {
	Service              string    `json:"service"`
	State                State     `json:"state"`
	ConsecutiveFailures  int       `json:"consecutive_failures"`
	ConsecutiveSuccesses int       `json:"consecutive_successes"`
	HalfOpenInFlight     int       `json:"half_open_in_flight"`
	Stats                Stats     `json:"stats"`
	LastFailureAt        time.Time `json:"last_failure_at"`
	LastSuccessAt        time.Time `json:"last_success_at"`
}

// Breaker is one circuit breaker guarding calls to a single logical
// dependency. Safe for concurrent use. The mutex covers bookkeeping only;
// wrapped work always runs outside the lock.
type Breaker struct {
	name     string
	clock    Clock
	logger   *slog.Logger
	analyzer FailureAnalyzer

	onStateChange OnStateChangeFunc
	onCall        OnCallFunc
	onReject      OnRejectFunc

	mutex                sync.Mutex
	cfg                  *Config
	state                State
	generation           uint64
	consecutiveFailures  int
	consecutiveSuccesses int
	halfOpenInFlight     int
	lastFailureAt        time.Time
	lastSuccessAt        time.Time
	stats                Stats
}

// admission is the outcome of a successful admit: the state the call was
// admitted in, the config snapshot valid at admission, whether the call
// holds a HALF-OPEN trial slot, and the generation the slot belongs to.
type admission struct {
	state      State
	cfg        *Config
	trial      bool
	generation uint64
}

// New creates a breaker for cfg.ServiceName in CLOSED state.
func New(cfg Config, opts ...Option) (*Breaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid breaker config: %w", err)
	}

	b := &Breaker{
		name:  cfg.ServiceName,
		cfg:   &cfg,
		clock: systemClock{},
		state: StateClosed,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// Name returns the protected service name.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state. It never advances the state machine;
// the OPEN to HALF-OPEN timeout check happens on admission.
func (b *Breaker) State() State {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.state
}

// Config returns the current config snapshot.
func (b *Breaker) Config() Config {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return *b.cfg
}

// Status returns a snapshot of the breaker's state and counters.
func (b *Breaker) Status() Status {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return Status{
		Service:              b.name,
		State:                b.state,
		ConsecutiveFailures:  b.consecutiveFailures,
		ConsecutiveSuccesses: b.consecutiveSuccesses,
		HalfOpenInFlight:     b.halfOpenInFlight,
		Stats:                b.stats,
		LastFailureAt:        b.lastFailureAt,
		LastSuccessAt:        b.lastSuccessAt,
	}
}

// Execute runs work under breaker protection. If the circuit rejects the
// call, work is never invoked and the returned error satisfies IsOpen or
// IsBusy. Otherwise work runs exactly once, outside the breaker lock, and
// its error is returned to the caller unchanged. A panic in work is
// recorded as a failure and then re-raised.
func (b *Breaker) Execute(ctx context.Context, work func(context.Context) error) error {
	adm, err := b.admit()
	if err != nil {
		if b.onReject != nil {
			b.onReject(b.name, err)
		}
		return err
	}

	start := b.clock.Now()

	var workErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				// Bookkeeping must not be skipped on abnormal exit.
				elapsed := b.clock.Now().Sub(start)
				panicErr := fmt.Errorf("panic in wrapped work: %v", r)
				b.settle(false, adm)
				b.analyze(elapsed, panicErr)
				if b.onCall != nil {
					b.onCall(b.name, adm.state, elapsed, panicErr)
				}
				panic(r)
			}
		}()
		workErr = work(ctx)
	}()

	elapsed := b.clock.Now().Sub(start)
	b.settle(workErr == nil, adm)
	b.analyze(elapsed, workErr)

	if b.onCall != nil {
		b.onCall(b.name, adm.state, elapsed, workErr)
	}

	return workErr
}

// Reset forces the breaker back to CLOSED and zeroes every counter,
// including the stats. Intended for admin tooling.
func (b *Breaker) Reset() {
	b.mutex.Lock()
	from := b.state
	b.state = StateClosed
	b.generation++
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	b.halfOpenInFlight = 0
	b.lastFailureAt = time.Time{}
	b.lastSuccessAt = time.Time{}
	b.stats = Stats{}
	b.mutex.Unlock()

	if from != StateClosed {
		b.notify(&transition{from: from, to: StateClosed})
	}
}

// UpdateConfig atomically replaces the config snapshot. The service name
// cannot change; in-flight calls finish under the snapshot that admitted
// them.
func (b *Breaker) UpdateConfig(cfg Config) error {
	cfg.ServiceName = b.name
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid breaker config: %w", err)
	}

	b.mutex.Lock()
	b.cfg = &cfg
	b.mutex.Unlock()
	return nil
}

// admit decides whether a call may proceed.
func (b *Breaker) admit() (admission, error) {
	b.mutex.Lock()
	cfg := b.cfg

	var change *transition
	if b.state == StateOpen {
		// >= so a call arriving exactly at the boundary gets a trial.
		if b.clock.Now().Sub(b.lastFailureAt) >= cfg.OpenTimeout {
			change = b.transitionTo(StateHalfOpen)
		} else {
			b.stats.TotalCalls++
			b.mutex.Unlock()
			return admission{}, fmt.Errorf("%s: %w", b.name, ErrCircuitOpen)
		}
	}

	adm := admission{state: b.state, cfg: cfg, generation: b.generation}
	if b.state == StateHalfOpen {
		if b.halfOpenInFlight >= cfg.HalfOpenMaxCalls {
			b.stats.TotalCalls++
			b.mutex.Unlock()
			b.notify(change)
			return admission{}, fmt.Errorf("%s: %w", b.name, ErrCircuitBusy)
		}
		b.halfOpenInFlight++
		adm.trial = true
	}

	b.stats.TotalCalls++
	b.mutex.Unlock()
	b.notify(change)
	return adm, nil
}

// settle records the outcome of an admitted call under the config snapshot
// that admitted it.
func (b *Breaker) settle(success bool, adm admission) {
	b.mutex.Lock()
	now := b.clock.Now()

	// A call that outlived the generation it was admitted in updates call
	// counters only: its trial slot was zeroed by the transition that
	// superseded it, and its outcome must not steer the current generation.
	stale := adm.generation != b.generation

	if adm.trial && !stale && b.halfOpenInFlight > 0 {
		b.halfOpenInFlight--
	}

	var change *transition
	if success {
		b.stats.SuccessfulCalls++

		if !stale {
			b.lastSuccessAt = now
			switch b.state {
			case StateClosed:
				b.consecutiveFailures = 0
			case StateHalfOpen:
				b.consecutiveSuccesses++
				if b.consecutiveSuccesses >= adm.cfg.SuccessThreshold {
					change = b.transitionTo(StateClosed)
				}
			}
		}
	} else {
		b.stats.FailedCalls++

		if !stale {
			b.lastFailureAt = now
			switch b.state {
			case StateClosed:
				b.consecutiveFailures++
				if b.consecutiveFailures >= adm.cfg.FailureThreshold {
					change = b.transitionTo(StateOpen)
				}
			case StateHalfOpen:
				// Any trial failure re-opens immediately, discarding the
				// success streak.
				change = b.transitionTo(StateOpen)
			}
		}
	}

	b.mutex.Unlock()
	b.notify(change)
}

type transition struct {
	from, to State
}

// transitionTo switches state, bumps the generation and zeroes the run
// counters. Caller must hold the mutex. Returns nil on a no-op so
// TimesOpened and TimesClosed only move on real transitions.
func (b *Breaker) transitionTo(to State) *transition {
	if b.state == to {
		return nil
	}

	from := b.state
	b.state = to
	b.generation++
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	b.halfOpenInFlight = 0

	switch to {
	case StateOpen:
		b.stats.TimesOpened++
	case StateClosed:
		b.stats.TimesClosed++
	}

	return &transition{from: from, to: to}
}

// notify fires the state-change hook outside the lock.
func (b *Breaker) notify(change *transition) {
	if change == nil {
		return
	}

	if b.logger != nil {
		b.logger.Debug("Circuit state changed",
			slog.String("service", b.name),
			slog.String("from", change.from.String()),
			slog.String("to", change.to.String()))
	}

	if b.onStateChange != nil {
		b.onStateChange(b.name, change.from, change.to)
	}
}
