package circuitbreaker

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Default breaker parameters, used by Defaults and by the registry when a
// service has no explicit configuration.
const (
	DefaultFailureThreshold = 5
	DefaultSuccessThreshold = 2
	DefaultOpenTimeout      = 30 * time.Second
	DefaultHalfOpenMaxCalls = 1
)

// Config holds the parameters of a single breaker. A breaker keeps its
// Config as an immutable snapshot; UpdateConfig swaps the whole snapshot
// atomically, so in-flight calls finish under the config that admitted them.
type Config struct {
	// ServiceName identifies the protected dependency. Unique per breaker.
	ServiceName string

	// FailureThreshold is the number of consecutive failures in CLOSED
	// state that trips the circuit open.
	FailureThreshold int

	// SuccessThreshold is the number of consecutive trial successes in
	// HALF-OPEN state required to close the circuit again.
	SuccessThreshold int

	// OpenTimeout is how long the circuit stays OPEN before the next call
	// is allowed through as a trial.
	OpenTimeout time.Duration

	// HalfOpenMaxCalls caps the number of concurrent trial calls while
	// HALF-OPEN. Excess calls are rejected with ErrCircuitBusy.
	HalfOpenMaxCalls int
}

// Defaults returns a Config with the default thresholds and no service name.
// Intended as registry-wide defaults; the registry fills in the name.
func Defaults() Config {
	return Config{
		FailureThreshold: DefaultFailureThreshold,
		SuccessThreshold: DefaultSuccessThreshold,
		OpenTimeout:      DefaultOpenTimeout,
		HalfOpenMaxCalls: DefaultHalfOpenMaxCalls,
	}
}

// Validate checks that all breaker parameters are usable.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ServiceName, validation.Required),
		validation.Field(&c.FailureThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.SuccessThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.OpenTimeout, validation.Required, validation.By(validatePositiveDuration)),
		validation.Field(&c.HalfOpenMaxCalls, validation.Required, validation.Min(1)),
	)
}

func validatePositiveDuration(value interface{}) error {
	d, ok := value.(time.Duration)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a duration")
	}

	if d <= 0 {
		return validation.NewError("validation_invalid_duration", "must be a positive duration")
	}

	return nil
}
