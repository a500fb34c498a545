package circuitbreaker

import "errors"

// ErrCircuitOpen is returned when a call is rejected because the circuit is
// OPEN and the open timeout has not elapsed yet.
var ErrCircuitOpen = errors.New("circuit open")

// ErrCircuitBusy is returned when a call is rejected because the HALF-OPEN
// trial concurrency cap is already reached.
var ErrCircuitBusy = errors.New("circuit busy: trial call limit reached")

// IsOpen reports whether err is a rejection caused by an open circuit.
func IsOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// IsBusy reports whether err is a rejection caused by the trial call cap.
func IsBusy(err error) bool {
	return errors.Is(err, ErrCircuitBusy)
}

// IsRejected reports whether err means the breaker refused the call without
// invoking the wrapped work.
func IsRejected(err error) bool {
	return IsOpen(err) || IsBusy(err)
}
