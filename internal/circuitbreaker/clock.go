package circuitbreaker

import "time"

// Clock abstracts time for the breaker so open-timeout behavior can be
// tested without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}
