package circuitbreaker

import (
	"log/slog"
	"time"
)

// FailureAnalyzer is an optional strategy for analyzing call outcomes, e.g.
// latency profiling or adaptive threshold research. It is invoked after the
// breaker's own bookkeeping, outside the breaker lock, and is purely
// observational: it cannot alter admission decisions, and any panic it
// raises is swallowed and logged.
type FailureAnalyzer interface {
	OnSuccess(service string, elapsed time.Duration)
	OnFailure(service string, elapsed time.Duration, err error)
}

// analyze invokes the attached analyzer, isolating the breaker from
// whatever the analyzer does.
func (b *Breaker) analyze(elapsed time.Duration, err error) {
	if b.analyzer == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			if b.logger != nil {
				b.logger.Warn("Failure analyzer panicked",
					slog.String("service", b.name),
					slog.Any("panic", r))
			}
		}
	}()

	if err != nil {
		b.analyzer.OnFailure(b.name, elapsed, err)
	} else {
		b.analyzer.OnSuccess(b.name, elapsed)
	}
}
