package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/angeloszaimis/resilience-gate/internal/circuitbreaker"
	"github.com/angeloszaimis/resilience-gate/internal/metrics"
)

// Watch periodically polls the registry and reports breaker state changes
// until ctx is cancelled. The collector may be nil when only logging is
// wanted.
func Watch(
	ctx context.Context,
	registry *circuitbreaker.Registry,
	interval time.Duration,
	logger *slog.Logger,
	collector *metrics.Collector,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	seen := make(map[string]circuitbreaker.State)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Breaker monitor stopped")
			return

		case <-ticker.C:
			for service, status := range registry.Statuses() {
				previous, known := seen[service]
				seen[service] = status.State

				if known && previous == status.State {
					continue
				}

				logTransition(logger, service, status, known)

				if collector != nil {
					collector.Publish(metrics.MetricEvent{
						Type:      metrics.EventStateChanged,
						Timestamp: time.Now(),
						Service:   service,
						State:     status.State.String(),
					})
				}
			}
		}
	}
}

func logTransition(logger *slog.Logger, service string, status circuitbreaker.Status, known bool) {
	switch status.State {
	case circuitbreaker.StateOpen:
		logger.Warn("Circuit opened",
			slog.String("service", service),
			slog.Int64("failed_calls", status.Stats.FailedCalls),
			slog.Int64("times_opened", status.Stats.TimesOpened))

	case circuitbreaker.StateHalfOpen:
		logger.Info("Circuit probing recovery",
			slog.String("service", service),
			slog.Int("trials_in_flight", status.HalfOpenInFlight))

	case circuitbreaker.StateClosed:
		if !known {
			logger.Info("Watching circuit",
				slog.String("service", service))
			return
		}
		logger.Info("Circuit closed",
			slog.String("service", service),
			slog.Int64("times_closed", status.Stats.TimesClosed))
	}
}
