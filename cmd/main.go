package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angeloszaimis/resilience-gate/config"
	"github.com/angeloszaimis/resilience-gate/internal/circuitbreaker"
	"github.com/angeloszaimis/resilience-gate/internal/httpserver"
	"github.com/angeloszaimis/resilience-gate/internal/metrics"
	"github.com/angeloszaimis/resilience-gate/internal/monitor"
	"github.com/angeloszaimis/resilience-gate/internal/ops"
	"github.com/angeloszaimis/resilience-gate/pkg/logger"
)

const eventBufferSize = 1024

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector(eventBufferSize, log)
	collector.Start(ctx)

	registry, err := initializeRegistry(cfg, log, collector)
	if err != nil {
		log.Error("Failed to initialize breaker registry", slog.Any("err", err))
		os.Exit(1)
	}

	monitorInterval, err := time.ParseDuration(cfg.Monitor.Interval)
	if err != nil {
		log.Error("Invalid monitor interval", slog.Any("err", err))
		os.Exit(1)
	}
	go monitor.Watch(ctx, registry, monitorInterval, log, collector)

	opsHandler := ops.NewHandler(log, registry)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(opsHandler, collector))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting ops server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// initializeRegistry builds the breaker registry from config, wiring every
// breaker's hooks to the metrics collector, and pre-creates a breaker per
// configured service.
func initializeRegistry(cfg *config.Config, log *slog.Logger, collector *metrics.Collector) (*circuitbreaker.Registry, error) {
	defaults, err := breakerDefaults(cfg.Defaults)
	if err != nil {
		return nil, err
	}

	opts := append(collectorOptions(collector), circuitbreaker.WithLogger(log))
	registry := circuitbreaker.NewRegistry(defaults, opts...)

	for _, svc := range cfg.Services {
		breakerCfg, err := serviceBreakerConfig(defaults, svc)
		if err != nil {
			log.Error("Invalid service breaker config",
				slog.String("service", svc.Name),
				slog.Any("err", err))
			return nil, err
		}

		if _, err := registry.GetOrCreate(svc.Name, &breakerCfg); err != nil {
			return nil, err
		}

		log.Info("Registered circuit breaker",
			slog.String("service", svc.Name),
			slog.Int("failure_threshold", breakerCfg.FailureThreshold),
			slog.Duration("open_timeout", breakerCfg.OpenTimeout))
	}

	return registry, nil
}

// breakerDefaults converts the config defaults section into a breaker
// config. The service name stays empty; the registry fills it in per key.
func breakerDefaults(defaults config.BreakerConfig) (circuitbreaker.Config, error) {
	openTimeout, err := time.ParseDuration(defaults.OpenTimeout)
	if err != nil {
		return circuitbreaker.Config{}, err
	}

	return circuitbreaker.Config{
		FailureThreshold: defaults.FailureThreshold,
		SuccessThreshold: defaults.SuccessThreshold,
		OpenTimeout:      openTimeout,
		HalfOpenMaxCalls: defaults.HalfOpenMaxCalls,
	}, nil
}

// serviceBreakerConfig merges a per-service override onto the defaults.
// Zero-valued fields inherit.
func serviceBreakerConfig(defaults circuitbreaker.Config, svc config.ServiceConfig) (circuitbreaker.Config, error) {
	merged := defaults
	merged.ServiceName = svc.Name

	if svc.Breaker.FailureThreshold > 0 {
		merged.FailureThreshold = svc.Breaker.FailureThreshold
	}
	if svc.Breaker.SuccessThreshold > 0 {
		merged.SuccessThreshold = svc.Breaker.SuccessThreshold
	}
	if svc.Breaker.HalfOpenMaxCalls > 0 {
		merged.HalfOpenMaxCalls = svc.Breaker.HalfOpenMaxCalls
	}
	if svc.Breaker.OpenTimeout != "" {
		openTimeout, err := time.ParseDuration(svc.Breaker.OpenTimeout)
		if err != nil {
			return circuitbreaker.Config{}, err
		}
		merged.OpenTimeout = openTimeout
	}

	return merged, nil
}

// collectorOptions wires breaker hooks to the metrics collector. Publishing
// never blocks, so the call path stays independent of observability.
func collectorOptions(collector *metrics.Collector) []circuitbreaker.Option {
	return []circuitbreaker.Option{
		circuitbreaker.OnCall(func(service string, state circuitbreaker.State, elapsed time.Duration, err error) {
			eventType := metrics.EventCallSucceeded
			if err != nil {
				eventType = metrics.EventCallFailed
			}
			collector.Publish(metrics.MetricEvent{
				Type:      eventType,
				Timestamp: time.Now(),
				Service:   service,
				Duration:  elapsed,
			})
		}),
		circuitbreaker.OnReject(func(service string, err error) {
			collector.Publish(metrics.MetricEvent{
				Type:      metrics.EventCallRejected,
				Timestamp: time.Now(),
				Service:   service,
			})
		}),
		circuitbreaker.OnStateChange(func(service string, from, to circuitbreaker.State) {
			collector.Publish(metrics.MetricEvent{
				Type:      metrics.EventStateChanged,
				Timestamp: time.Now(),
				Service:   service,
				State:     to.String(),
			})
		}),
	}
}
