package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventCallSucceeded EventType = "call_succeeded"
	EventCallFailed    EventType = "call_failed"
	EventCallRejected  EventType = "call_rejected"
	EventStateChanged  EventType = "state_changed"
)

type MetricEvent struct {
	Type      EventType
	Timestamp time.Time
	Service   string
	Duration  time.Duration
	State     string
}

// Collector consumes breaker events from a buffered channel and folds them
// into Metrics. Producers publish without blocking; events are dropped when
// the buffer is full.
type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

// Publish enqueues an event without blocking. Dropping under pressure is
// acceptable; the breaker call path must never wait on observability.
func (c *Collector) Publish(event MetricEvent) {
	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventCallSucceeded:
		c.metrics.RecordSuccess(event.Service, event.Duration)

	case EventCallFailed:
		c.metrics.RecordFailure(event.Service, event.Duration)

	case EventCallRejected:
		c.metrics.RecordRejection(event.Service)

	case EventStateChanged:
		c.metrics.UpdateState(event.Service, event.State)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
