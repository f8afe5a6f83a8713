package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/angeloszaimis/resilience/internal/circuitbreaker"
)

type EventType string

const (
	EventCallSucceeded EventType = "call_succeeded"
	EventCallFailed    EventType = "call_failed"
	EventCallRejected  EventType = "call_rejected"
	EventStateChanged  EventType = "state_changed"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Service   string
	Duration  time.Duration
	From      string
	To        string
}

// Collector consumes breaker events from a buffered channel and drives the
// Prometheus collectors, keeping instrumentation off the call path.
type Collector struct {
	eventCh chan Event
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan Event, bufferSize),
		logger:  logger,
	}
}

// Emit sends an event without blocking. Events are dropped when the buffer
// is full; instrumentation must never stall a protected call.
func (c *Collector) Emit(event Event) {
	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

// CallHook adapts the collector into a breaker call observer.
func (c *Collector) CallHook() circuitbreaker.CallHook {
	return func(name string, outcome circuitbreaker.Outcome, elapsed time.Duration) {
		eventType := EventCallFailed
		switch outcome {
		case circuitbreaker.OutcomeSuccess:
			eventType = EventCallSucceeded
		case circuitbreaker.OutcomeRejected:
			eventType = EventCallRejected
		}

		c.Emit(Event{
			Type:      eventType,
			Timestamp: time.Now(),
			Service:   name,
			Duration:  elapsed,
		})
	}
}

// StateChangeHook adapts the collector into a breaker transition observer.
func (c *Collector) StateChangeHook() circuitbreaker.StateChangeHook {
	return func(name string, from, to circuitbreaker.State) {
		c.Emit(Event{
			Type:      EventStateChanged,
			Timestamp: time.Now(),
			Service:   name,
			From:      from.String(),
			To:        to.String(),
		})
	}
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

func (c *Collector) processEvent(event Event) {
	switch event.Type {
	case EventCallSucceeded:
		CallsTotal.WithLabelValues(event.Service, "success").Inc()
		CallDuration.WithLabelValues(event.Service).Observe(event.Duration.Seconds())

	case EventCallFailed:
		CallsTotal.WithLabelValues(event.Service, "failure").Inc()
		CallDuration.WithLabelValues(event.Service).Observe(event.Duration.Seconds())

	case EventCallRejected:
		CallsTotal.WithLabelValues(event.Service, "rejected").Inc()

	case EventStateChanged:
		StateChanges.WithLabelValues(event.Service, event.From, event.To).Inc()
		BreakerState.WithLabelValues(event.Service).Set(stateValue(event.To))

		c.logger.Info("Circuit breaker state change",
			slog.String("service", event.Service),
			slog.String("from", event.From),
			slog.String("to", event.To))
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

func stateValue(state string) float64 {
	switch state {
	case circuitbreaker.StateOpen.String():
		return 1
	case circuitbreaker.StateHalfOpen.String():
		return 2
	default:
		return 0
	}
}
