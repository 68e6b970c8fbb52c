package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventCheckCompleted EventType = "check_completed"
	EventRoundCompleted EventType = "round_completed"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Site      string
	Status    string
	Duration  time.Duration
	Passed    int
	Failed    int
}

type Collector struct {
	eventCh chan Event
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan Event, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

// Emit publishes an event without blocking; events are dropped when the
// buffer is full so metrics can never stall a check.
func (c *Collector) Emit(event Event) {
	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("metrics collector started")
	defer c.logger.Info("metrics collector stopped")

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
	case EventCheckCompleted:
		c.metrics.RecordCheck(event.Site, event.Status, event.Duration)
	case EventRoundCompleted:
		c.metrics.RecordRound(event.Passed, event.Failed)
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
