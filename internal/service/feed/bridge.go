package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/directionhq/frontdesk-api/internal/model"
	"github.com/directionhq/frontdesk-api/pkg/logger"
	"github.com/directionhq/frontdesk-api/pkg/messaging"
	"github.com/directionhq/frontdesk-api/pkg/metrics"
)

// Channel carries visit deltas between API processes.
const Channel = "frontdesk.visits"

const (
	publishQueueSize      = 256
	publishMaxAttempts    = 5
	publishInitialBackoff = 50 * time.Millisecond
	publishMaxBackoff     = 2 * time.Second
)

// BrokerPublisher routes committed visit changes through the message broker
// so every API process, not just the one that handled the write, fans them
// out to its local subscribers. Events are drained by a single worker, which
// keeps per-visit delivery order, and a failed broadcast is retried with
// backoff before it is given up on.
type BrokerPublisher struct {
	broker  messaging.Broker
	logger  *logger.Logger
	metrics *metrics.Metrics

	queue chan model.VisitEvent
	done  chan struct{}
}

func NewBrokerPublisher(broker messaging.Broker, logger *logger.Logger, metrics *metrics.Metrics) *BrokerPublisher {
	p := &BrokerPublisher{
		broker:  broker,
		logger:  logger,
		metrics: metrics,
		queue:   make(chan model.VisitEvent, publishQueueSize),
		done:    make(chan struct{}),
	}
	go p.drain()
	return p
}

// Publish enqueues a committed visit change for broadcast. It never blocks
// the write path: with the broker down long enough to fill the queue the
// event is counted as failed and dropped.
func (p *BrokerPublisher) Publish(event model.VisitEvent) {
	select {
	case p.queue <- event:
	default:
		p.metrics.FeedBroadcastsFailed.Inc()
		p.logger.Warn("broadcast queue full, visit event dropped",
			"op", string(event.Op))
	}
}

func (p *BrokerPublisher) drain() {
	for event := range p.queue {
		p.broadcast(event)
	}
	close(p.done)
}

func (p *BrokerPublisher) broadcast(event model.VisitEvent) {
	backoff := publishInitialBackoff
	for attempt := 0; attempt < publishMaxAttempts; attempt++ {
		err := p.broker.Publish(context.Background(), Channel, event)
		if err == nil {
			return
		}
		if attempt == publishMaxAttempts-1 {
			p.metrics.FeedBroadcastsFailed.Inc()
			p.logger.Error(err, "failed to broadcast visit event",
				"op", string(event.Op), "attempts", publishMaxAttempts)
			return
		}
		p.metrics.FeedBroadcastRetries.Inc()
		time.Sleep(backoff)
		if backoff *= 2; backoff > publishMaxBackoff {
			backoff = publishMaxBackoff
		}
	}
}

// Close flushes queued events and stops the worker.
func (p *BrokerPublisher) Close() {
	close(p.queue)
	<-p.done
}

var _ Publisher = (*BrokerPublisher)(nil)

// Bridge republishes broker messages into the local hub.
type Bridge struct {
	broker messaging.Broker
	hub    *Hub
	logger *logger.Logger
}

func NewBridge(broker messaging.Broker, hub *Hub, logger *logger.Logger) *Bridge {
	return &Bridge{broker: broker, hub: hub, logger: logger}
}

// Run consumes the visit channel until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	msgs, err := b.broker.Subscribe(ctx, Channel)
	if err != nil {
		return err
	}

	b.logger.Info("change feed bridge started", "channel", Channel)
	for msg := range msgs {
		var event model.VisitEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			b.logger.Warn("discarding malformed visit event", "error", err.Error())
			continue
		}
		b.hub.Publish(event)
	}
	return nil
}
