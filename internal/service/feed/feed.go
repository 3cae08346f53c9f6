// Package feed delivers visit changes to connected viewers. Every
// subscriber gets the full current state first, then incremental deltas in
// commit order per visit. Delivery is at-least-once; subscribers apply
// events as idempotent replacements keyed by visit id.
package feed

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/directionhq/frontdesk-api/internal/model"
	"github.com/directionhq/frontdesk-api/internal/repository"
	"github.com/directionhq/frontdesk-api/pkg/logger"
	"github.com/directionhq/frontdesk-api/pkg/metrics"
)

// Scope selects which visits a subscription observes.
type Scope string

const (
	ScopeAll   Scope = "all"
	ScopeToday Scope = "today"
)

func ParseScope(s string) (Scope, bool) {
	switch Scope(s) {
	case ScopeAll:
		return ScopeAll, true
	case ScopeToday, "":
		return ScopeToday, true
	}
	return "", false
}

const defaultBufferSize = 64

// Subscription is one viewer's stream. Close releases the subscription
// synchronously: once it returns no further events are delivered.
type Subscription struct {
	id     uuid.UUID
	scope  Scope
	events chan model.VisitEvent
	hub    *Hub
	once   sync.Once
}

// Events yields the snapshot followed by deltas. The channel is closed when
// the subscription ends, including when the hub evicted it for falling too
// far behind; consumers resubscribe to resync from a fresh snapshot.
func (s *Subscription) Events() <-chan model.VisitEvent {
	return s.events
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s.id)
	})
}

// Hub fans visit events out to subscribers. Each subscriber owns an
// independent buffer, so one stalled consumer never delays the rest: a
// subscriber that overruns its buffer is evicted instead of ever holding
// back delivery.
type Hub struct {
	repo       repository.VisitRepository
	bufferSize int
	logger     *logger.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	mu   sync.Mutex
	subs map[uuid.UUID]*Subscription
}

func NewHub(repo repository.VisitRepository, bufferSize int, logger *logger.Logger, metrics *metrics.Metrics) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Hub{
		repo:       repo,
		bufferSize: bufferSize,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
		subs:       make(map[uuid.UUID]*Subscription),
	}
}

// Subscribe registers a viewer and preloads its stream with the current
// snapshot for the scope. The snapshot read and the registration happen
// under the hub lock so no committed delta can fall between them.
func (h *Hub) Subscribe(ctx context.Context, scope Scope) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var visits []*model.Visit
	var err error
	switch scope {
	case ScopeToday:
		visits, err = h.repo.ListByDate(ctx, model.Day(h.now()))
	default:
		visits, err = h.repo.ListAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		id:     uuid.New(),
		scope:  scope,
		events: make(chan model.VisitEvent, len(visits)+h.bufferSize),
		hub:    h,
	}
	for _, v := range visits {
		sub.events <- model.VisitEvent{Op: model.FeedOpSnapshot, Visit: v}
	}

	h.subs[sub.id] = sub
	h.metrics.FeedSubscribers.Inc()
	return sub, nil
}

// Publish delivers one committed change to every matching subscriber.
// Callers invoke it in commit order, which preserves per-visit ordering on
// each subscriber's channel.
func (h *Hub) Publish(event model.VisitEvent) {
	if event.Visit == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	today := model.Day(h.now())
	for id, sub := range h.subs {
		if sub.scope == ScopeToday && event.Visit.VisitDate != today {
			continue
		}
		select {
		case sub.events <- event:
			h.metrics.FeedDeliveries.WithLabelValues(string(sub.scope)).Inc()
		default:
			// Buffer overrun: evict rather than silently lose this delta.
			// The closed channel tells the consumer to resubscribe.
			h.metrics.FeedDroppedDeliveries.Inc()
			h.logger.Warn("evicting slow feed subscriber", "scope", string(sub.scope))
			delete(h.subs, id)
			close(sub.events)
			h.metrics.FeedSubscribers.Dec()
		}
	}
}

func (h *Hub) remove(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(sub.events)
	h.metrics.FeedSubscribers.Dec()
}

// SubscriberCount reports the number of live subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publisher pushes committed visit changes toward subscribers.
type Publisher interface {
	Publish(event model.VisitEvent)
}

var _ Publisher = (*Hub)(nil)
