// Package audit records externally meaningful actions. Recording is
// fire-and-forget: a failed or dropped append is surfaced through logs and
// metrics, never to the operation that triggered it.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/directionhq/frontdesk-api/internal/model"
	"github.com/directionhq/frontdesk-api/internal/repository"
	"github.com/directionhq/frontdesk-api/pkg/logger"
	"github.com/directionhq/frontdesk-api/pkg/metrics"
)

const (
	defaultQueueSize    = 256
	defaultWriteTimeout = 5 * time.Second
)

type Service struct {
	repo    repository.AuditRepository
	logger  *logger.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	closed bool
	queue  chan *model.AuditLog
	done   chan struct{}
}

func NewService(repo repository.AuditRepository, logger *logger.Logger, metrics *metrics.Metrics) *Service {
	s := &Service{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		queue:   make(chan *model.AuditLog, defaultQueueSize),
		done:    make(chan struct{}),
	}
	go s.drain()
	return s
}

// Record enqueues an audit entry. It never blocks and never fails the
// caller: a full queue drops the entry and bumps a counter.
func (s *Service) Record(actorID uuid.UUID, action, entityType string, entityID uuid.UUID, details interface{}) {
	var raw json.RawMessage
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			s.metrics.AuditWritesFailed.Inc()
			s.logger.Warn("failed to marshal audit details", "action", action)
			return
		}
		raw = data
	}

	entry := &model.AuditLog{
		ID:         uuid.New(),
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    raw,
		CreatedAt:  time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.metrics.AuditWritesDropped.Inc()
		s.logger.Warn("audit service closed, entry dropped", "action", action, "entity_type", entityType)
		return
	}
	select {
	case s.queue <- entry:
	default:
		s.metrics.AuditWritesDropped.Inc()
		s.logger.Warn("audit queue full, entry dropped", "action", action, "entity_type", entityType)
	}
}

func (s *Service) drain() {
	for entry := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
		if err := s.repo.Create(ctx, entry); err != nil {
			s.metrics.AuditWritesFailed.Inc()
			s.logger.Error(err, "failed to write audit log",
				"action", entry.Action, "entity_id", entry.EntityID.String())
		}
		cancel()
	}
	close(s.done)
}

// Close flushes queued entries and stops the writer. Entries recorded after
// Close are dropped, not panicked on.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	<-s.done
}

func (s *Service) List(ctx context.Context, entityType string, entityID uuid.UUID) ([]*model.AuditLog, error) {
	return s.repo.List(ctx, entityType, entityID)
}
