// Package allocator issues the per-day queue tokens. Uniqueness and strict
// increment are enforced with an optimistic read-modify-write against the
// daily counter row: read the current value, then bump it conditionally on
// the row being unchanged. Contention is human-paced, so a short bounded
// retry loop wins over locking.
package allocator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/directionhq/frontdesk-api/internal/model"
	"github.com/directionhq/frontdesk-api/internal/repository"
	apperrors "github.com/directionhq/frontdesk-api/pkg/errors"
	"github.com/directionhq/frontdesk-api/pkg/logger"
	"github.com/directionhq/frontdesk-api/pkg/metrics"
)

type Config struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:    8,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     250 * time.Millisecond,
	}
}

type Service struct {
	repo    repository.CounterRepository
	config  Config
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewService(repo repository.CounterRepository, config Config, logger *logger.Logger, metrics *metrics.Metrics) *Service {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = DefaultConfig().InitialBackoff
	}
	if config.MaxBackoff < config.InitialBackoff {
		config.MaxBackoff = DefaultConfig().MaxBackoff
	}

	return &Service{
		repo:    repo,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

// AllocateToken issues the next token for date. The counter is durably
// incremented before the token is returned, so a crash after this call can
// leave an allocated token without a visit, but never two visits with the
// same token. Callers must invoke this at most once per registration attempt.
func (s *Service) AllocateToken(ctx context.Context, date string) (string, error) {
	if _, err := time.Parse(model.DateOnly, date); err != nil {
		return "", apperrors.Validation(fmt.Sprintf("invalid date %q", date), err)
	}

	s.metrics.AllocationAttempts.Inc()
	timer := prometheus.NewTimer(s.metrics.AllocationLatency)
	defer timer.ObserveDuration()

	backoff := s.config.InitialBackoff
	for attempt := 0; attempt < s.config.MaxAttempts; attempt++ {
		current, err := s.repo.Current(ctx, date)
		if err != nil {
			return "", err
		}

		ok, err := s.repo.CompareAndIncrement(ctx, date, current)
		if err != nil {
			return "", err
		}
		if ok {
			return model.FormatToken(date, current+1), nil
		}

		// Another station won the write. Back off with jitter and re-read.
		s.metrics.AllocationConflicts.Inc()
		if attempt == s.config.MaxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(jitter(backoff)):
		}
		if backoff *= 2; backoff > s.config.MaxBackoff {
			backoff = s.config.MaxBackoff
		}
	}

	s.metrics.AllocationFailures.Inc()
	s.logger.Warn("token allocation retry budget exhausted",
		"date", date, "attempts", s.config.MaxAttempts)
	return "", apperrors.Conflict(
		fmt.Sprintf("token allocation for %s lost %d consecutive races", date, s.config.MaxAttempts), nil)
}

// jitter spreads retries of concurrently conflicting stations apart.
func jitter(d time.Duration) time.Duration {
	half := int64(d) / 2
	return time.Duration(half + rand.Int63n(half+1))
}
