package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/directionhq/frontdesk-api/internal/model"
	"github.com/directionhq/frontdesk-api/internal/repository/memory"
	"github.com/directionhq/frontdesk-api/pkg/logger"
	"github.com/directionhq/frontdesk-api/pkg/metrics"
)

func newTestService() (*Service, *memory.AuditRepository) {
	repo := memory.NewAuditRepository()
	m := metrics.NewMetrics("frontdesk_test", prometheus.NewRegistry())
	return NewService(repo, logger.NewLogger(nil), m), repo
}

func TestRecord_WritesThroughQueue(t *testing.T) {
	svc, repo := newTestService()

	actorID := uuid.New()
	visitID := uuid.New()
	svc.Record(actorID, model.AuditActionRegister, model.AuditEntityVisit, visitID, map[string]interface{}{
		"token": "2024-05-01-001",
	})
	svc.Record(actorID, model.AuditActionStatusChange, model.AuditEntityVisit, visitID, nil)

	// Close flushes the queue before returning.
	svc.Close()
	assert.Equal(t, 2, repo.Len())

	entries, err := svc.List(context.Background(), model.AuditEntityVisit, visitID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.AuditActionRegister, entries[0].Action)
	assert.JSONEq(t, `{"token":"2024-05-01-001"}`, string(entries[0].Details))
	assert.Equal(t, actorID, entries[1].ActorID)
}

func TestRecord_UnmarshalableDetailsDropped(t *testing.T) {
	svc, repo := newTestService()

	svc.Record(uuid.New(), model.AuditActionUpdate, model.AuditEntityVisit, uuid.New(), map[string]interface{}{
		"bad": make(chan int),
	})

	svc.Close()
	assert.Equal(t, 0, repo.Len())
}

func TestRecord_AfterCloseIsDropped(t *testing.T) {
	svc, repo := newTestService()

	svc.Record(uuid.New(), model.AuditActionRegister, model.AuditEntityVisit, uuid.New(), nil)
	svc.Close()
	require.Equal(t, 1, repo.Len())

	// Fire-and-forget must hold across shutdown: no panic, entry dropped.
	svc.Record(uuid.New(), model.AuditActionUpdate, model.AuditEntityVisit, uuid.New(), nil)
	svc.Close()
	assert.Equal(t, 1, repo.Len())
}

func TestCleanup_RemovesOldEntries(t *testing.T) {
	svc, repo := newTestService()

	svc.Record(uuid.New(), model.AuditActionLogin, model.AuditEntityUser, uuid.New(), nil)
	svc.Close()
	require.Equal(t, 1, repo.Len())

	removed, err := repo.Cleanup(context.Background(), time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 0, repo.Len())
}
