package feed

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

var testClock = func() time.Time {
	return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
}

func newTestHub(t *testing.T, bufferSize int) (*Hub, *memory.VisitRepository) {
	t.Helper()
	repo := memory.NewVisitRepository()
	m := metrics.NewMetrics("frontdesk_test", prometheus.NewRegistry())
	hub := NewHub(repo, bufferSize, logger.NewLogger(nil), m)
	hub.now = testClock
	return hub, repo
}

func seedVisit(t *testing.T, repo *memory.VisitRepository, token, date string) *model.Visit {
	t.Helper()
	v := &model.Visit{
		Base:      model.Base{ID: uuid.New()},
		PatientID: uuid.New(),
		Token:     token,
		VisitDate: date,
		Status:    model.VisitStatusWaiting,
	}
	require.NoError(t, repo.Create(context.Background(), v))
	return v
}

func collect(t *testing.T, sub *Subscription, n int) []model.VisitEvent {
	t.Helper()
	out := make([]model.VisitEvent, 0, n)
	for len(out) < n {
		select {
		case event, ok := <-sub.Events():
			require.True(t, ok, "channel closed after %d of %d events", len(out), n)
			out = append(out, event)
		case <-time.After(time.Second):
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestSubscribe_SnapshotPrecedesDeltas(t *testing.T) {
	hub, repo := newTestHub(t, 8)
	a := seedVisit(t, repo, "2024-05-01-001", "2024-05-01")
	b := seedVisit(t, repo, "2024-05-01-002", "2024-05-01")

	sub, err := hub.Subscribe(context.Background(), ScopeToday)
	require.NoError(t, err)
	defer sub.Close()

	c := seedVisit(t, repo, "2024-05-01-003", "2024-05-01")
	hub.Publish(model.VisitEvent{Op: model.FeedOpAdded, Visit: c})

	events := collect(t, sub, 3)
	assert.Equal(t, model.FeedOpSnapshot, events[0].Op)
	assert.Equal(t, a.ID, events[0].Visit.ID)
	assert.Equal(t, model.FeedOpSnapshot, events[1].Op)
	assert.Equal(t, b.ID, events[1].Visit.ID)
	assert.Equal(t, model.FeedOpAdded, events[2].Op)
	assert.Equal(t, c.ID, events[2].Visit.ID)
}

func TestSubscribe_EmptyStateStillStreamsDeltas(t *testing.T) {
	hub, repo := newTestHub(t, 8)

	sub, err := hub.Subscribe(context.Background(), ScopeToday)
	require.NoError(t, err)
	defer sub.Close()

	v := seedVisit(t, repo, "2024-05-01-001", "2024-05-01")
	hub.Publish(model.VisitEvent{Op: model.FeedOpAdded, Visit: v})

	events := collect(t, sub, 1)
	assert.Equal(t, model.FeedOpAdded, events[0].Op)
}

func TestPublish_TodayScopeFiltersOtherDays(t *testing.T) {
	hub, repo := newTestHub(t, 8)

	todaySub, err := hub.Subscribe(context.Background(), ScopeToday)
	require.NoError(t, err)
	defer todaySub.Close()

	allSub, err := hub.Subscribe(context.Background(), ScopeAll)
	require.NoError(t, err)
	defer allSub.Close()

	yesterday := seedVisit(t, repo, "2024-04-30-005", "2024-04-30")
	today := seedVisit(t, repo, "2024-05-01-001", "2024-05-01")
	hub.Publish(model.VisitEvent{Op: model.FeedOpModified, Visit: yesterday})
	hub.Publish(model.VisitEvent{Op: model.FeedOpAdded, Visit: today})

	events := collect(t, todaySub, 1)
	assert.Equal(t, today.ID, events[0].Visit.ID)

	events = collect(t, allSub, 2)
	assert.Equal(t, yesterday.ID, events[0].Visit.ID)
	assert.Equal(t, today.ID, events[1].Visit.ID)
}

func TestClose_NoDeliveriesAfterReturn(t *testing.T) {
	hub, repo := newTestHub(t, 8)

	sub, err := hub.Subscribe(context.Background(), ScopeToday)
	require.NoError(t, err)
	sub.Close()
	assert.Equal(t, 0, hub.SubscriberCount())

	// Publishing after Close must not panic or deliver.
	v := seedVisit(t, repo, "2024-05-01-001", "2024-05-01")
	hub.Publish(model.VisitEvent{Op: model.FeedOpAdded, Visit: v})

	_, ok := <-sub.Events()
	assert.False(t, ok)

	// Close is idempotent.
	sub.Close()
}

func TestPublish_SlowSubscriberEvictedOthersUnaffected(t *testing.T) {
	hub, repo := newTestHub(t, 2)

	slow, err := hub.Subscribe(context.Background(), ScopeToday)
	require.NoError(t, err)

	fast, err := hub.Subscribe(context.Background(), ScopeToday)
	require.NoError(t, err)
	defer fast.Close()

	// The slow subscriber never reads; the fast one keeps up by draining
	// after each publish. The third publish overruns slow's two-slot
	// buffer and evicts it.
	var fastEvents []model.VisitEvent
	for i := 1; i <= 3; i++ {
		v := seedVisit(t, repo, model.FormatToken("2024-05-01", i), "2024-05-01")
		hub.Publish(model.VisitEvent{Op: model.FeedOpAdded, Visit: v})
		fastEvents = append(fastEvents, collect(t, fast, 1)...)
	}

	assert.Equal(t, 1, hub.SubscriberCount())

	// Eviction closes the slow channel after its buffered events.
	drained := 0
	for range slow.Events() {
		drained++
	}
	assert.Equal(t, 2, drained)

	// The fast subscriber saw every delta.
	require.Len(t, fastEvents, 3)
	assert.Equal(t, "2024-05-01-003", fastEvents[2].Visit.Token)
}

func TestParseScope(t *testing.T) {
	scope, ok := ParseScope("")
	require.True(t, ok)
	assert.Equal(t, ScopeToday, scope)

	scope, ok = ParseScope("all")
	require.True(t, ok)
	assert.Equal(t, ScopeAll, scope)

	_, ok = ParseScope("everything")
	assert.False(t, ok)
}
