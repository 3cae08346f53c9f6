package queue

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/directionhq/frontdesk-api/internal/model"
)

func visit(token string, status model.VisitStatus) *model.Visit {
	return &model.Visit{
		Base:      model.Base{ID: uuid.New()},
		Token:     token,
		VisitDate: token[:10],
		Status:    status,
	}
}

func tokens(visits []*model.Visit) []string {
	out := make([]string, len(visits))
	for i, v := range visits {
		out[i] = v.Token
	}
	return out
}

func TestPartition_Ordering(t *testing.T) {
	visits := []*model.Visit{
		visit("2024-05-01-001", model.VisitStatusCompleted),
		visit("2024-05-01-002", model.VisitStatusWaiting),
		visit("2024-05-01-003", model.VisitStatusCompleted),
		visit("2024-05-01-004", model.VisitStatusInConsultation),
		visit("2024-05-01-005", model.VisitStatusWaiting),
	}

	q := Partition("2024-05-01", visits)

	// Waiting keeps arrival order; a visit in consultation still occupies
	// its place in the line.
	assert.Equal(t, []string{"2024-05-01-002", "2024-05-01-004", "2024-05-01-005"}, tokens(q.Waiting))
	// Completed shows most recent first.
	assert.Equal(t, []string{"2024-05-01-003", "2024-05-01-001"}, tokens(q.Completed))
}

func TestPartition_EmptyInputYieldsEmptySlices(t *testing.T) {
	q := Partition("2024-05-01", nil)
	assert.NotNil(t, q.Waiting)
	assert.NotNil(t, q.Completed)
	assert.Empty(t, q.Waiting)
	assert.Empty(t, q.Completed)
}

func TestFilter_BySearchTerm(t *testing.T) {
	a := visit("2024-05-01-001", model.VisitStatusWaiting)
	a.PatientName = "Asha Rao"
	a.PatientPhone = "9900112233"
	b := visit("2024-05-01-002", model.VisitStatusWaiting)
	b.PatientName = "Vikram Shah"
	b.PatientPhone = "9900445566"

	out := Filter([]*model.Visit{a, b}, "asha", "")
	require.Len(t, out, 1)
	assert.Equal(t, a.ID, out[0].ID)

	// Phone fragments match too.
	out = Filter([]*model.Visit{a, b}, "4455", "")
	require.Len(t, out, 1)
	assert.Equal(t, b.ID, out[0].ID)

	// Blank term keeps everything.
	out = Filter([]*model.Visit{a, b}, "  ", "")
	assert.Len(t, out, 2)
}

func TestFilter_ByStatus(t *testing.T) {
	a := visit("2024-05-01-001", model.VisitStatusWaiting)
	b := visit("2024-05-01-002", model.VisitStatusCompleted)

	out := Filter([]*model.Visit{a, b}, "", model.VisitStatusCompleted)
	require.Len(t, out, 1)
	assert.Equal(t, b.ID, out[0].ID)
}

func TestHistory(t *testing.T) {
	oldest := visit("2024-04-28-003", model.VisitStatusCompleted)
	oldest.Prescription = "cetirizine 10mg od x5d"
	middle := visit("2024-04-30-001", model.VisitStatusCompleted)
	current := visit("2024-05-01-002", model.VisitStatusWaiting)

	all := []*model.Visit{current, middle, oldest}

	out := History(all, uuid.Nil, false)
	assert.Equal(t, []string{"2024-05-01-002", "2024-04-30-001", "2024-04-28-003"}, tokens(out))

	out = History(all, current.ID, false)
	assert.Equal(t, []string{"2024-04-30-001", "2024-04-28-003"}, tokens(out))

	out = History(all, uuid.Nil, true)
	require.Len(t, out, 1)
	assert.Equal(t, oldest.ID, out[0].ID)
}

func TestSnapshot_ApplyIsIdempotent(t *testing.T) {
	snap := NewSnapshot()
	a := visit("2024-05-01-001", model.VisitStatusWaiting)
	b := visit("2024-05-01-002", model.VisitStatusWaiting)

	snap.Apply(model.VisitEvent{Op: model.FeedOpAdded, Visit: a})
	snap.Apply(model.VisitEvent{Op: model.FeedOpAdded, Visit: b})
	// Redelivery of the same event changes nothing.
	snap.Apply(model.VisitEvent{Op: model.FeedOpAdded, Visit: b})
	assert.Equal(t, 2, snap.Len())

	seen := *a
	seen.Status = model.VisitStatusInConsultation
	snap.Apply(model.VisitEvent{Op: model.FeedOpModified, Visit: &seen})
	snap.Apply(model.VisitEvent{Op: model.FeedOpModified, Visit: &seen})
	assert.Equal(t, 2, snap.Len())

	q := snap.Queue("2024-05-01")
	require.Len(t, q.Waiting, 2)
	assert.Equal(t, model.VisitStatusInConsultation, q.Waiting[0].Status)

	snap.Apply(model.VisitEvent{Op: model.FeedOpRemoved, Visit: b})
	snap.Apply(model.VisitEvent{Op: model.FeedOpRemoved, Visit: b})
	assert.Equal(t, 1, snap.Len())
}

func TestSnapshot_VisitsSortedByToken(t *testing.T) {
	snap := NewSnapshot()
	snap.Apply(model.VisitEvent{Op: model.FeedOpSnapshot, Visit: visit("2024-05-01-003", model.VisitStatusWaiting)})
	snap.Apply(model.VisitEvent{Op: model.FeedOpSnapshot, Visit: visit("2024-05-01-001", model.VisitStatusWaiting)})
	snap.Apply(model.VisitEvent{Op: model.FeedOpSnapshot, Visit: visit("2024-05-01-002", model.VisitStatusWaiting)})

	assert.Equal(t, []string{"2024-05-01-001", "2024-05-01-002", "2024-05-01-003"}, tokens(snap.Visits()))
}
