// Package queue derives presentation views from visit records. Every view
// is a pure function over a slice or snapshot of visits; nothing here holds
// state of its own, so the views can never drift from the store.
package queue

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/directionhq/frontdesk-api/internal/model"
)

// Partition splits one day's visits into the front-desk sections: open
// visits (waiting and in consultation) in token order, oldest first, and
// completed visits most recent first.
func Partition(date string, visits []*model.Visit) *model.Queue {
	q := &model.Queue{
		Date:      date,
		Waiting:   []*model.Visit{},
		Completed: []*model.Visit{},
	}
	for _, v := range visits {
		if v.Status == model.VisitStatusCompleted {
			q.Completed = append(q.Completed, v)
		} else {
			q.Waiting = append(q.Waiting, v)
		}
	}
	sort.Slice(q.Waiting, func(i, j int) bool { return q.Waiting[i].Token < q.Waiting[j].Token })
	sort.Slice(q.Completed, func(i, j int) bool { return q.Completed[i].Token > q.Completed[j].Token })
	return q
}

// Filter narrows visits by a name/phone search term and a status. Empty
// arguments match everything.
func Filter(visits []*model.Visit, searchTerm string, status model.VisitStatus) []*model.Visit {
	term := strings.ToLower(strings.TrimSpace(searchTerm))
	out := make([]*model.Visit, 0, len(visits))
	for _, v := range visits {
		if status != "" && v.Status != status {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(v.PatientName), term) &&
			!strings.Contains(v.PatientPhone, term) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// History is the prior-visit view shown next to an open consultation: all
// of a patient's visits except the excluded one, most recent token first,
// optionally narrowed to visits that carry a prescription.
func History(visits []*model.Visit, exclude uuid.UUID, withPrescription bool) []*model.Visit {
	out := make([]*model.Visit, 0, len(visits))
	for _, v := range visits {
		if v.ID == exclude {
			continue
		}
		if withPrescription && v.Prescription == "" {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token > out[j].Token })
	return out
}

// Snapshot is a consumer-side materialization of the change feed. Applying
// an event is an idempotent replacement keyed by visit id, so at-least-once
// delivery converges to the same state.
type Snapshot struct {
	visits map[uuid.UUID]*model.Visit
}

func NewSnapshot() *Snapshot {
	return &Snapshot{visits: make(map[uuid.UUID]*model.Visit)}
}

func (s *Snapshot) Apply(event model.VisitEvent) {
	if event.Visit == nil {
		return
	}
	switch event.Op {
	case model.FeedOpRemoved:
		delete(s.visits, event.Visit.ID)
	default:
		s.visits[event.Visit.ID] = event.Visit
	}
}

// Visits returns the current state ordered by token ascending.
func (s *Snapshot) Visits() []*model.Visit {
	out := make([]*model.Visit, 0, len(s.visits))
	for _, v := range s.visits {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

// Queue renders the snapshot as the partitioned view for one day.
func (s *Snapshot) Queue(date string) *model.Queue {
	var day []*model.Visit
	for _, v := range s.visits {
		if v.VisitDate == date {
			day = append(day, v)
		}
	}
	return Partition(date, day)
}

func (s *Snapshot) Len() int {
	return len(s.visits)
}
