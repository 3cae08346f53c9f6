package model

import (
	"fmt"

	"github.com/google/uuid"
)

type VisitStatus string

const (
	VisitStatusWaiting        VisitStatus = "waiting"
	VisitStatusInConsultation VisitStatus = "in_consultation"
	VisitStatusCompleted      VisitStatus = "completed"
)

// statusRank orders the visit lifecycle. A transition is legal only if it
// strictly increases the rank, so waiting -> completed is allowed and no
// status ever moves backward.
var statusRank = map[VisitStatus]int{
	VisitStatusWaiting:        0,
	VisitStatusInConsultation: 1,
	VisitStatusCompleted:      2,
}

// NormalizeStatus maps accepted aliases onto canonical statuses. The front
// desk historically used "seen" and "done" interchangeably with the
// canonical names.
func NormalizeStatus(s string) (VisitStatus, bool) {
	switch VisitStatus(s) {
	case VisitStatusWaiting, VisitStatusInConsultation, VisitStatusCompleted:
		return VisitStatus(s), true
	case "seen":
		return VisitStatusInConsultation, true
	case "done":
		return VisitStatusCompleted, true
	}
	return "", false
}

// CanTransition reports whether a visit may move from one status to another.
func CanTransition(from, to VisitStatus) bool {
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// Visit is one clinic encounter for a Patient. Visits are never deleted;
// the token assigned at registration is immutable once issued.
type Visit struct {
	Base
	PatientID    uuid.UUID   `db:"patient_id" json:"patient_id"`
	Token        string      `db:"token" json:"token"`
	VisitDate    string      `db:"visit_date" json:"visit_date"`
	Status       VisitStatus `db:"status" json:"status"`
	Bill         float64     `db:"bill" json:"bill"`
	Notes        string      `db:"notes" json:"notes,omitempty"`
	Prescription string      `db:"prescription" json:"prescription,omitempty"`

	// Denormalized patient fields carried on queue reads so viewers render
	// a row without a second lookup.
	PatientName  string `db:"patient_name" json:"patient_name,omitempty"`
	PatientPhone string `db:"patient_phone" json:"patient_phone,omitempty"`
}

// FormatToken renders the stable external token format, e.g. 2024-05-01-007.
// Tokens sort lexicographically equal to numeric order within a day.
func FormatToken(date string, seq int) string {
	return fmt.Sprintf("%s-%03d", date, seq)
}

type RegisterVisitRequest struct {
	Name    string  `json:"name" binding:"required"`
	Phone   string  `json:"phone" binding:"required,phone"`
	Age     *int    `json:"age" binding:"omitempty,gte=0,lte=150"`
	Gender  string  `json:"gender" binding:"omitempty,oneof=Male Female Other"`
	Address string  `json:"address"`
	Notes   string  `json:"notes"`
	Bill    float64 `json:"bill" binding:"omitempty,gte=0"`
}

type UpdateVisitRequest struct {
	Status       *string  `json:"status"`
	Bill         *float64 `json:"bill" binding:"omitempty,gte=0"`
	Notes        *string  `json:"notes"`
	Prescription *string  `json:"prescription"`

	// Demographic corrections applied to the owning patient record.
	Name    *string `json:"name"`
	Age     *int    `json:"age" binding:"omitempty,gte=0,lte=150"`
	Gender  *string `json:"gender" binding:"omitempty,oneof=Male Female Other"`
	Address *string `json:"address"`
}

type VisitFilters struct {
	Date             string
	Status           VisitStatus
	SearchTerm       string
	PatientID        uuid.UUID
	ExcludeVisitID   uuid.UUID
	WithPrescription bool
}

// Queue is the per-day front-desk view: waiting visits in arrival order and
// completed visits most recent first.
type Queue struct {
	Date      string   `json:"date"`
	Waiting   []*Visit `json:"waiting"`
	Completed []*Visit `json:"completed"`
}
