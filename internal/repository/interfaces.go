package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/directionhq/frontdesk-api/internal/model"
)

type PatientRepository interface {
	Create(ctx context.Context, patient *model.Patient) error
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	GetByPhone(ctx context.Context, phone string) (*model.Patient, error)
	Update(ctx context.Context, patient *model.Patient) error
}

type VisitRepository interface {
	Create(ctx context.Context, visit *model.Visit) error
	Get(ctx context.Context, id uuid.UUID) (*model.Visit, error)
	Update(ctx context.Context, visit *model.Visit) error
	ListByDate(ctx context.Context, date string) ([]*model.Visit, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Visit, error)
	ListAll(ctx context.Context) ([]*model.Visit, error)
}

// CounterRepository exposes the daily counter row for conditional writes.
// No other component reads or writes daily_counters.
type CounterRepository interface {
	// Current returns the last issued sequence for date, creating the row at
	// zero if the date has not been seen yet.
	Current(ctx context.Context, date string) (int, error)
	// CompareAndIncrement sets current = observed+1 only if the row still
	// holds observed. It returns false when another writer got there first.
	CompareAndIncrement(ctx context.Context, date string, observed int) (bool, error)
}

type AuditRepository interface {
	Create(ctx context.Context, log *model.AuditLog) error
	List(ctx context.Context, entityType string, entityID uuid.UUID) ([]*model.AuditLog, error)
	Cleanup(ctx context.Context, before time.Time) (int64, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}
