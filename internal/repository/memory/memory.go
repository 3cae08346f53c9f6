// Package memory holds map-backed implementations of the repository
// contracts. They back the unit tests and the single-node development mode;
// semantics mirror the postgres implementations, including the conditional
// counter write.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/directionhq/frontdesk-api/internal/model"
	"github.com/directionhq/frontdesk-api/internal/repository"
	apperrors "github.com/directionhq/frontdesk-api/pkg/errors"
)

type PatientRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*model.Patient
	byPhone map[string]uuid.UUID
}

func NewPatientRepository() *PatientRepository {
	return &PatientRepository{
		byID:    make(map[uuid.UUID]*model.Patient),
		byPhone: make(map[string]uuid.UUID),
	}
}

func (r *PatientRepository) Create(_ context.Context, patient *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byPhone[patient.Phone]; exists {
		return apperrors.Validation("phone already registered", nil)
	}
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = patient.CreatedAt

	cp := *patient
	r.byID[patient.ID] = &cp
	r.byPhone[patient.Phone] = patient.ID
	return nil
}

func (r *PatientRepository) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	patient, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	cp := *patient
	return &cp, nil
}

func (r *PatientRepository) GetByPhone(_ context.Context, phone string) (*model.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPhone[phone]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *PatientRepository) Update(_ context.Context, patient *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[patient.ID]
	if !ok {
		return apperrors.NotFound("patient", nil)
	}
	patient.Phone = existing.Phone
	patient.CreatedAt = existing.CreatedAt
	patient.UpdatedAt = time.Now()

	cp := *patient
	r.byID[patient.ID] = &cp
	return nil
}

type VisitRepository struct {
	mu     sync.RWMutex
	visits map[uuid.UUID]*model.Visit
}

func NewVisitRepository() *VisitRepository {
	return &VisitRepository{visits: make(map[uuid.UUID]*model.Visit)}
}

func (r *VisitRepository) Create(_ context.Context, visit *model.Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	visit.CreatedAt = time.Now()
	visit.UpdatedAt = visit.CreatedAt

	cp := *visit
	r.visits[visit.ID] = &cp
	return nil
}

func (r *VisitRepository) Get(_ context.Context, id uuid.UUID) (*model.Visit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	visit, ok := r.visits[id]
	if !ok {
		return nil, apperrors.NotFound("visit", nil)
	}
	cp := *visit
	return &cp, nil
}

func (r *VisitRepository) Update(_ context.Context, visit *model.Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.visits[visit.ID]; !ok {
		return apperrors.NotFound("visit", nil)
	}
	visit.UpdatedAt = time.Now()

	cp := *visit
	r.visits[visit.ID] = &cp
	return nil
}

func (r *VisitRepository) ListByDate(_ context.Context, date string) ([]*model.Visit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Visit
	for _, v := range r.visits {
		if v.VisitDate == date {
			cp := *v
			out = append(out, &cp)
		}
	}
	sortByTokenAsc(out)
	return out, nil
}

func (r *VisitRepository) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*model.Visit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Visit
	for _, v := range r.visits {
		if v.PatientID == patientID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token > out[j].Token })
	return out, nil
}

func (r *VisitRepository) ListAll(_ context.Context) ([]*model.Visit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Visit, 0, len(r.visits))
	for _, v := range r.visits {
		cp := *v
		out = append(out, &cp)
	}
	sortByTokenAsc(out)
	return out, nil
}

func sortByTokenAsc(visits []*model.Visit) {
	sort.Slice(visits, func(i, j int) bool { return visits[i].Token < visits[j].Token })
}

// CounterRepository reproduces the conditional-write behavior of the
// daily_counters table, including losing races between concurrent writers.
type CounterRepository struct {
	mu       sync.Mutex
	counters map[string]int
}

func NewCounterRepository() *CounterRepository {
	return &CounterRepository{counters: make(map[string]int)}
}

func (r *CounterRepository) Current(_ context.Context, date string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[date], nil
}

func (r *CounterRepository) CompareAndIncrement(_ context.Context, date string, observed int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.counters[date] != observed {
		return false, nil
	}
	r.counters[date] = observed + 1
	return true, nil
}

type AuditRepository struct {
	mu   sync.Mutex
	logs []*model.AuditLog
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Create(_ context.Context, log *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *log
	r.logs = append(r.logs, &cp)
	return nil
}

func (r *AuditRepository) List(_ context.Context, entityType string, entityID uuid.UUID) ([]*model.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.AuditLog
	for _, l := range r.logs {
		if l.EntityType == entityType && l.EntityID == entityID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *AuditRepository) Cleanup(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []*model.AuditLog
	var removed int64
	for _, l := range r.logs {
		if l.CreatedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	r.logs = kept
	return removed, nil
}

// Len reports the number of stored entries. Test helper.
func (r *AuditRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.logs)
}

type UserRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*model.User
	byEmail map[string]uuid.UUID
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[uuid.UUID]*model.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *UserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return apperrors.Validation("email already registered", nil)
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	cp := *user
	r.byID[user.ID] = &cp
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *UserRepository) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	cp := *user
	return &cp, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *UserRepository) Update(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[user.ID]; !ok {
		return apperrors.NotFound("user", nil)
	}
	user.UpdatedAt = time.Now()

	cp := *user
	r.byID[user.ID] = &cp
	return nil
}

// Interface conformance guards.
var (
	_ repository.PatientRepository = (*PatientRepository)(nil)
	_ repository.VisitRepository   = (*VisitRepository)(nil)
	_ repository.CounterRepository = (*CounterRepository)(nil)
	_ repository.AuditRepository   = (*AuditRepository)(nil)
	_ repository.UserRepository    = (*UserRepository)(nil)
)
