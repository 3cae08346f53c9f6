// Package visit implements patient registration and the visit lifecycle.
package visit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/directionhq/frontdesk-api/internal/model"
	"github.com/directionhq/frontdesk-api/internal/repository"
	"github.com/directionhq/frontdesk-api/internal/service/allocator"
	"github.com/directionhq/frontdesk-api/internal/service/audit"
	"github.com/directionhq/frontdesk-api/internal/service/feed"
	"github.com/directionhq/frontdesk-api/internal/service/queue"
	apperrors "github.com/directionhq/frontdesk-api/pkg/errors"
	"github.com/directionhq/frontdesk-api/pkg/logger"
)

const (
	patientCacheTTL     = 10 * time.Minute
	patientCacheCleanup = 30 * time.Minute
)

type Service struct {
	patients  repository.PatientRepository
	visits    repository.VisitRepository
	allocator *allocator.Service
	publisher feed.Publisher
	auditor   *audit.Service
	logger    *logger.Logger

	// phone -> *model.Patient; repeat visitors are the common case at the
	// front desk.
	phoneCache *gocache.Cache

	now func() time.Time
}

func NewService(
	patients repository.PatientRepository,
	visits repository.VisitRepository,
	allocator *allocator.Service,
	publisher feed.Publisher,
	auditor *audit.Service,
	logger *logger.Logger,
) *Service {
	return &Service{
		patients:   patients,
		visits:     visits,
		allocator:  allocator,
		publisher:  publisher,
		auditor:    auditor,
		logger:     logger,
		phoneCache: gocache.New(patientCacheTTL, patientCacheCleanup),
		now:        time.Now,
	}
}

// RegisterVisit resolves the patient by phone, creating one if needed, then
// allocates today's token and persists the visit in waiting state. The token
// is allocated exactly once, only after patient resolution has succeeded; if
// the visit write fails afterwards the token stays spent and never resurfaces,
// which keeps issued tokens immutable for everyone already holding one.
func (s *Service) RegisterVisit(ctx context.Context, actorID uuid.UUID, req *model.RegisterVisitRequest) (*model.Visit, error) {
	patient, err := s.resolvePatient(ctx, req)
	if err != nil {
		return nil, err
	}

	date := model.Day(s.now())
	token, err := s.allocator.AllocateToken(ctx, date)
	if err != nil {
		return nil, err
	}

	visit := &model.Visit{
		Base:         model.Base{ID: uuid.New()},
		PatientID:    patient.ID,
		Token:        token,
		VisitDate:    date,
		Status:       model.VisitStatusWaiting,
		Bill:         req.Bill,
		Notes:        req.Notes,
		PatientName:  patient.Name,
		PatientPhone: patient.Phone,
	}

	if err := s.visits.Create(ctx, visit); err != nil {
		// The allocated token is spent. It will show as a gap in the day's
		// queue, never as a duplicate.
		s.logger.Error(err, "visit write failed after token allocation",
			"token", token, "patient_id", patient.ID.String())
		return nil, err
	}

	s.publisher.Publish(model.VisitEvent{Op: model.FeedOpAdded, Visit: visit})
	s.auditor.Record(actorID, model.AuditActionRegister, model.AuditEntityVisit, visit.ID, map[string]interface{}{
		"token":   visit.Token,
		"patient": patient.ID,
		"phone":   patient.Phone,
	})

	return visit, nil
}

// resolvePatient is the idempotent get-or-create keyed by phone number.
func (s *Service) resolvePatient(ctx context.Context, req *model.RegisterVisitRequest) (*model.Patient, error) {
	if cached, ok := s.phoneCache.Get(req.Phone); ok {
		return cached.(*model.Patient), nil
	}

	patient, err := s.patients.GetByPhone(ctx, req.Phone)
	if err == nil {
		s.phoneCache.Set(req.Phone, patient, gocache.DefaultExpiration)
		return patient, nil
	}
	if apperrors.Code(err) != apperrors.ErrNotFound {
		return nil, err
	}

	patient = &model.Patient{
		Base:    model.Base{ID: uuid.New()},
		Name:    req.Name,
		Phone:   req.Phone,
		Age:     req.Age,
		Gender:  req.Gender,
		Address: req.Address,
	}
	if err := s.patients.Create(ctx, patient); err != nil {
		// Two stations registering the same new phone race on the unique
		// index; the loser picks up the winner's record.
		if existing, lookupErr := s.patients.GetByPhone(ctx, req.Phone); lookupErr == nil {
			s.phoneCache.Set(req.Phone, existing, gocache.DefaultExpiration)
			return existing, nil
		}
		return nil, err
	}

	s.phoneCache.Set(req.Phone, patient, gocache.DefaultExpiration)
	return patient, nil
}

// UpdateVisit merges partial fields onto a visit. Status may only move
// forward; a requested regression is rejected with a validation error and
// nothing is written. Writing a prescription to a waiting visit moves it
// into consultation, matching how the front desk has always recorded it.
func (s *Service) UpdateVisit(ctx context.Context, actorID uuid.UUID, id uuid.UUID, req *model.UpdateVisitRequest) (*model.Visit, error) {
	visit, err := s.visits.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	prevStatus := visit.Status
	if req.Status != nil {
		next, ok := model.NormalizeStatus(*req.Status)
		if !ok {
			return nil, apperrors.Validation(fmt.Sprintf("unknown status %q", *req.Status), nil)
		}
		if next != visit.Status {
			if !model.CanTransition(visit.Status, next) {
				return nil, apperrors.Validation(
					fmt.Sprintf("status cannot move from %s to %s", visit.Status, next), nil)
			}
			visit.Status = next
		}
	}

	if req.Prescription != nil {
		visit.Prescription = *req.Prescription
		if visit.Prescription != "" && visit.Status == model.VisitStatusWaiting {
			visit.Status = model.VisitStatusInConsultation
		}
	}
	if req.Bill != nil {
		if *req.Bill < 0 {
			return nil, apperrors.Validation("bill cannot be negative", nil)
		}
		visit.Bill = *req.Bill
	}
	if req.Notes != nil {
		visit.Notes = *req.Notes
	}

	// Demographics go first: once the visit row commits the change must
	// reach subscribers, so nothing that can fail sits between the commit
	// and the publish below.
	if err := s.applyDemographics(ctx, visit.PatientID, req); err != nil {
		return nil, err
	}

	if err := s.visits.Update(ctx, visit); err != nil {
		return nil, err
	}

	// Re-read through the join so the event carries current patient fields.
	updated, err := s.visits.Get(ctx, id)
	if err != nil {
		updated = visit
	}

	s.publisher.Publish(model.VisitEvent{Op: model.FeedOpModified, Visit: updated})
	s.recordUpdate(actorID, updated, prevStatus, req)

	return updated, nil
}

func (s *Service) applyDemographics(ctx context.Context, patientID uuid.UUID, req *model.UpdateVisitRequest) error {
	if req.Name == nil && req.Age == nil && req.Gender == nil && req.Address == nil {
		return nil
	}

	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return err
	}
	if req.Name != nil {
		patient.Name = *req.Name
	}
	if req.Age != nil {
		patient.Age = req.Age
	}
	if req.Gender != nil {
		patient.Gender = *req.Gender
	}
	if req.Address != nil {
		patient.Address = *req.Address
	}
	if err := s.patients.Update(ctx, patient); err != nil {
		return err
	}
	s.phoneCache.Set(patient.Phone, patient, gocache.DefaultExpiration)
	return nil
}

func (s *Service) recordUpdate(actorID uuid.UUID, visit *model.Visit, prevStatus model.VisitStatus, req *model.UpdateVisitRequest) {
	switch {
	case req.Prescription != nil && *req.Prescription != "":
		s.auditor.Record(actorID, model.AuditActionPrescription, model.AuditEntityVisit, visit.ID, map[string]interface{}{
			"token": visit.Token,
		})
	case visit.Status != prevStatus:
		s.auditor.Record(actorID, model.AuditActionStatusChange, model.AuditEntityVisit, visit.ID, map[string]interface{}{
			"token": visit.Token,
			"from":  prevStatus,
			"to":    visit.Status,
		})
	default:
		s.auditor.Record(actorID, model.AuditActionUpdate, model.AuditEntityVisit, visit.ID, nil)
	}
}

func (s *Service) GetVisit(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	return s.visits.Get(ctx, id)
}

// ListQueue returns the partitioned front-desk view for a day, optionally
// narrowed by a search term or status filter.
func (s *Service) ListQueue(ctx context.Context, date string, searchTerm string, status string) (*model.Queue, error) {
	if date == "" {
		date = model.Day(s.now())
	} else if _, err := time.Parse(model.DateOnly, date); err != nil {
		return nil, apperrors.Validation(fmt.Sprintf("invalid date %q", date), err)
	}

	var filterStatus model.VisitStatus
	if status != "" {
		normalized, ok := model.NormalizeStatus(status)
		if !ok {
			return nil, apperrors.Validation(fmt.Sprintf("unknown status %q", status), nil)
		}
		filterStatus = normalized
	}

	visits, err := s.visits.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	return queue.Partition(date, queue.Filter(visits, searchTerm, filterStatus)), nil
}

// ListVisitsForPatient returns a patient's visit history newest first. An
// unknown phone yields an empty history rather than an error; the caller
// treats a first-time visitor as having no past visits.
func (s *Service) ListVisitsForPatient(ctx context.Context, phone string, exclude uuid.UUID, withPrescription bool) ([]*model.Visit, error) {
	patient, err := s.patients.GetByPhone(ctx, phone)
	if err != nil {
		if apperrors.Code(err) == apperrors.ErrNotFound {
			return []*model.Visit{}, nil
		}
		return nil, err
	}

	visits, err := s.visits.ListByPatient(ctx, patient.ID)
	if err != nil {
		return nil, err
	}
	return queue.History(visits, exclude, withPrescription), nil
}

// UpdatePatient corrects demographic fields directly on the identity record.
func (s *Service) UpdatePatient(ctx context.Context, actorID uuid.UUID, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.patients.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, apperrors.Validation("name cannot be empty", nil)
		}
		patient.Name = *req.Name
	}
	if req.Age != nil {
		patient.Age = req.Age
	}
	if req.Gender != nil {
		patient.Gender = *req.Gender
	}
	if req.Address != nil {
		patient.Address = *req.Address
	}

	if err := s.patients.Update(ctx, patient); err != nil {
		return nil, err
	}
	s.phoneCache.Set(patient.Phone, patient, gocache.DefaultExpiration)

	s.auditor.Record(actorID, model.AuditActionUpdate, model.AuditEntityPatient, patient.ID, nil)
	return patient, nil
}
