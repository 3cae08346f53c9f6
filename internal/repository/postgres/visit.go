package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/directionhq/frontdesk-api/internal/model"
	"github.com/directionhq/frontdesk-api/internal/repository"
)

type visitRepository struct {
	db *sqlx.DB
}

func NewVisitRepository(db *sqlx.DB) repository.VisitRepository {
	return &visitRepository{db: db}
}

// visitColumns joins the owning patient so queue rows render without a
// second lookup.
const visitColumns = `
	v.id, v.patient_id, v.token, v.visit_date, v.status, v.bill, v.notes,
	v.prescription, v.created_at, v.updated_at,
	p.name AS patient_name, p.phone AS patient_phone
`

func (r *visitRepository) Create(ctx context.Context, visit *model.Visit) error {
	query := `
		INSERT INTO visits (id, patient_id, token, visit_date, status, bill, notes, prescription, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	visit.CreatedAt = time.Now()
	visit.UpdatedAt = visit.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		visit.ID,
		visit.PatientID,
		visit.Token,
		visit.VisitDate,
		visit.Status,
		visit.Bill,
		visit.Notes,
		visit.Prescription,
		visit.CreatedAt,
		visit.UpdatedAt,
	)
	if err != nil {
		return wrap("visit", "create visit", err)
	}
	return nil
}

func (r *visitRepository) Get(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	query := `
		SELECT ` + visitColumns + `
		FROM visits v
		JOIN patients p ON p.id = v.patient_id
		WHERE v.id = $1
	`
	var visit model.Visit
	if err := r.db.GetContext(ctx, &visit, query, id); err != nil {
		return nil, wrap("visit", "get visit", err)
	}
	return &visit, nil
}

func (r *visitRepository) Update(ctx context.Context, visit *model.Visit) error {
	query := `
		UPDATE visits
		SET status = $1, bill = $2, notes = $3, prescription = $4, updated_at = $5
		WHERE id = $6
	`
	visit.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		visit.Status,
		visit.Bill,
		visit.Notes,
		visit.Prescription,
		visit.UpdatedAt,
		visit.ID,
	)
	if err != nil {
		return wrap("visit", "update visit", err)
	}
	return nil
}

// ListByDate returns every visit for a calendar day ordered by token
// ascending. Token order is arrival order within a day.
func (r *visitRepository) ListByDate(ctx context.Context, date string) ([]*model.Visit, error) {
	query := `
		SELECT ` + visitColumns + `
		FROM visits v
		JOIN patients p ON p.id = v.patient_id
		WHERE v.visit_date = $1
		ORDER BY v.token ASC
	`
	var visits []*model.Visit
	if err := r.db.SelectContext(ctx, &visits, query, date); err != nil {
		return nil, wrap("visit", "list visits by date", err)
	}
	return visits, nil
}

func (r *visitRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Visit, error) {
	query := `
		SELECT ` + visitColumns + `
		FROM visits v
		JOIN patients p ON p.id = v.patient_id
		WHERE v.patient_id = $1
		ORDER BY v.token DESC
	`
	var visits []*model.Visit
	if err := r.db.SelectContext(ctx, &visits, query, patientID); err != nil {
		return nil, wrap("visit", "list visits by patient", err)
	}
	return visits, nil
}

func (r *visitRepository) ListAll(ctx context.Context) ([]*model.Visit, error) {
	query := `
		SELECT ` + visitColumns + `
		FROM visits v
		JOIN patients p ON p.id = v.patient_id
		ORDER BY v.token ASC
	`
	var visits []*model.Visit
	if err := r.db.SelectContext(ctx, &visits, query); err != nil {
		return nil, wrap("visit", "list visits", err)
	}
	return visits, nil
}
