package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/directionhq/frontdesk-api/internal/model"
	"github.com/directionhq/frontdesk-api/internal/repository"
)

type counterRepository struct {
	db *sqlx.DB
}

func NewCounterRepository(db *sqlx.DB) repository.CounterRepository {
	return &counterRepository{db: db}
}

// Current ensures the counter row for date exists and returns its value.
// The insert races benignly with other first-of-the-day writers.
func (r *counterRepository) Current(ctx context.Context, date string) (int, error) {
	insert := `
		INSERT INTO daily_counters (seq_date, current, updated_at)
		VALUES ($1, 0, NOW())
		ON CONFLICT (seq_date) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, insert, date); err != nil {
		return 0, wrap("daily counter", "init daily counter", err)
	}

	var counter model.DailyCounter
	query := `SELECT seq_date, current, updated_at FROM daily_counters WHERE seq_date = $1`
	if err := r.db.GetContext(ctx, &counter, query, date); err != nil {
		return 0, wrap("daily counter", "read daily counter", err)
	}
	return counter.Current, nil
}

// CompareAndIncrement is the optimistic write: the row is bumped only if it
// still holds the value the caller observed. Zero rows affected means some
// other station allocated first.
func (r *counterRepository) CompareAndIncrement(ctx context.Context, date string, observed int) (bool, error) {
	query := `
		UPDATE daily_counters
		SET current = current + 1, updated_at = NOW()
		WHERE seq_date = $1 AND current = $2
	`
	res, err := r.db.ExecContext(ctx, query, date, observed)
	if err != nil {
		return false, wrap("daily counter", "increment daily counter", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, wrap("daily counter", "increment daily counter", err)
	}
	return rows == 1, nil
}
