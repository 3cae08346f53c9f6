// Package postgres implements the repository contracts over PostgreSQL via
// sqlx. Row absences surface as NotFound; every other database failure is
// classified transient so callers can retry.
package postgres

import (
	"database/sql"
	"errors"

	apperrors "github.com/directionhq/frontdesk-api/pkg/errors"
)

// wrap classifies a database error: missing rows become NotFound for the
// named resource, anything else is a transient store failure.
func wrap(resource, op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(resource, err)
	}
	return apperrors.Transient("store unavailable: "+op, err)
}
