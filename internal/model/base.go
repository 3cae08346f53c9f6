package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all models
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DateOnly is the calendar-day format used throughout the queue.
const DateOnly = "2006-01-02"

// Day truncates t to its calendar day string.
func Day(t time.Time) string {
	return t.Format(DateOnly)
}
