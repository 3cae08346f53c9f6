package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	ActorID    uuid.UUID       `json:"actor_id" db:"actor_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id" db:"entity_id"`
	Details    json.RawMessage `json:"details" db:"details"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	// Action types
	AuditActionRegister     = "register"
	AuditActionStatusChange = "status_change"
	AuditActionPrescription = "prescription_write"
	AuditActionUpdate       = "update"
	AuditActionLogin        = "login"

	// Entity types
	AuditEntityVisit   = "visit"
	AuditEntityPatient = "patient"
	AuditEntityUser    = "user"
)
