package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is chosen by the user at login and carried in the session token.
// It is client-asserted: the server records which role was requested but has
// no per-user role assignment to verify it against.
type Role string

const (
	RoleReceptionist Role = "receptionist"
	RoleDoctor       Role = "doctor"
)

func ValidRole(r string) bool {
	switch Role(r) {
	case RoleReceptionist, RoleDoctor:
		return true
	}
	return false
}

type User struct {
	Base
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

type RegisterUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=receptionist doctor"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Role        Role   `json:"role"`
}

type TokenClaims struct {
	UserID uuid.UUID
	Email  string
	Role   Role
}
