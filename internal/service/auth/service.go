package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/directionhq/frontdesk-api/internal/model"
	"github.com/directionhq/frontdesk-api/internal/repository"
	"github.com/directionhq/frontdesk-api/internal/service/audit"
	"github.com/directionhq/frontdesk-api/pkg/auth"
	apperrors "github.com/directionhq/frontdesk-api/pkg/errors"
)

const bcryptCost = 12

type Service struct {
	users   repository.UserRepository
	jwtSvc  auth.JWTService
	auditor *audit.Service
}

func NewService(users repository.UserRepository, jwtSvc auth.JWTService, auditor *audit.Service) *Service {
	return &Service{users: users, jwtSvc: jwtSvc, auditor: auditor}
}

func (s *Service) Register(ctx context.Context, req *model.RegisterUserRequest) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.Conflict("email already registered", nil)
	} else if apperrors.Code(err) != apperrors.ErrNotFound {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, apperrors.Internal("failed to hash password", err)
	}

	user := &model.User{
		Base:         model.Base{ID: uuid.New()},
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.auditor.Record(user.ID, model.AuditActionRegister, model.AuditEntityUser, user.ID, map[string]interface{}{
		"email": email,
	})
	return user, nil
}

// Login checks credentials and issues a token carrying the role the user
// chose at sign-in. The role selects a workspace view; it is not a verified
// per-user privilege.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	if !model.ValidRole(req.Role) {
		return nil, apperrors.Validation("unknown role", nil)
	}
	role := model.Role(req.Role)

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.Code(err) == apperrors.ErrNotFound {
			return nil, apperrors.Unauthorized("invalid credentials", nil)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.Unauthorized("invalid credentials", nil)
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.jwtSvc.GenerateAccessToken(user, role)
	if err != nil {
		return nil, apperrors.Internal("failed to generate token", err)
	}

	s.auditor.Record(user.ID, model.AuditActionLogin, model.AuditEntityUser, user.ID, map[string]interface{}{
		"email": email,
		"role":  role,
	})

	return &model.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.jwtSvc.Expiry().Seconds()),
		Role:        role,
	}, nil
}

func (s *Service) ValidateToken(_ context.Context, token string) (*model.TokenClaims, error) {
	return s.jwtSvc.ValidateToken(token)
}
