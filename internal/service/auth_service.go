package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// AuthService handles registration and credential exchange for both
// end-users and authorities.
type AuthService struct {
	users       repository.UserRepository
	authorities repository.AuthorityRepository
	tokens      *auth.TokenManager
	logger      *zap.Logger
	bcryptCost  int
}

// AuthDependencies bundles collaborators.
type AuthDependencies struct {
	UserRepo      repository.UserRepository
	AuthorityRepo repository.AuthorityRepository
	Tokens        *auth.TokenManager
	Logger        *zap.Logger
	Config        config.AuthConfig
}

// NewAuthService constructs the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:       deps.UserRepo,
		authorities: deps.AuthorityRepo,
		tokens:      deps.Tokens,
		logger:      logger,
		bcryptCost:  deps.Config.BcryptCost,
	}
}

// TokenManager exposes the underlying token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// LoginResult carries a signed token plus its expiry.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
}

// RegisterUser creates an end-user account and issues an initial token.
func (s *AuthService) RegisterUser(ctx context.Context, name, email, password string) (*domain.User, *LoginResult, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return nil, nil, apperrors.NewValidationError("name and email are required", nil)
	}
	if len(password) < 8 {
		return nil, nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}

	if existing, err := s.users.GetByEmail(ctx, email); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, apperrors.MapError(err)
	} else if existing != nil {
		return nil, nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, &LoginResult{Token: token, ExpiresAt: expiresAt}, nil
}

// LoginUser verifies credentials and issues a user token.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, *LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, apperrors.MapError(err)
	}
	if user.Status != domain.UserStatusActive {
		return nil, nil, apperrors.NewUnauthorized("account suspended")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	return user, &LoginResult{Token: token, ExpiresAt: expiresAt}, nil
}

// LoginAuthority verifies credentials and issues an authority token carrying
// the authority type.
func (s *AuthService) LoginAuthority(ctx context.Context, email, password string) (*domain.Authority, *LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	authority, err := s.authorities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, apperrors.MapError(err)
	}
	if !authority.Active {
		return nil, nil, apperrors.NewUnauthorized("authority deactivated")
	}
	if err := auth.ComparePassword(authority.PasswordHash, password); err != nil {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}

	authorityType := authority.Type
	token, expiresAt, err := s.tokens.GenerateToken(authority.ID, domain.SubjectTypeAuthority, &authorityType)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	return authority, &LoginResult{Token: token, ExpiresAt: expiresAt}, nil
}
