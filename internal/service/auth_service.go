package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/client-service/internal/auth"
	"github.com/spec-kit/client-service/internal/config"
	"github.com/spec-kit/client-service/internal/domain"
	"github.com/spec-kit/client-service/internal/events"
	"github.com/spec-kit/client-service/internal/repository"
)

// ErrInvalidCredentials is returned for unknown usernames and wrong
// passwords alike; the two are indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrUsernameTaken is returned by Register when the username already
// exists. Any other Register error is a storage failure, not user input.
var ErrUsernameTaken = errors.New("username already taken")

// AuthService coordinates login and the session token lifecycle.
type AuthService struct {
	users      repository.UserRepository
	sessions   repository.SessionTokenRepository
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	bcryptCost int
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	SessionRepo repository.SessionTokenRepository
	Dispatcher  events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		sessions:   deps.SessionRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL()),
		dispatcher: deps.Dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Login verifies credentials, issues a signed token and records the
// session with status Active.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.Identity, string, time.Time, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Identity{}, "", time.Time{}, ErrInvalidCredentials
		}
		return domain.Identity{}, "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return domain.Identity{}, "", time.Time{}, ErrInvalidCredentials
	}

	identity := domain.IdentityOf(user)
	token, expiresAt, err := s.tokenMgr.GenerateToken(identity)
	if err != nil {
		return domain.Identity{}, "", time.Time{}, err
	}
	if _, err := s.sessions.Create(ctx, token, user.ID, user.Username); err != nil {
		return domain.Identity{}, "", time.Time{}, err
	}

	s.publish(ctx, events.EventSessionIssued, identity, domain.TokenStatusActive)
	return identity, token, expiresAt, nil
}

// Register creates a new account. Role defaults to User; only the seed
// migration creates admins.
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout invalidates the caller's own token record. Idempotent: an
// already-Invalid record still reports success.
func (s *AuthService) Logout(ctx context.Context, token string, identity domain.Identity) error {
	if _, err := s.sessions.Invalidate(ctx, token); err != nil {
		return err
	}
	s.publish(ctx, events.EventSessionInvalidated, identity, domain.TokenStatusInvalid)
	return nil
}

// TokenStatus reports the caller's own token record.
func (s *AuthService) TokenStatus(ctx context.Context, token string) (*domain.SessionTokenRecord, error) {
	return s.sessions.Get(ctx, token)
}

// TokenManager exposes the underlying token manager for guard wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, identity domain.Identity, status domain.TokenStatus) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.NewEvent(eventType, identity, events.SessionPayload{
		UserID:   identity.UserID,
		Username: identity.Username,
		Status:   status,
	}))
}
