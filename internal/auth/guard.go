package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/client-service/internal/domain"
	"github.com/spec-kit/client-service/internal/events"
	"github.com/spec-kit/client-service/internal/repository"
	apperrors "github.com/spec-kit/client-service/pkg/util"
)

const (
	identityKey = "auth_identity"
	tokenKey    = "auth_token"
)

// SessionGuard authenticates bearer tokens on every protected request. Two
// independent expiry layers apply, in order: the stateless signature check
// (absolute TTL embedded in the token) and the store-backed inactivity
// check. Inactivity expiry is lazy: nothing sweeps the store, a token idle
// past the window is burned on its next use.
type SessionGuard struct {
	tokens     *TokenManager
	store      repository.SessionTokenRepository
	window     time.Duration
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewSessionGuard constructs the guard. window is the inactivity window;
// dispatcher may be nil, in which case inactivity burns are not audited.
func NewSessionGuard(tokens *TokenManager, store repository.SessionTokenRepository, window time.Duration, dispatcher events.Dispatcher, logger *zap.Logger) *SessionGuard {
	if window <= 0 {
		window = 30 * time.Minute
	}
	return &SessionGuard{
		tokens:     tokens,
		store:      store,
		window:     window,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Handle enforces authentication for protected routes.
func (g *SessionGuard) Handle(c *fiber.Ctx) error {
	tokenStr := bearerToken(c)
	if tokenStr == "" {
		return apperrors.NewMissingToken()
	}

	// Signature first: cheap and stateless.
	identity, err := g.tokens.ParseToken(tokenStr)
	if err != nil {
		return apperrors.NewInvalidOrExpiredToken()
	}

	record, err := g.store.Get(c.UserContext(), tokenStr)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			// Signature-valid but the store has no memory of it, e.g.
			// after a data reset. Not necessarily hostile.
			return apperrors.NewTokenNotRecognized()
		}
		return g.storeFailure("lookup", err)
	}

	if record.Status == domain.TokenStatusInvalid {
		return apperrors.NewTokenInvalid()
	}

	// A zero last-used timestamp is treated as in-window and healed by
	// the touch below. Exactly window-old is still in-window; only
	// strictly greater elapsed time expires.
	if !record.LastUsedAt.IsZero() {
		if elapsed := g.now().Sub(record.LastUsedAt); elapsed > g.window {
			// Burn the record so the next request fails fast on status
			// instead of re-computing elapsed time.
			if _, err := g.store.SetStatus(c.UserContext(), tokenStr, domain.TokenStatusInvalid); err != nil {
				return g.storeFailure("invalidate", err)
			}
			g.publishExpired(c.UserContext(), identity)
			return apperrors.NewTokenExpiredInactivity()
		}
	}

	if _, err := g.store.Touch(c.UserContext(), tokenStr); err != nil {
		return g.storeFailure("touch", err)
	}

	c.Locals(identityKey, identity)
	c.Locals(tokenKey, tokenStr)
	return c.Next()
}

func (g *SessionGuard) publishExpired(ctx context.Context, identity domain.Identity) {
	if g.dispatcher == nil {
		return
	}
	_ = g.dispatcher.Publish(ctx, events.NewEvent(events.EventSessionExpiredIdle, identity, events.SessionPayload{
		UserID:   identity.UserID,
		Username: identity.Username,
		Status:   domain.TokenStatusInvalid,
	}))
}

func (g *SessionGuard) storeFailure(op string, err error) error {
	g.logger.Error("session store failure", zap.String("op", op), zap.Error(err))
	return apperrors.NewInternalError(err)
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// IdentityFromContext retrieves the authenticated identity.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(domain.Identity)
	return identity, ok
}

// TokenFromContext retrieves the raw bearer token of the current request,
// for the token management endpoints that operate on the caller's own
// session.
func TokenFromContext(c *fiber.Ctx) (string, bool) {
	token, ok := c.Locals(tokenKey).(string)
	return token, ok
}
