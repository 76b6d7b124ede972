package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/client-service/internal/api/dto"
	"github.com/spec-kit/client-service/internal/auth"
	"github.com/spec-kit/client-service/internal/service"
	apperrors "github.com/spec-kit/client-service/pkg/util"
)

// TokensHandler exposes the session management endpoints operating on the
// caller's own token.
type TokensHandler struct {
	auth *service.AuthService
}

// NewTokensHandler constructs the handler.
func NewTokensHandler(authService *service.AuthService) *TokensHandler {
	return &TokensHandler{auth: authService}
}

// Status handles GET /tokens/status.
func (h *TokensHandler) Status(c *fiber.Ctx) error {
	token, ok := auth.TokenFromContext(c)
	if !ok {
		return apperrors.NewMissingToken()
	}

	record, err := h.auth.TokenStatus(c.UserContext(), token)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTokenStatusResponse(record))
}

// Invalidate handles POST /tokens/invalidate, the explicit logout.
// Idempotent: invalidating an already-Invalid token still reports success.
func (h *TokensHandler) Invalidate(c *fiber.Ctx) error {
	token, ok := auth.TokenFromContext(c)
	if !ok {
		return apperrors.NewMissingToken()
	}
	identity, _ := auth.IdentityFromContext(c)

	if err := h.auth.Logout(c.UserContext(), token, identity); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Token invalidated"})
}
