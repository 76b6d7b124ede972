package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/client-service/internal/api/dto"
	"github.com/spec-kit/client-service/internal/auth"
	"github.com/spec-kit/client-service/internal/service"
	apperrors "github.com/spec-kit/client-service/pkg/util"
)

// AuthHandler exposes login and user creation endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("Username and password are required", nil)
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("Username and password are required", nil)
	}

	identity, token, _, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return apperrors.NewUnauthorized("Invalid credentials")
		}
		return err
	}

	return c.JSON(dto.LoginResponse{
		Token: token,
		User:  dto.NewUserResponse(identity),
	})
}

// CreateUser handles the admin-only POST /users.
func (h *AuthHandler) CreateUser(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewMissingToken()
	}
	if !identity.Role.IsAdmin() {
		return apperrors.NewForbidden("Forbidden")
	}

	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("Username and password are required", nil)
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("Username and password are required", nil)
	}

	user, err := h.auth.Register(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			return apperrors.NewValidationError("username already taken", nil)
		}
		// Storage failures fall through to the generic 500 rendering.
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.UserResponse{
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
	})
}
