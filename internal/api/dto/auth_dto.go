package dto

import "github.com/spec-kit/client-service/internal/domain"

// LoginRequest payload for POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserResponse is the identity as exposed to clients.
type UserResponse struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginResponse is the successful login body.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// NewUserResponse maps an identity.
func NewUserResponse(identity domain.Identity) UserResponse {
	return UserResponse{
		UserID:   identity.UserID,
		Username: identity.Username,
		Role:     string(identity.Role),
	}
}

// CreateUserRequest payload for the admin-only POST /users.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
