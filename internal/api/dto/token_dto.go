package dto

import (
	"time"

	"github.com/spec-kit/client-service/internal/domain"
)

// TokenStatusResponse reports the caller's own session record.
type TokenStatusResponse struct {
	Status     string    `json:"status"`
	LastUsedAt time.Time `json:"lastUsedAt"`
}

// NewTokenStatusResponse maps a session token record.
func NewTokenStatusResponse(record *domain.SessionTokenRecord) TokenStatusResponse {
	return TokenStatusResponse{
		Status:     string(record.Status),
		LastUsedAt: record.LastUsedAt,
	}
}
