package events

import (
	"time"

	"github.com/spec-kit/client-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionIssued      EventType = "session_issued"
	EventSessionInvalidated EventType = "session_invalidated"
	EventSessionExpiredIdle EventType = "session_expired_inactivity"
	EventClientCreated      EventType = "client_created"
	EventClientUpdated      EventType = "client_updated"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Actor     domain.Identity `json:"actor"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   interface{}     `json:"payload"`
}

// SessionPayload accompanies session lifecycle events. The token value is
// never carried in events; records remain in the store as the audit trail.
type SessionPayload struct {
	UserID   int64              `json:"user_id"`
	Username string             `json:"username"`
	Status   domain.TokenStatus `json:"status"`
}

// ClientPayload accompanies client record events.
type ClientPayload struct {
	ClientID  int64  `json:"client_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
