package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/client-service/internal/events"
)

// AuditService emits a structured audit line for every session and client
// record event. Together with the never-deleted token records this forms
// the audit trail.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to all audited events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventSessionIssued,
		events.EventSessionInvalidated,
		events.EventSessionExpiredIdle,
		events.EventClientCreated,
		events.EventClientUpdated,
	} {
		a.dispatcher.Subscribe(eventType, a.handleEvent)
	}
}

func (a *AuditService) handleEvent(_ context.Context, event events.Event) error {
	a.logger.Info("audit",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int64("actor_user_id", event.Actor.UserID),
		zap.String("actor_username", event.Actor.Username),
		zap.Time("at", event.Timestamp),
		zap.Any("payload", event.Payload),
	)
	return nil
}
