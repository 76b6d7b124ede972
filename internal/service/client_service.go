package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/client-service/internal/auth"
	"github.com/spec-kit/client-service/internal/domain"
	"github.com/spec-kit/client-service/internal/events"
	"github.com/spec-kit/client-service/internal/repository"
	apperrors "github.com/spec-kit/client-service/pkg/util"
)

// ClientInput carries validated client record fields.
type ClientInput struct {
	FirstName string
	LastName  string
	DOB       string // normalized YYYY-MM-DD
	Sex       domain.Sex
}

// ClientService orchestrates client record CRUD under the access policy.
type ClientService struct {
	clients    repository.ClientRepository
	dispatcher events.Dispatcher
}

// NewClientService builds the service.
func NewClientService(clients repository.ClientRepository, dispatcher events.Dispatcher) *ClientService {
	return &ClientService{clients: clients, dispatcher: dispatcher}
}

// List returns the clients visible to the identity. Admins see all unless
// mineOnly is set; everyone else sees only records they created.
func (s *ClientService) List(ctx context.Context, identity domain.Identity, mineOnly bool) ([]domain.Client, error) {
	scope := auth.ScopeForList(identity, mineOnly)
	return s.clients.List(ctx, scope.Owner)
}

// Create stores a new client owned by the caller.
func (s *ClientService) Create(ctx context.Context, identity domain.Identity, input ClientInput) (*domain.Client, error) {
	client := &domain.Client{
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		DOB:             input.DOB,
		Sex:             input.Sex,
		CreatedByUserID: identity.UserID,
	}
	if err := s.clients.Create(ctx, client); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventClientCreated, identity, client)
	return client, nil
}

// GetByID returns a single client, enforcing ownership for non-admins.
func (s *ClientService) GetByID(ctx context.Context, identity domain.Identity, id int64) (*domain.Client, error) {
	client, err := s.clients.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Client", nil)
		}
		return nil, err
	}
	if !auth.CanAccess(identity, client.CreatedByUserID) {
		return nil, apperrors.NewForbidden("Forbidden")
	}
	return client, nil
}

// Update replaces a client's fields, enforcing ownership for non-admins.
// Ownership never changes on update.
func (s *ClientService) Update(ctx context.Context, identity domain.Identity, id int64, input ClientInput) (*domain.Client, error) {
	existing, err := s.GetByID(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	existing.FirstName = input.FirstName
	existing.LastName = input.LastName
	existing.DOB = input.DOB
	existing.Sex = input.Sex
	if err := s.clients.Update(ctx, existing); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Client", nil)
		}
		return nil, err
	}

	s.publish(ctx, events.EventClientUpdated, identity, existing)
	return existing, nil
}

func (s *ClientService) publish(ctx context.Context, eventType events.EventType, identity domain.Identity, client *domain.Client) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.NewEvent(eventType, identity, events.ClientPayload{
		ClientID:  client.ID,
		FirstName: client.FirstName,
		LastName:  client.LastName,
	}))
}
