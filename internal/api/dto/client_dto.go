package dto

import "github.com/spec-kit/client-service/internal/domain"

// ClientRequest payload for creating or updating a client record.
type ClientRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	DOB       string `json:"dob"`
	Sex       string `json:"sex"`
}

// ClientResponse is a client record as exposed to clients.
type ClientResponse struct {
	ID              int64  `json:"id"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	DOB             string `json:"dob"`
	Sex             string `json:"sex"`
	CreatedByUserID int64  `json:"createdByUserId"`
}

// NewClientResponse maps a domain client.
func NewClientResponse(client *domain.Client) ClientResponse {
	return ClientResponse{
		ID:              client.ID,
		FirstName:       client.FirstName,
		LastName:        client.LastName,
		DOB:             client.DOB,
		Sex:             string(client.Sex),
		CreatedByUserID: client.CreatedByUserID,
	}
}

// NewClientListResponse maps a slice of domain clients.
func NewClientListResponse(clients []domain.Client) []ClientResponse {
	out := make([]ClientResponse, 0, len(clients))
	for i := range clients {
		out = append(out, NewClientResponse(&clients[i]))
	}
	return out
}
