package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/client-service/internal/api/dto"
	"github.com/spec-kit/client-service/internal/auth"
	"github.com/spec-kit/client-service/internal/domain"
	"github.com/spec-kit/client-service/internal/service"
	apperrors "github.com/spec-kit/client-service/pkg/util"
)

// ClientsHandler exposes CRUD over client records.
type ClientsHandler struct {
	clients *service.ClientService
}

// NewClientsHandler constructs the handler.
func NewClientsHandler(clientService *service.ClientService) *ClientsHandler {
	return &ClientsHandler{clients: clientService}
}

// List handles GET /clients. Admins get all records unless ?mine=true;
// non-admins always get only their own.
func (h *ClientsHandler) List(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewMissingToken()
	}
	mineOnly := c.Query("mine") == "true"

	clients, err := h.clients.List(c.UserContext(), identity, mineOnly)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewClientListResponse(clients))
}

// Create handles POST /clients.
func (h *ClientsHandler) Create(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewMissingToken()
	}

	input, err := parseClientRequest(c)
	if err != nil {
		return err
	}

	client, err := h.clients.Create(c.UserContext(), identity, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewClientResponse(client))
}

// GetByID handles GET /clients/:id.
func (h *ClientsHandler) GetByID(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewMissingToken()
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperrors.NewNotFound("Client", nil)
	}

	client, err := h.clients.GetByID(c.UserContext(), identity, id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewClientResponse(client))
}

// Update handles PUT /clients/:id.
func (h *ClientsHandler) Update(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewMissingToken()
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperrors.NewNotFound("Client", nil)
	}

	input, err := parseClientRequest(c)
	if err != nil {
		return err
	}

	client, err := h.clients.Update(c.UserContext(), identity, id, input)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewClientResponse(client))
}

// dobLayouts are the date formats accepted for the dob field; the stored
// value is always normalized to the first one.
var dobLayouts = []string{"2006-01-02", time.RFC3339, "2006/01/02"}

func parseClientRequest(c *fiber.Ctx) (service.ClientInput, error) {
	var req dto.ClientRequest
	if err := c.BodyParser(&req); err != nil {
		return service.ClientInput{}, apperrors.NewValidationError("firstName, lastName, dob, and sex are required", nil)
	}
	if req.FirstName == "" || req.LastName == "" || req.DOB == "" || req.Sex == "" {
		return service.ClientInput{}, apperrors.NewValidationError("firstName, lastName, dob, and sex are required", nil)
	}
	if !domain.ValidSex(domain.Sex(req.Sex)) {
		return service.ClientInput{}, apperrors.NewValidationError("sex must be 'Male', 'Female', or 'N/A'", nil)
	}

	dob, err := parseDOB(req.DOB)
	if err != nil {
		return service.ClientInput{}, apperrors.NewValidationError("dob must be a valid date", nil)
	}

	return service.ClientInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		DOB:       dob,
		Sex:       domain.Sex(req.Sex),
	}, nil
}

func parseDOB(value string) (string, error) {
	var lastErr error
	for _, layout := range dobLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed.Format("2006-01-02"), nil
		}
		lastErr = err
	}
	return "", lastErr
}
