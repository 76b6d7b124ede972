package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/client-service/internal/api/http/handlers"
	"github.com/spec-kit/client-service/internal/auth"
	"github.com/spec-kit/client-service/internal/config"
	"github.com/spec-kit/client-service/internal/domain"
	"github.com/spec-kit/client-service/internal/events"
	"github.com/spec-kit/client-service/internal/observability"
	"github.com/spec-kit/client-service/internal/repository"
	"github.com/spec-kit/client-service/internal/service"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}, nextID: 1}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = r.nextID
	r.nextID++
	copied := *user
	r.users[strings.ToLower(user.Username)] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[strings.ToLower(username)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

type fakeClientRepo struct {
	mu      sync.Mutex
	clients map[int64]*domain.Client
	nextID  int64
}

func newFakeClientRepo() *fakeClientRepo {
	return &fakeClientRepo{clients: map[int64]*domain.Client{}, nextID: 1}
}

func (r *fakeClientRepo) Create(_ context.Context, client *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	client.ID = r.nextID
	r.nextID++
	client.CreatedAt = time.Now()
	client.UpdatedAt = client.CreatedAt
	copied := *client
	r.clients[client.ID] = &copied
	return nil
}

func (r *fakeClientRepo) Update(_ context.Context, client *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[client.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *client
	r.clients[client.ID] = &copied
	return nil
}

func (r *fakeClientRepo) GetByID(_ context.Context, id int64) (*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	client, ok := r.clients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *client
	return &copied, nil
}

func (r *fakeClientRepo) List(_ context.Context, ownerID *int64) ([]domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Client, 0, len(r.clients))
	for _, client := range r.clients {
		if ownerID != nil && client.CreatedByUserID != *ownerID {
			continue
		}
		out = append(out, *client)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

var _ repository.ClientRepository = (*fakeClientRepo)(nil)

// faultyUserRepo fails every lookup except the seeded login account,
// simulating a store outage mid-session.
type faultyUserRepo struct {
	*fakeUserRepo
	err error
}

func (r *faultyUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if strings.ToLower(username) != "user1" {
		return nil, r.err
	}
	return r.fakeUserRepo.GetByUsername(ctx, username)
}

const testBcryptCost = 4

func seedUsers(t *testing.T) *fakeUserRepo {
	t.Helper()

	users := newFakeUserRepo()
	for _, seed := range []struct {
		username string
		password string
		role     domain.Role
	}{
		{"user1", "123456", domain.RoleAdmin},
		{"user5", "hunter2", domain.RoleUser},
	} {
		hash, err := auth.HashPassword(seed.password, testBcryptCost)
		require.NoError(t, err)
		require.NoError(t, users.Create(context.Background(), &domain.User{
			Username:     seed.username,
			PasswordHash: hash,
			Role:         seed.role,
		}))
	}
	return users
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	return newTestAppWithUsers(t, seedUsers(t))
}

func newTestAppWithUsers(t *testing.T, users repository.UserRepository) *fiber.App {
	t.Helper()

	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret",
			TokenTTLMinutes: 120,
			BcryptCost:      testBcryptCost,
		},
		Session: config.SessionConfig{InactivityWindowMinutes: 30},
	}

	sessions := repository.NewMemorySessionTokenRepository()
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:    users,
		SessionRepo: sessions,
		Dispatcher:  dispatcher,
	})
	clientService := service.NewClientService(newFakeClientRepo(), dispatcher)
	guard := auth.NewSessionGuard(authService.TokenManager(), sessions, cfg.Session.InactivityWindow(), dispatcher, zap.NewNop())

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0)
	RegisterRoutes(app, RouteConfig{
		Health:  handlers.NewHealthHandler("client-management-service", "test", nil, nil),
		Auth:    handlers.NewAuthHandler(authService),
		Clients: handlers.NewClientsHandler(clientService),
		Tokens:  handlers.NewTokensHandler(authService),
		Guard:   guard,
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, payload any) (int, map[string]any, []byte) {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw := new(bytes.Buffer)
	_, err = raw.ReadFrom(resp.Body)
	require.NoError(t, err)

	decoded := map[string]any{}
	_ = json.Unmarshal(raw.Bytes(), &decoded)
	return resp.StatusCode, decoded, raw.Bytes()
}

func login(t *testing.T, app *fiber.App, username, password string) string {
	t.Helper()
	status, body, _ := doJSON(t, app, "POST", "/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, fiber.StatusOK, status, "login failed: %v", body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestLoginSuccess(t *testing.T) {
	app := newTestApp(t)

	status, body, _ := doJSON(t, app, "POST", "/login", "", map[string]string{
		"username": "user1",
		"password": "123456",
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.NotEmpty(t, body["token"])

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), user["userId"])
	assert.Equal(t, "user1", user["username"])
	assert.Equal(t, "Admin", user["role"])
}

func TestLoginViaAPIPrefix(t *testing.T) {
	app := newTestApp(t)

	status, _, _ := doJSON(t, app, "POST", "/api/login", "", map[string]string{
		"username": "user1",
		"password": "123456",
	})
	assert.Equal(t, fiber.StatusOK, status)
}

func TestLoginMissingFields(t *testing.T) {
	app := newTestApp(t)

	status, body, _ := doJSON(t, app, "POST", "/login", "", map[string]string{"username": "user1"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Username and password are required", body["message"])
}

func TestLoginInvalidCredentials(t *testing.T) {
	app := newTestApp(t)

	status, body, _ := doJSON(t, app, "POST", "/login", "", map[string]string{
		"username": "user1",
		"password": "wrong",
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Invalid credentials", body["message"])
}

func TestClientsRequireToken(t *testing.T) {
	app := newTestApp(t)

	status, body, _ := doJSON(t, app, "GET", "/clients", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Missing token", body["message"])

	status, _, _ = doJSON(t, app, "GET", "/clients", "not_a_real_token", nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestClientCRUDAndOwnership(t *testing.T) {
	app := newTestApp(t)
	adminToken := login(t, app, "user1", "123456")
	userToken := login(t, app, "user5", "hunter2")

	// Admin creates a record.
	status, created, _ := doJSON(t, app, "POST", "/clients", adminToken, map[string]string{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"dob":       "1815-12-10",
		"sex":       "Female",
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "Ada", created["firstName"])
	assert.Equal(t, "1815-12-10", created["dob"])
	assert.Equal(t, float64(1), created["createdByUserId"])
	adminClientID := int64(created["id"].(float64))

	// Non-admin creates their own record.
	status, _, _ = doJSON(t, app, "POST", "/clients", userToken, map[string]string{
		"firstName": "Grace",
		"lastName":  "Hopper",
		"dob":       "1906-12-09",
		"sex":       "Female",
	})
	require.Equal(t, fiber.StatusCreated, status)

	// Admin lists everything; non-admin only their own.
	status, _, raw := doJSON(t, app, "GET", "/clients", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	var all []map[string]any
	require.NoError(t, json.Unmarshal(raw, &all))
	assert.Len(t, all, 2)

	status, _, raw = doJSON(t, app, "GET", "/clients", userToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	var mine []map[string]any
	require.NoError(t, json.Unmarshal(raw, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "Grace", mine[0]["firstName"])

	// ?mine=true restricts the admin too.
	status, _, raw = doJSON(t, app, "GET", "/clients?mine=true", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	var adminMine []map[string]any
	require.NoError(t, json.Unmarshal(raw, &adminMine))
	require.Len(t, adminMine, 1)
	assert.Equal(t, "Ada", adminMine[0]["firstName"])

	// Non-admin denied on a record they do not own.
	status, body, _ := doJSON(t, app, "GET", fmt.Sprintf("/clients/%d", adminClientID), userToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Forbidden", body["message"])

	// Admin reads anyone's record.
	status, body, _ = doJSON(t, app, "GET", fmt.Sprintf("/clients/%d", adminClientID), adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Ada", body["firstName"])

	// Update keeps ownership and applies changes.
	status, body, _ = doJSON(t, app, "PUT", fmt.Sprintf("/clients/%d", adminClientID), adminToken, map[string]string{
		"firstName": "Ada",
		"lastName":  "King",
		"dob":       "1815-12-10",
		"sex":       "Female",
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "King", body["lastName"])
	assert.Equal(t, float64(1), body["createdByUserId"])

	// Absent record.
	status, body, _ = doJSON(t, app, "GET", "/clients/9999", adminToken, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Client not found", body["message"])
}

func TestClientValidation(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, "user1", "123456")

	status, body, _ := doJSON(t, app, "POST", "/clients", token, map[string]string{
		"firstName": "Ada",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "firstName, lastName, dob, and sex are required", body["message"])

	status, body, _ = doJSON(t, app, "POST", "/clients", token, map[string]string{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"dob":       "1815-12-10",
		"sex":       "Other",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "sex must be 'Male', 'Female', or 'N/A'", body["message"])

	status, body, _ = doJSON(t, app, "POST", "/clients", token, map[string]string{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"dob":       "not-a-date",
		"sex":       "N/A",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "dob must be a valid date", body["message"])
}

func TestTokenStatusAndInvalidateFlow(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app, "user1", "123456")

	status, body, _ := doJSON(t, app, "GET", "/tokens/status", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, []any{"Active", "Valid"}, body["status"])
	assert.NotEmpty(t, body["lastUsedAt"])

	status, _, _ = doJSON(t, app, "POST", "/tokens/invalidate", token, nil)
	require.Equal(t, fiber.StatusOK, status)

	// Every later use of the token is rejected on its burned record.
	status, body, _ = doJSON(t, app, "GET", "/clients", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Token has been invalidated", body["message"])
}

func TestCreateUserRequiresAdmin(t *testing.T) {
	app := newTestApp(t)
	adminToken := login(t, app, "user1", "123456")
	userToken := login(t, app, "user5", "hunter2")

	status, body, _ := doJSON(t, app, "POST", "/users", userToken, map[string]string{
		"username": "user9",
		"password": "secret",
	})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Forbidden", body["message"])

	status, body, _ = doJSON(t, app, "POST", "/users", adminToken, map[string]string{
		"username": "user9",
		"password": "secret",
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "user9", body["username"])
	assert.Equal(t, "User", body["role"])

	// The new account can log in.
	login(t, app, "user9", "secret")
}

func TestCreateUserStoreFailure(t *testing.T) {
	users := &faultyUserRepo{
		fakeUserRepo: seedUsers(t),
		err:          errors.New("dial tcp 10.2.3.4:5432: connection refused"),
	}
	app := newTestAppWithUsers(t, users)
	adminToken := login(t, app, "user1", "123456")

	// A store outage during the duplicate check must not surface as a
	// validation error, and the storage detail must not leak.
	status, body, _ := doJSON(t, app, "POST", "/users", adminToken, map[string]string{
		"username": "user9",
		"password": "secret",
	})
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "Internal server error", body["message"])
}

func TestRequestTimeoutSetsDeadline(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 50*time.Millisecond)
	app.Get("/deadline", func(c *fiber.Ctx) error {
		_, bounded := c.UserContext().Deadline()
		return c.JSON(fiber.Map{"bounded": bounded})
	})

	status, body, _ := doJSON(t, app, "GET", "/deadline", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["bounded"])
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	status, body, _ := doJSON(t, app, "GET", "/health", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

