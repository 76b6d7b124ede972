package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/client-service/internal/auth"
	"github.com/spec-kit/client-service/internal/config"
	"github.com/spec-kit/client-service/internal/domain"
	"github.com/spec-kit/client-service/internal/repository"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret",
			TokenTTLMinutes: 120,
			BcryptCost:      4,
		},
		Session: config.SessionConfig{InactivityWindowMinutes: 30},
	}
}

func seedUser(t *testing.T) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword("123456", 4)
	require.NoError(t, err)
	return &domain.User{ID: 1, Username: "user1", PasswordHash: hash, Role: domain.RoleAdmin}
}

func TestAuthService_LoginIssuesActiveRecord(t *testing.T) {
	users := new(mockUserRepo)
	sessions := repository.NewMemorySessionTokenRepository()
	svc := NewAuthService(testConfig(), AuthDependencies{UserRepo: users, SessionRepo: sessions})

	users.On("GetByUsername", mock.Anything, "user1").Return(seedUser(t), nil)

	identity, token, expiresAt, err := svc.Login(context.Background(), "user1", "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{UserID: 1, Username: "user1", Role: domain.RoleAdmin}, identity)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), expiresAt, time.Minute)

	// The signed token decodes back to the same identity.
	parsed, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, identity, parsed)

	// And the store holds a fresh Active record for it.
	record, err := sessions.Get(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenStatusActive, record.Status)
	assert.Equal(t, int64(1), record.UserID)
	assert.Equal(t, "user1", record.Username)
	assert.WithinDuration(t, time.Now(), record.LastUsedAt, time.Second)

	users.AssertExpectations(t)
}

func TestAuthService_LoginWrongPassword(t *testing.T) {
	users := new(mockUserRepo)
	sessions := repository.NewMemorySessionTokenRepository()
	svc := NewAuthService(testConfig(), AuthDependencies{UserRepo: users, SessionRepo: sessions})

	users.On("GetByUsername", mock.Anything, "user1").Return(seedUser(t), nil)

	_, _, _, err := svc.Login(context.Background(), "user1", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_LoginUnknownUser(t *testing.T) {
	users := new(mockUserRepo)
	sessions := repository.NewMemorySessionTokenRepository()
	svc := NewAuthService(testConfig(), AuthDependencies{UserRepo: users, SessionRepo: sessions})

	users.On("GetByUsername", mock.Anything, "nobody").Return(nil, pgx.ErrNoRows)

	_, _, _, err := svc.Login(context.Background(), "nobody", "123456")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_LogoutIsIdempotent(t *testing.T) {
	users := new(mockUserRepo)
	sessions := repository.NewMemorySessionTokenRepository()
	svc := NewAuthService(testConfig(), AuthDependencies{UserRepo: users, SessionRepo: sessions})

	users.On("GetByUsername", mock.Anything, "user1").Return(seedUser(t), nil)

	identity, token, _, err := svc.Login(context.Background(), "user1", "123456")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), token, identity))
	require.NoError(t, svc.Logout(context.Background(), token, identity))

	record, err := svc.TokenStatus(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, domain.TokenStatusInvalid, record.Status)
}

func TestAuthService_RegisterDefaultsToUserRole(t *testing.T) {
	users := new(mockUserRepo)
	sessions := repository.NewMemorySessionTokenRepository()
	svc := NewAuthService(testConfig(), AuthDependencies{UserRepo: users, SessionRepo: sessions})

	users.On("GetByUsername", mock.Anything, "user2").Return(nil, pgx.ErrNoRows)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Username == "user2" && u.Role == domain.RoleUser && u.PasswordHash != ""
	})).Return(nil)

	user, err := svc.Register(context.Background(), "user2", "secret")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.NoError(t, auth.ComparePassword(user.PasswordHash, "secret"))

	users.AssertExpectations(t)
}

func TestAuthService_RegisterDuplicateUsername(t *testing.T) {
	users := new(mockUserRepo)
	sessions := repository.NewMemorySessionTokenRepository()
	svc := NewAuthService(testConfig(), AuthDependencies{UserRepo: users, SessionRepo: sessions})

	users.On("GetByUsername", mock.Anything, "user1").Return(seedUser(t), nil)

	_, err := svc.Register(context.Background(), "user1", "secret")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestAuthService_RegisterStoreFailure(t *testing.T) {
	users := new(mockUserRepo)
	sessions := repository.NewMemorySessionTokenRepository()
	svc := NewAuthService(testConfig(), AuthDependencies{UserRepo: users, SessionRepo: sessions})

	users.On("GetByUsername", mock.Anything, "user2").Return(nil, assert.AnError)

	// A failing duplicate check is a storage error, not a taken username.
	_, err := svc.Register(context.Background(), "user2", "secret")
	assert.ErrorIs(t, err, assert.AnError)
	assert.NotErrorIs(t, err, ErrUsernameTaken)
}
