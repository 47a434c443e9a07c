package accounts

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/agritrace/internal/config"
	"github.com/mamadbah2/agritrace/internal/domain/models"
)

type fakeStore struct {
	users  map[string]models.User
	broken bool
	nextID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]models.User)}
}

func (s *fakeStore) InsertUser(ctx context.Context, user models.User) (string, error) {
	if s.broken {
		return "", errors.New("no reachable servers")
	}
	if _, exists := s.users[user.Email]; exists {
		return "", models.ErrEmailTaken
	}
	s.nextID++
	user.ID = fmt.Sprintf("user-%d", s.nextID)
	s.users[user.Email] = user
	return user.ID, nil
}

func (s *fakeStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.broken {
		return nil, errors.New("no reachable servers")
	}
	user, ok := s.users[email]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour}
}

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	return NewService(store, testAuthConfig(), nil), store
}

func TestRegisterStoresHashedPassword(t *testing.T) {
	svc, store := newTestService()

	userID, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "Alice",
		Email:    "Alice@Example.com",
		Password: "hunter2",
		Role:     "farmer",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, userID)

	stored := store.users["alice@example.com"]
	assert.Equal(t, models.RoleFarmer, stored.Role)
	assert.NotEqual(t, "hunter2", stored.PasswordHash)
	assert.NotEmpty(t, stored.PasswordHash)
}

func TestRegisterRejectsInvalidRole(t *testing.T) {
	svc, _ := newTestService()

	var vErr *models.ValidationError
	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "Bob", Email: "bob@example.com", Password: "pw", Role: "auditor",
	})
	assert.ErrorAs(t, err, &vErr)
}

func TestRegisterRejectsMissingFields(t *testing.T) {
	svc, _ := newTestService()

	cases := []models.RegisterRequest{
		{Email: "a@b.c", Password: "pw", Role: "farmer"},
		{Username: "A", Password: "pw", Role: "farmer"},
		{Username: "A", Email: "a@b.c", Role: "farmer"},
	}

	for _, req := range cases {
		var vErr *models.ValidationError
		_, err := svc.Register(context.Background(), req)
		assert.ErrorAs(t, err, &vErr)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()

	req := models.RegisterRequest{
		Username: "Alice", Email: "alice@example.com", Password: "pw", Role: "farmer",
	}
	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrEmailTaken)
}

func TestRegisterBackendUnavailable(t *testing.T) {
	svc, store := newTestService()
	store.broken = true

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "Alice", Email: "alice@example.com", Password: "pw", Role: "farmer",
	})
	assert.ErrorIs(t, err, models.ErrBackendUnavailable)
}

func TestLoginReturnsUserWithoutCredentials(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "Alice", Email: "alice@example.com", Password: "hunter2", Role: "retailer",
	})
	require.NoError(t, err)

	user, token, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "alice@example.com", Password: "hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, models.RoleRetailer, user.Role)
	assert.NotEmpty(t, token)

	claims, err := ParseToken("test-secret", token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleRetailer, claims.Role)
	assert.Equal(t, "alice@example.com", claims.Email)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "Alice", Email: "alice@example.com", Password: "hunter2", Role: "farmer",
	})
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), models.LoginRequest{
		Email: "alice@example.com", Password: "wrong",
	})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newTestService()

	_, _, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "nobody@example.com", Password: "pw",
	})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestParseTokenRejectsTampering(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "Alice", Email: "alice@example.com", Password: "pw", Role: "farmer",
	})
	require.NoError(t, err)

	_, token, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "alice@example.com", Password: "pw",
	})
	require.NoError(t, err)

	_, err = ParseToken("other-secret", token)
	assert.Error(t, err)

	_, err = ParseToken("test-secret", token+"x")
	assert.Error(t, err)
}
