package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mamadbah2/agritrace/internal/config"
	"github.com/mamadbah2/agritrace/internal/domain/models"
)

// UserStore is the slice of the repository the account service needs.
type UserStore interface {
	InsertUser(ctx context.Context, user models.User) (string, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Service implements registration and login against the user store.
// Passwords are bcrypt-hashed at rest and stripped from every response.
type Service struct {
	store  UserStore
	cfg    config.AuthConfig
	logger *zap.Logger
}

// NewService wires a new account service instance.
func NewService(store UserStore, cfg config.AuthConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cfg: cfg, logger: logger}
}

// Register creates an account and returns the assigned user id. The
// role must belong to the fixed {farmer, distributor, retailer} enum.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (string, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	switch {
	case req.Username == "":
		return "", &models.ValidationError{Field: "username", Reason: "must not be empty"}
	case req.Email == "":
		return "", &models.ValidationError{Field: "email", Reason: "must not be empty"}
	case req.Password == "":
		return "", &models.ValidationError{Field: "password", Reason: "must not be empty"}
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	userID, err := s.store.InsertUser(ctx, models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, models.ErrEmailTaken) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", userID),
		zap.String("role", string(role)))
	return userID, nil
}

// Login verifies credentials and returns the credential-free user view
// together with a signed session token. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (models.PublicUser, string, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Email == "" || req.Password == "" {
		return models.PublicUser{}, "", &models.ValidationError{Field: "email", Reason: "email and password are required"}
	}

	user, err := s.store.FindUserByEmail(ctx, req.Email)
	if err != nil {
		return models.PublicUser{}, "", fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
	}
	if user == nil {
		return models.PublicUser{}, "", models.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return models.PublicUser{}, "", models.ErrInvalidCredentials
	}

	token, err := GenerateToken(s.cfg.JWTSecret, s.cfg.TokenTTL, user)
	if err != nil {
		return models.PublicUser{}, "", fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return user.Public(), token, nil
}
