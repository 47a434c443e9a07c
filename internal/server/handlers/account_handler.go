package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/domain/models"
	"github.com/mamadbah2/agritrace/internal/service/accounts"
)

// AccountHandler handles registration and login HTTP requests.
type AccountHandler struct {
	svc    *accounts.Service
	logger *zap.Logger
}

// NewAccountHandler constructs the HTTP handler adapter.
func NewAccountHandler(svc *accounts.Service, logger *zap.Logger) *AccountHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountHandler{svc: svc, logger: logger}
}

// Register creates an account for one of the fixed supply-chain roles.
func (h *AccountHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	userID, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		var vErr *models.ValidationError
		switch {
		case errors.As(err, &vErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
		case errors.Is(err, models.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		case errors.Is(err, models.ErrBackendUnavailable):
			h.logger.Error("account store unreachable", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "account service unavailable"})
		default:
			h.logger.Error("registration failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "userId": userID})
}

// Login verifies credentials and returns the user plus a session token.
// The password hash never appears in the response.
func (h *AccountHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, token, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		var vErr *models.ValidationError
		switch {
		case errors.As(err, &vErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
		case errors.Is(err, models.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		case errors.Is(err, models.ErrBackendUnavailable):
			h.logger.Error("account store unreachable", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "account service unavailable"})
		default:
			h.logger.Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user, "token": token})
}
