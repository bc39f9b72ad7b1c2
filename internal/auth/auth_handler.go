package auth

import (
	"net/http"
	"time"

	"marketplace-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	jwtManager *JWTManager
	logger     *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(jwtManager *JWTManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		jwtManager: jwtManager,
		logger:     logger,
	}
}

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"importer@example.com"`
	Password string `json:"password" binding:"required" example:"importer123"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token       string    `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	Type        string    `json:"type" example:"Bearer"`
	Email       string    `json:"email" example:"importer@example.com"`
	DisplayName string    `json:"display_name" example:"Import Co."`
	ExpiresIn   int       `json:"expires_in" example:"86400"` // 24 hours in seconds
	ExpiresAt   time.Time `json:"expires_at" example:"2024-01-16T12:00:00Z"`
}

// demo account directory (for prototype)
// In production, this should validate against a user database
type demoUser struct {
	password    string
	displayName string
}

var demoUsers = map[string]demoUser{
	"importer@example.com":  {password: "importer123", displayName: "Import Co."},
	"exporter@example.com":  {password: "exporter123", displayName: "Global Exports"},
	"wholesale@example.com": {password: "wholesale123", displayName: "Wholesale Partners"},
}

// Login handles POST /api/v1/auth/login
// @Summary      Login and get JWT token
// @Description  Authenticates a marketplace user and returns a JWT valid for 24 hours
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      LoginRequest  true  "Login credentials"
// @Success      200      {object}  LoginResponse
// @Failure      400      {object}  errors.StandardError
// @Failure      401      {object}  errors.StandardError
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid login request", zap.Error(err))
		c.Error(errors.NewValidationError("invalid request", "email or password"))
		c.Abort()
		return
	}

	user, ok := demoUsers[req.Email]
	if !ok || user.password != req.Password {
		h.logger.Warn("Invalid credentials",
			zap.String("email", req.Email),
		)
		c.JSON(http.StatusUnauthorized, errors.NewStandardError("Unauthorized", "invalid credentials", "email or password incorrect"))
		c.Abort()
		return
	}

	token, err := h.jwtManager.GenerateToken(req.Email, user.displayName)
	if err != nil {
		h.logger.Error("Failed to generate token", zap.Error(err))
		c.Error(errors.NewInternalError("failed to generate token", err))
		c.Abort()
		return
	}

	expiresAt := time.Now().Add(24 * time.Hour)
	response := LoginResponse{
		Token:       token,
		Type:        "Bearer",
		Email:       req.Email,
		DisplayName: user.displayName,
		ExpiresIn:   86400,
		ExpiresAt:   expiresAt,
	}

	h.logger.Info("User logged in successfully",
		zap.String("email", req.Email),
		zap.Time("expires_at", expiresAt),
	)

	c.JSON(http.StatusOK, response)
}
