package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/devstudio/backoffice/internal/application/services"
	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/interfaces/middleware"
	"github.com/devstudio/backoffice/pkg/errors"
	"github.com/devstudio/backoffice/pkg/utils"
)

// AuthService defines the session and user operations used by AuthHandler.
type AuthService interface {
	Login(ctx context.Context, email, password, ip, userAgent string) (*services.LoginResult, error)
	Logout(ctx context.Context, tokenString string) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	Me(ctx context.Context, userID string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, name, email, password, role string) (*models.User, error)
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// LoginRequest represents login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents login response
type LoginResponse struct {
	Success   bool        `json:"success"`
	Token     string      `json:"token"`
	User      interface{} `json:"user"`
	ExpiresAt string      `json:"expires_at"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !BindJSON(c, &req) {
		return
	}
	if !utils.IsValidEmail(req.Email) {
		RespondAppError(c, errors.NewValidationError("email", "Invalid email format"))
		return
	}

	result, err := h.svc.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, LoginResponse{
		Success:   true,
		Token:     result.Token,
		User:      result.User,
		ExpiresAt: result.ExpiresAt.Format(time.RFC3339),
	})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	token := c.GetString(middleware.ContextKeyToken)
	if token == "" {
		RespondAppError(c, errors.NewUnauthorizedError("No token provided"))
		return
	}
	HandleDeleteEnvelope(c, "Logged out successfully", func() error {
		return h.svc.Logout(c.Request.Context(), token)
	})
}

// GetMe handles GET /api/auth/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	HandleGetEnvelope(c, "user", func() (interface{}, error) {
		return h.svc.Me(c.Request.Context(), actorID(c))
	})
}

// ChangePasswordRequest represents change password request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// ChangePassword handles POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	HandleUpdateEnvelope(c, "", "Password changed successfully", &req, func() (interface{}, error) {
		return nil, h.svc.ChangePassword(c.Request.Context(), actorID(c), req.CurrentPassword, req.NewPassword)
	})
}

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// ListUsers handles GET /api/users
func (h *AuthHandler) ListUsers(c *gin.Context) {
	HandleGetEnvelope(c, "users", func() (interface{}, error) {
		return h.svc.ListUsers(c.Request.Context())
	})
}

// CreateUser handles POST /api/users
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	HandleCreateEnvelope(c, "user", "User created successfully", &req, func() (interface{}, error) {
		return h.svc.CreateUser(c.Request.Context(), req.Name, req.Email, req.Password, req.Role)
	})
}
