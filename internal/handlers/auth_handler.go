package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	apierrors "github.com/kitovu/farmreg/api/internal/errors"
	"github.com/kitovu/farmreg/api/internal/middleware"
	"github.com/kitovu/farmreg/api/internal/services"
)

// AuthHandler handles authentication and account HTTP requests.
type AuthHandler struct {
	service services.AuthService
}

// NewAuthHandler creates a new AuthHandler instance.
func NewAuthHandler(service services.AuthService) *AuthHandler {
	return &AuthHandler{
		service: service,
	}
}

// LoginRequest is the login request body.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserData is the user projection returned by account endpoints.
type UserData struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
}

// LoginResponse is the success response of the login endpoint.
type LoginResponse struct {
	Token string   `json:"token"`
	User  UserData `json:"user"`
}

// CreateEnumeratorRequest is the enumerator-creation request body.
type CreateEnumeratorRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// ResetPasswordRequest is the password-reset request body.
type ResetPasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	token, user, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			apierrors.Unauthorized(c, "Invalid email or password")
			return
		}
		apierrors.InternalServerError(c, "Failed to log in", err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token: token,
		User: UserData{
			ID:       user.ID,
			Email:    user.Email,
			Username: user.Username,
			Role:     user.Role,
		},
	})
}

// CreateEnumerator handles POST /api/v1/auth/enumerators.
// Restricted to administrators by the RequireAdmin middleware.
func (h *AuthHandler) CreateEnumerator(c *gin.Context) {
	var req CreateEnumeratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	user, err := h.service.CreateEnumerator(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateUser) {
			apierrors.Conflict(c, "Email or username already exists")
			return
		}
		apierrors.InternalServerError(c, "Failed to create enumerator", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Enumerator created successfully",
		"user": UserData{
			ID:       user.ID,
			Email:    user.Email,
			Username: user.Username,
			Role:     user.Role,
		},
	})
}

// ResetPassword handles POST /api/v1/auth/password for the authenticated
// actor.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	actor := middleware.GetActor(c)
	if actor == nil {
		apierrors.Unauthorized(c, "No token provided")
		return
	}

	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	user, err := h.service.ResetPassword(c.Request.Context(), actor.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, services.ErrWrongPassword) {
			apierrors.Unauthorized(c, "Current password is incorrect")
			return
		}
		if errors.Is(err, services.ErrUserNotFound) {
			apierrors.NotFound(c, "No user found for this token")
			return
		}
		apierrors.InternalServerError(c, "Failed to reset password", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password reset successful",
		"user": UserData{
			ID:       user.ID,
			Email:    user.Email,
			Username: user.Username,
			Role:     user.Role,
		},
	})
}
