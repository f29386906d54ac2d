// Package handler maps HTTP requests onto the auth and contact services
// and their error taxonomy onto status codes. No raw store or library
// error text crosses this boundary.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"contactsss/internal/auth"
	"contactsss/internal/model"
	"contactsss/internal/server/middleware"
)

// AuthHandler serves the /auth routes.
type AuthHandler struct {
	auth   *auth.Service
	logger *zap.Logger
}

// NewAuthHandler creates an [AuthHandler].
func NewAuthHandler(authService *auth.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: authService, logger: logger}
}

type SignupRequest struct {
	Username string `json:"username" binding:"required,max=150"`
	Email    string `json:"email" binding:"required,email,max=200"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type userResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Confirmed bool   `json:"confirmed"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Confirmed: u.Confirmed}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.auth.Signup(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Already exists"})
			return
		}
		h.fail(c, err, "signup failed")
		return
	}

	detail := "Successfully created"
	if !result.EmailSent {
		detail = "Successfully created user but activation email was not sent!"
	}
	c.JSON(http.StatusCreated, gin.H{"user": newUserResponse(result.User), "detail": detail})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pair, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrWrongUser):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Wrong user"})
		case errors.Is(err, auth.ErrNotConfirmed):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Email not confirmed"})
		case errors.Is(err, auth.ErrWrongPassword):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Wrong password"})
		default:
			h.fail(c, err, "login failed")
		}
		return
	}

	c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	tok, ok := middleware.BearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer <token>"})
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), tok)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidRefreshToken):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		case errors.Is(err, auth.ErrWrongUser):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Wrong user"})
		default:
			h.fail(c, err, "refresh failed")
		}
		return
	}

	c.JSON(http.StatusOK, pair)
}

func (h *AuthHandler) RequestEmail(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alreadyConfirmed, err := h.auth.RequestEmailConfirmation(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrWrongUser) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Wrong user"})
			return
		}
		h.fail(c, err, "confirmation request failed")
		return
	}

	if alreadyConfirmed {
		c.JSON(http.StatusOK, gin.H{"message": "Your email is already confirmed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Check your email for confirmation."})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, auth.ErrWrongUser) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Wrong user"})
			return
		}
		h.fail(c, err, "password reset failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Check your email for new password."})
}

func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	_, err := h.auth.ConfirmEmail(c.Request.Context(), c.Param("email_token"))
	if err != nil {
		if errors.Is(err, auth.ErrVerification) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Verification error"})
			return
		}
		h.fail(c, err, "email confirmation failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email confirmed"})
}

// fail handles the non-taxonomy tail: transient backend trouble maps to
// 503, anything else to a generic 500.
func (h *AuthHandler) fail(c *gin.Context, err error, msg string) {
	if errors.Is(err, auth.ErrTransient) {
		h.logger.Warn(msg, zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Temporarily unavailable"})
		return
	}
	h.logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
}
