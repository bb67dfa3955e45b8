package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"snsu-notification/internal/domain"
	"snsu-notification/internal/service"
)

// SessionEnder ends a session's presence. The hub implements it so the
// offline change can be announced.
type SessionEnder interface {
	Logout(ctx context.Context, userID uint) error
}

// AuthHandler serves registration, login and logout.
type AuthHandler struct {
	authService *service.AuthService
	sessions    SessionEnder
}

func NewAuthHandler(authService *service.AuthService, sessions SessionEnder) *AuthHandler {
	if authService == nil {
		panic("AuthService cannot be nil for AuthHandler")
	}
	if sessions == nil {
		panic("SessionEnder cannot be nil for AuthHandler")
	}
	return &AuthHandler{authService: authService, sessions: sessions}
}

// RegisterRequest is the self-service signup body.
type RegisterRequest struct {
	Username   string      `json:"username" binding:"required,min=3,max=50"`
	Email      string      `json:"email" binding:"required,email"`
	Phone      string      `json:"phone" binding:"required,ph_phone"`
	Password   string      `json:"password" binding:"required,min=6"`
	Role       domain.Role `json:"role" binding:"omitempty,role"`
	Department string      `json:"department"`
	Course     string      `json:"course"`
	YearLevel  int         `json:"yearLevel"`
}

func (r RegisterRequest) input() service.UserInput {
	return service.UserInput{
		Username:   r.Username,
		Email:      r.Email,
		Phone:      r.Phone,
		Password:   r.Password,
		Role:       r.Role,
		Department: r.Department,
		Course:     r.Course,
		YearLevel:  r.YearLevel,
	}
}

// Register creates an account and returns it with a session token.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.Register: Invalid input format")
		BindErrorResponse(c, err)
		return
	}

	user, token, err := h.authService.Register(c.Request.Context(), req.input())
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	logrus.WithField("user_id", user.ID).Info("Handler.Register: User registered successfully")
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   token,
		"user":    user,
	})
}

// LoginRequest is the credential body.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials, marks the user online and issues a token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.Login: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Username and password are required")
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	logrus.WithField("user_id", user.ID).Info("Handler.Login: User logged in successfully")
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// Logout marks the caller offline unless a socket is still connected.
func (h *AuthHandler) Logout(c *gin.Context) {
	uid, ok := callerID(c)
	if !ok {
		return
	}
	if err := h.sessions.Logout(c.Request.Context(), uid); err != nil {
		HandleServiceError(c, err)
		return
	}
	MessageResponse(c, "Logout successful")
}
