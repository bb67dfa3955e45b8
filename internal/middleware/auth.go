package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"snsu-notification/internal/domain"
	"snsu-notification/internal/service"
)

// Gin context keys set by Auth.
const (
	ContextUserIDKey = "user_id"
	ContextRoleKey   = "role"
)

// ErrMissingAuthHeader is returned when no Authorization header is sent.
var ErrMissingAuthHeader = errors.New("missing Authorization header")

// errMalformedAuthHeader is returned when the header is not "Bearer <token>".
var errMalformedAuthHeader = errors.New("malformed Authorization header")

// TokenVerifier checks a session token.
type TokenVerifier interface {
	VerifyToken(token string) (*service.Claims, error)
}

// Auth returns a middleware that requires a valid bearer token and stores
// the caller's id and role in the context.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	if verifier == nil {
		panic("TokenVerifier cannot be nil for Auth middleware")
	}

	return func(c *gin.Context) {
		tokenStr, err := extractToken(c)
		if err != nil {
			if errors.Is(err, ErrMissingAuthHeader) {
				logrus.Debug("Auth middleware: Missing Authorization header")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			} else {
				logrus.WithError(err).Warn("Auth middleware: Malformed token format")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			}
			return
		}

		claims, err := verifier.VerifyToken(tokenStr)
		if err != nil {
			logrus.WithError(err).Warn("Auth middleware: Invalid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextRoleKey, claims.Role)
		logrus.WithField("user_id", claims.UserID).Debug("Auth middleware: User authenticated via JWT")
		c.Next()
	}
}

// RequireRole rejects callers whose token role is not one of roles. It must
// run after Auth.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	allowed := make(map[domain.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role, _ := RoleFrom(c)
		if !allowed[role] {
			uid, _ := UserIDFrom(c)
			logrus.WithFields(logrus.Fields{"user_id": uid, "role": role}).Warn("Access denied for role")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		c.Next()
	}
}

// UserIDFrom returns the authenticated user id.
func UserIDFrom(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// RoleFrom returns the authenticated role.
func RoleFrom(c *gin.Context) (domain.Role, bool) {
	v, ok := c.Get(ContextRoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(domain.Role)
	return role, ok
}

// extractToken reads the token from "Authorization: Bearer <token>".
func extractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errMalformedAuthHeader
	}
	return parts[1], nil
}
