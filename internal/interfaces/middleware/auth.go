package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/devstudio/backoffice/pkg/auth"
)

// Context keys set by RequireAuth.
const (
	ContextKeyUser  = "user"
	ContextKeyToken = "token"

	HeaderAuthorization = "Authorization"
)

// SessionValidator checks tokens against the session store.
type SessionValidator interface {
	ValidateSession(ctx context.Context, tokenString string) (*auth.Claims, error)
	TouchSession(sessionID string)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "Unauthorized",
		"message": message,
		"code":    "UNAUTHORIZED",
		"data":    nil,
	})
}

// RequireAuth is a middleware that validates JWT tokens
func RequireAuth(sessions SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(HeaderAuthorization)
		if authHeader == "" {
			abortUnauthorized(c, "No authorization token provided")
			return
		}

		// Extract token (format: "Bearer <token>")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}
		tokenString := parts[1]

		claims, err := sessions.ValidateSession(c.Request.Context(), tokenString)
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		// Update last activity (Fire and forget)
		sessions.TouchSession(claims.ID)

		c.Set(ContextKeyUser, claims.User)
		c.Set(ContextKeyToken, tokenString)
		c.Next()
	}
}

// RequireAdmin lets only admins through. It must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abortUnauthorized(c, "User not authenticated")
			return
		}
		if !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "Only administrators can access this resource",
				"code":    "FORBIDDEN",
				"data":    nil,
			})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the session stored by RequireAuth.
func CurrentUser(c *gin.Context) (auth.UserSession, bool) {
	v, exists := c.Get(ContextKeyUser)
	if !exists {
		return auth.UserSession{}, false
	}
	user, ok := v.(auth.UserSession)
	return user, ok
}
