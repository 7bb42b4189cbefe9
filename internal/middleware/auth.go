package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kitovu/farmreg/api/internal/auth"
)

const (
	// ActorKey is the context key for the authenticated actor's claims
	ActorKey = "actor"
)

// RequireAuth creates a middleware that rejects requests without a valid
// Bearer token. On success the actor's claims are stored in the context for
// handlers to attribute writes to.
func RequireAuth(tm *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "No token provided")
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header || token == "" {
			abortUnauthorized(c, "Malformed authorization header")
			return
		}

		claims, err := tm.Verify(token)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(ActorKey, claims)
		c.Next()
	}
}

// RequireAdmin creates a middleware that rejects authenticated callers whose
// role is not administrator. Must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := GetActor(c)
		if actor == nil {
			abortUnauthorized(c, "No token provided")
			return
		}

		if actor.Role != "administrator" {
			if log := GetLogger(c); log != nil {
				log.Warn("Authorization failed", map[string]interface{}{
					"request_id": GetRequestID(c),
					"path":       c.Request.URL.Path,
					"role":       actor.Role,
				})
			}
			c.JSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":       "AUTHORIZATION_ERROR",
					"message":    "This action requires administrator privileges",
					"request_id": GetRequestID(c),
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetActor retrieves the authenticated actor's claims from the Gin context.
// Returns nil if the request was not authenticated.
func GetActor(c *gin.Context) *auth.Claims {
	if actor, exists := c.Get(ActorKey); exists {
		if claims, ok := actor.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

func abortUnauthorized(c *gin.Context, message string) {
	if log := GetLogger(c); log != nil {
		log.Warn("Authentication failed", map[string]interface{}{
			"request_id": GetRequestID(c),
			"path":       c.Request.URL.Path,
			"message":    message,
		})
	}
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":       "AUTHENTICATION_ERROR",
			"message":    message,
			"request_id": GetRequestID(c),
		},
	})
	c.Abort()
}
