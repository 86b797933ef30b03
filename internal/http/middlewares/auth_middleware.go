package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/geocoder89/taskhub/internal/auth"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

const ctxUserIDKey = "auth.userID"

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// RequireAuth extracts the bearer token, verifies it, and binds the user
// identity to the request context. Handlers read the identity only from the
// context, never from client-supplied fields.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "missing_token", "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortUnauthorized(c, "missing_token", "Missing access token")
			return
		}

		userID, err := m.jwt.Verify(raw)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				abortUnauthorized(c, "token_expired", "Access token has expired")
				return
			}

			abortUnauthorized(c, "invalid_token", "Invalid access token")
			return
		}

		c.Set(ctxUserIDKey, userID)

		c.Next()
	}
}

// UserIDFromContext returns the verified identity bound by RequireAuth.
func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
