package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Context keys set by AdminMiddleware.
const (
	UserKey = "userID"
	RoleKey = "role"
)

// AdminMiddleware validates access tokens and only lets ADMIN users through.
func AdminMiddleware(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "Missing Authorization Header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abort(c, http.StatusUnauthorized, "Invalid Header Format")
			return
		}

		claims, err := v.ValidateToken(parts[1])
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid or Expired Token")
			return
		}
		if claims.TokenType != TokenAccess {
			abort(c, http.StatusUnauthorized, "Invalid Token Type: Access Token required")
			return
		}
		if claims.Role != RoleAdmin {
			abort(c, http.StatusForbidden, "Admin role required")
			return
		}

		c.Set(UserKey, claims.UserID)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// ParseSecretHash validates the bcrypt hash of the internal shared secret.
func ParseSecretHash(hash string) ([]byte, error) {
	h := []byte(strings.TrimSpace(hash))
	if len(h) == 0 {
		return nil, errors.New("internal secret hash is empty")
	}
	if _, err := bcrypt.Cost(h); err != nil {
		return nil, fmt.Errorf("internal secret hash is not a bcrypt hash: %w", err)
	}
	return h, nil
}

// InternalMiddleware checks the X-Internal-Secret header of service-to-service
// calls against a bcrypt hash of the shared secret.
func InternalMiddleware(secretHash []byte, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secretHash) == 0 {
			logger.Error().Msg("[pricing-auth] INTERNAL_SECRET_HASH is not set, blocking request")
			abort(c, http.StatusInternalServerError, "Internal Server Error: Configuration Missing")
			return
		}

		apiKey := c.GetHeader("X-Internal-Secret")
		if apiKey == "" || bcrypt.CompareHashAndPassword(secretHash, []byte(apiKey)) != nil {
			logger.Warn().Str("path", c.FullPath()).Str("remote_addr", c.ClientIP()).
				Msg("[pricing-auth] unauthorized internal access attempt")
			abort(c, http.StatusUnauthorized, "Unauthorized: Invalid Internal Key")
			return
		}

		c.Next()
	}
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
