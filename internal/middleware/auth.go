package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"task-weather-api/internal/models"
	"task-weather-api/internal/repositories"
	"task-weather-api/internal/services"

	"github.com/gin-gonic/gin"
)

const currentUserKey = "current_user"

// UserFinder is the slice of the credential store the middleware needs.
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

func unauthorized(c *gin.Context, code, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   code,
		"message": message,
	})
}

// RequireAuth admits a request only when it carries a valid bearer token whose
// subject is still a registered user.
func RequireAuth(tokens services.TokenService, users UserFinder, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "missing_token", "Authorization header is required")
			return
		}

		scheme, tokenStr, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenStr) == "" {
			unauthorized(c, "invalid_token_format", "Authorization header must use Bearer token")
			return
		}

		username, err := tokens.Verify(strings.TrimSpace(tokenStr))
		if err != nil {
			unauthorized(c, "invalid_token", "Could not validate credentials")
			return
		}

		user, err := users.FindByUsername(c.Request.Context(), username)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				unauthorized(c, "invalid_token", "Could not validate credentials")
				return
			}
			logger.Error("loading token subject", "error", err, "request_id", GetRequestID(c))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Internal server error",
			})
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user RequireAuth attached to the request.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(currentUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}
