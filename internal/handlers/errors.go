package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"task-weather-api/internal/enrichment"
	"task-weather-api/internal/middleware"
	"task-weather-api/internal/models"
	"task-weather-api/internal/repositories"
	"task-weather-api/internal/services"

	"github.com/gin-gonic/gin"
)

// respondError maps domain errors onto status codes. Anything unrecognised is
// logged and reported as a bare 500.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_credentials",
			"message": "Incorrect username or password",
		})
	case errors.Is(err, services.ErrInvalidToken):
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_token",
			"message": "Could not validate credentials",
		})
	case errors.Is(err, services.ErrUsernameTaken):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "username_taken",
			"message": "Username already registered",
		})
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_input",
			"message": err.Error(),
		})
	case errors.Is(err, repositories.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Task not found",
		})
	case errors.Is(err, enrichment.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "service_unavailable",
			"message": "Could not retrieve weather information",
		})
	default:
		logger.Error("request failed",
			"error", err,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"request_id", middleware.GetRequestID(c),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Internal server error",
		})
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_input",
		"message": message,
	})
}

// currentUser is only reached behind RequireAuth; a missing user means the
// route was wired without it.
func currentUser(c *gin.Context, logger *slog.Logger) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, logger, errors.New("handler reached without an authenticated user"))
		return nil, false
	}
	return user, true
}

func discardIfNil(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
