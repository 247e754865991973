package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	logger *slog.Logger
}

func NewUserHandler(logger *slog.Logger) *UserHandler {
	return &UserHandler{logger: discardIfNil(logger)}
}

// Me returns the caller; RequireAuth has already loaded it.
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := currentUser(c, h.logger)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}
