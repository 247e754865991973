package handlers

import (
	"log/slog"
	"net/http"

	"task-weather-api/internal/services"

	"github.com/gin-gonic/gin"
)

type RegisterHandler struct {
	store  services.CredentialStore
	logger *slog.Logger
}

func NewRegisterHandler(store services.CredentialStore, logger *slog.Logger) *RegisterHandler {
	return &RegisterHandler{store: store, logger: discardIfNil(logger)}
}

func (h *RegisterHandler) Registration(c *gin.Context) {
	var req services.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username and password are required")
		return
	}

	user, err := h.store.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
