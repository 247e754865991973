package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"task-weather-api/internal/enrichment"
	"task-weather-api/internal/models"
	"task-weather-api/internal/repositories"

	"github.com/gin-gonic/gin"
)

type ProtectedHandler struct {
	enricher enrichment.Enricher
	calls    repositories.APICallRepository
	logger   *slog.Logger
}

type WeatherResponse struct {
	WeatherState string  `json:"weather_state"`
	Temperature  float64 `json:"temperature"`
}

type ProtectedResponse struct {
	Message   string          `json:"message"`
	IPAddress string          `json:"ip_address"`
	Country   string          `json:"country"`
	Weather   WeatherResponse `json:"weather"`
}

func NewProtectedHandler(enricher enrichment.Enricher, calls repositories.APICallRepository, logger *slog.Logger) *ProtectedHandler {
	return &ProtectedHandler{enricher: enricher, calls: calls, logger: discardIfNil(logger)}
}

// ProtectedRoute reports the caller's location and weather. The lookup is
// recorded before the response is sent; on failure nothing is recorded.
func (h *ProtectedHandler) ProtectedRoute(c *gin.Context) {
	if _, ok := currentUser(c, h.logger); !ok {
		return
	}

	report, err := h.enricher.Enrich(c.Request.Context(), c.ClientIP())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	call := &models.APICall{
		IPAddress:    report.IPAddress,
		Country:      report.Country,
		City:         report.City,
		WeatherState: report.WeatherState,
		Temperature:  report.Temperature,
		Route:        c.Request.Method + " " + c.FullPath(),
	}
	if err := h.calls.Create(c.Request.Context(), call); err != nil {
		respondError(c, h.logger, fmt.Errorf("record api call: %w", err))
		return
	}

	c.JSON(http.StatusOK, ProtectedResponse{
		Message:   "This is a protected route",
		IPAddress: report.IPAddress,
		Country:   report.Country,
		Weather: WeatherResponse{
			WeatherState: report.WeatherState,
			Temperature:  report.Temperature,
		},
	})
}
