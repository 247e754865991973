package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"task-weather-api/internal/enrichment"
	"task-weather-api/internal/models"
	"task-weather-api/internal/repositories"
)

const JobTypeRouteAudit JobType = "route_audit"

type RouteAuditPayload struct {
	IPAddress string `json:"ip"`
	Route     string `json:"route"`
	Username  string `json:"user,omitempty"`
}

// NewRouteAuditHandler enriches the caller address of a finished request and
// appends it to the api_calls table.
func NewRouteAuditHandler(enricher enrichment.Enricher, calls repositories.APICallRepository, logger *slog.Logger) JobHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return func(ctx context.Context, job *Job) error {
		var payload RouteAuditPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("decode route audit payload: %w", err)
		}

		report, err := enricher.Enrich(ctx, payload.IPAddress)
		if err != nil {
			return err
		}

		call := &models.APICall{
			IPAddress:    report.IPAddress,
			Country:      report.Country,
			City:         report.City,
			WeatherState: report.WeatherState,
			Temperature:  report.Temperature,
			Route:        payload.Route,
		}
		if err := calls.Create(ctx, call); err != nil {
			return fmt.Errorf("record api call: %w", err)
		}

		logger.Debug("route audited", "route", payload.Route, "user", payload.Username, "api_call_id", call.ID)
		return nil
	}
}
