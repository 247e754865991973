package middleware

import (
	"context"
	"log/slog"

	"task-weather-api/internal/worker"

	"github.com/gin-gonic/gin"
)

type JobEnqueuer interface {
	Enqueue(ctx context.Context, queue string, jobType worker.JobType, payload interface{}) (*worker.Job, error)
}

// AuditRoutes queues a route_audit job for every successful request. Queue
// failures are logged and never change the response.
func AuditRoutes(jobs JobEnqueuer, queue string, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() >= 400 || c.IsAborted() {
			return
		}

		payload := worker.RouteAuditPayload{
			IPAddress: c.ClientIP(),
			Route:     c.Request.Method + " " + c.FullPath(),
		}
		if user, ok := CurrentUser(c); ok {
			payload.Username = user.Username
		}

		ctx := context.WithoutCancel(c.Request.Context())
		if _, err := jobs.Enqueue(ctx, queue, worker.JobTypeRouteAudit, payload); err != nil {
			logger.Warn("enqueue route audit", "error", err, "route", payload.Route, "request_id", GetRequestID(c))
		}
	}
}
