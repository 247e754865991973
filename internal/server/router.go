// Package server assembles the gin engine: middleware chain, API routes and
// the operational endpoints.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"task-weather-api/internal/apidoc"
	"task-weather-api/internal/handlers"
	"task-weather-api/internal/middleware"
	"task-weather-api/internal/monitoring"
	"task-weather-api/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps is everything the router needs. Audit is optional; when nil no route
// audit jobs are queued.
type Deps struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	// TrustedProxies may be empty, in which case forwarding headers are ignored.
	TrustedProxies []string

	Auth      *handlers.AuthHandler
	Register  *handlers.RegisterHandler
	Users     *handlers.UserHandler
	Tasks     *handlers.TaskHandler
	Protected *handlers.ProtectedHandler

	Tokens      services.TokenService
	UserFinder  middleware.UserFinder
	Audit       middleware.JobEnqueuer
	AuditQueue  string
	APIDoc      *apidoc.Rendered
	Metrics     *monitoring.Metrics
	Health      *monitoring.HealthChecker
	StatsSource map[string]monitoring.StatsSource
}

func corsConfig(origins []string) cors.Config {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
		config.AllowCredentials = true
	}
	return config
}

// both registers path with and without a trailing slash.
func both(r gin.IRoutes, method, path string, h ...gin.HandlerFunc) {
	r.Handle(method, path, h...)
	r.Handle(method, path+"/", h...)
}

func NewRouter(deps Deps) (*gin.Engine, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}

	router := gin.New()
	if err := router.SetTrustedProxies(deps.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(
		middleware.RequestID(),
		middleware.RecoveryWithLog(logger),
		middleware.RequestLogger(logger),
		metrics.Middleware(),
		cors.New(corsConfig(deps.AllowedOrigins)),
	)

	audit := gin.HandlerFunc(func(c *gin.Context) { c.Next() })
	if deps.Audit != nil {
		audit = middleware.AuditRoutes(deps.Audit, deps.AuditQueue, logger)
	}
	requireAuth := middleware.RequireAuth(deps.Tokens, deps.UserFinder, logger)

	router.POST("/token", deps.Auth.Token)
	both(router, http.MethodPost, "/users", audit, deps.Register.Registration)
	both(router, http.MethodGet, "/users/me", requireAuth, deps.Users.Me)
	both(router, http.MethodGet, "/protected-route", requireAuth, deps.Protected.ProtectedRoute)

	tasks := router.Group("/tasks", requireAuth, audit)
	{
		both(tasks, http.MethodPost, "", deps.Tasks.CreateTask)
		both(tasks, http.MethodGet, "", deps.Tasks.GetTasks)
		tasks.GET("/:id", deps.Tasks.GetTaskByID)
		tasks.PUT("/:id", deps.Tasks.UpdateTask)
		tasks.DELETE("/:id", deps.Tasks.DeleteTask)
	}

	if deps.APIDoc != nil {
		router.GET("/openapi.json", func(c *gin.Context) {
			c.Data(http.StatusOK, "application/json; charset=utf-8", deps.APIDoc.JSON)
		})
		router.GET("/openapi.yaml", func(c *gin.Context) {
			c.Data(http.StatusOK, "application/yaml; charset=utf-8", deps.APIDoc.YAML)
		})
	}

	if deps.Health != nil {
		router.GET("/health", deps.Health.HealthHandler())
		router.GET("/ready", deps.Health.ReadinessHandler())
		router.GET("/live", deps.Health.LivenessHandler())
	}
	router.GET("/metrics", metrics.Handler(deps.StatsSource))

	return router, nil
}
