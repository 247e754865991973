package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"task-weather-api/internal/apidoc"
	"task-weather-api/internal/cache"
	"task-weather-api/internal/config"
	"task-weather-api/internal/database"
	"task-weather-api/internal/enrichment"
	"task-weather-api/internal/handlers"
	"task-weather-api/internal/monitoring"
	"task-weather-api/internal/repositories"
	"task-weather-api/internal/server"
	"task-weather-api/internal/services"
	"task-weather-api/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	apiTitle   = "Task Weather API"
	apiVersion = "1.0.0"
)

// application owns every long-lived resource; close releases them.
type application struct {
	cfg    *config.Config
	logger *slog.Logger

	pool     *database.DatabasePool
	redis    *redis.Client
	cache    *cache.MultiLevelCache
	enricher *enrichment.Service
	worker   *worker.Worker
	router   *gin.Engine
}

func newLogger(cfg config.LogConfig, out io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

// connectRedis returns nil when Redis is disabled or unreachable; callers
// then run with the in-memory cache only and without route auditing.
func connectRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		logger.Info("redis disabled, using in-memory cache only")
		return nil
	}

	client := cache.NewRedisClient(&cache.CacheConfig{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, cfg.Redis.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, using in-memory cache only", "addr", cfg.GetRedisAddr(), "error", err)
		client.Close()
		return nil
	}

	logger.Info("redis connected", "addr", cfg.GetRedisAddr())
	return client
}

// workerQueues is WORKER_QUEUES with the audit queue added when missing.
func workerQueues(cfg *config.Config) []string {
	queues := make([]string, 0, len(cfg.Worker.Queues)+1)
	seen := make(map[string]bool)
	candidates := append(append([]string(nil), cfg.Worker.Queues...), cfg.Audit.Queue)
	for _, q := range candidates {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		queues = append(queues, q)
	}
	return queues
}

func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{cfg: cfg, logger: logger}

	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.GetDatabaseDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		LogLevel:        database.ParseLogLevel(cfg.Database.LogLevel),
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	app.pool = pool

	if err := pool.Migrate(); err != nil {
		app.close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	app.redis = connectRedis(ctx, cfg, logger)

	var l2 *cache.RedisCache
	if app.redis != nil {
		l2 = cache.NewRedisCache(app.redis, cache.DefaultCacheConfig().KeyPrefix)
	}
	app.cache = cache.NewMultiLevelCache(l2, 5*time.Minute)

	enricher, err := enrichment.New(enrichment.Config{
		PublicIPURL:      cfg.Enrichment.PublicIPURL,
		PublicIPFallback: cfg.Enrichment.PublicIPFallback,
		GeoURL:           cfg.Enrichment.GeoURL,
		WeatherURL:       cfg.Enrichment.WeatherURL,
		WeatherAPIKey:    cfg.Enrichment.WeatherAPIKey,
		Timeout:          cfg.Enrichment.Timeout,
		RequestsPerSec:   cfg.Enrichment.RequestsPerSec,
		GeoCacheTTL:      cfg.Enrichment.GeoCacheTTL,
		WeatherCacheTTL:  cfg.Enrichment.WeatherCacheTTL,
		BreakerFailures:  cfg.Enrichment.BreakerFailures,
		BreakerTimeout:   cfg.Enrichment.BreakerTimeout,
	}, app.cache, logger)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("enrichment: %w", err)
	}
	app.enricher = enricher

	users := repositories.NewUserRepository(pool.DB)
	tasks := repositories.NewTaskRepository(pool.DB, nil)
	calls := repositories.NewAPICallRepository(pool.DB, nil)

	store := services.NewCredentialStore(users, services.NewBcryptHasher(cfg.Auth.BCryptCost), logger)
	tokens, err := services.NewTokenService(services.TokenConfig{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.Issuer,
		TTL:    cfg.Auth.AccessTokenTTL,
	})
	if err != nil {
		app.close()
		return nil, fmt.Errorf("tokens: %w", err)
	}

	doc, err := apidoc.Render(apidoc.Build(apidoc.Info{
		Title:       apiTitle,
		Version:     apiVersion,
		Description: "Per-user task management with location and weather lookups.",
	}))
	if err != nil {
		app.close()
		return nil, err
	}

	health := monitoring.NewHealthChecker(5 * time.Second)
	health.Register("database", func(context.Context) error { return pool.Health() })
	if app.redis != nil {
		health.RegisterOptional("redis", app.cache.Health)
	}

	deps := server.Deps{
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		Auth:           handlers.NewAuthHandler(store, tokens, logger),
		Register:       handlers.NewRegisterHandler(store, logger),
		Users:          handlers.NewUserHandler(logger),
		Tasks:          handlers.NewTaskHandler(tasks, logger),
		Protected:      handlers.NewProtectedHandler(enricher, calls, logger),
		Tokens:         tokens,
		UserFinder:     store,
		APIDoc:         doc,
		Metrics:        monitoring.NewMetrics(),
		Health:         health,
		StatsSource: map[string]monitoring.StatsSource{
			"database":   pool.Stats,
			"cache":      app.cache.Stats,
			"enrichment": enricher.Stats,
		},
	}

	if cfg.Audit.Routes {
		if app.redis == nil {
			logger.Warn("route auditing needs redis; disabled")
		} else {
			deps.Audit = worker.NewJobQueue(app.redis, 1)
			deps.AuditQueue = cfg.Audit.Queue

			app.worker = worker.NewWorker(worker.WorkerConfig{
				RedisClient:  app.redis,
				Queues:       workerQueues(cfg),
				PollInterval: cfg.Worker.PollInterval,
				JobTimeout:   2 * cfg.Enrichment.Timeout,
				Logger:       logger,
			})
			app.worker.RegisterHandler(worker.JobTypeRouteAudit, worker.NewRouteAuditHandler(enricher, calls, logger))
		}
	}

	router, err := server.NewRouter(deps)
	if err != nil {
		app.close()
		return nil, err
	}
	app.router = router
	return app, nil
}

// run serves until ctx is canceled, then drains in-flight requests.
func (a *application) run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.cfg.GetServerAddr(),
		Handler:      a.router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	if a.worker != nil {
		a.worker.Start(a.cfg.Worker.Concurrency)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", "addr", srv.Addr, "environment", a.cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *application) close() {
	if a.worker != nil {
		a.worker.Stop()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("closing cache", "error", err)
		}
	}
	if a.pool != nil {
		if err := a.pool.Close(); err != nil {
			a.logger.Warn("closing database", "error", err)
		}
	}
}
