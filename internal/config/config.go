package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const defaultJWTSecret = "your-secret-key"

type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Redis      RedisConfig      `json:"redis"`
	Worker     WorkerConfig     `json:"worker"`
	Auth       AuthConfig       `json:"auth"`
	Enrichment EnrichmentConfig `json:"enrichment"`
	Audit      AuditConfig      `json:"audit"`
	Log        LogConfig        `json:"log"`
}

type ServerConfig struct {
	Host            string        `json:"host" env:"HOST" envDefault:"localhost"`
	Port            string        `json:"port" env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `json:"read_timeout" env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `json:"write_timeout" env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `json:"idle_timeout" env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	Environment     string        `json:"environment" env:"ENVIRONMENT" envDefault:"development"`
	AllowedOrigins  []string      `json:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	// TrustedProxies lists the proxies whose X-Forwarded-For is believed. Empty
	// means the peer address is always the client address.
	TrustedProxies  []string      `json:"trusted_proxies" env:"TRUSTED_PROXIES" envSeparator:","`
}

type DatabaseConfig struct {
	Driver          string        `json:"driver" env:"DB_DRIVER" envDefault:"postgres"`
	Path            string        `json:"path" env:"DB_PATH" envDefault:"tasks.db"`
	Host            string        `json:"host" env:"DB_HOST" envDefault:"localhost"`
	Port            string        `json:"port" env:"DB_PORT" envDefault:"5432"`
	User            string        `json:"user" env:"DB_USER" envDefault:"postgres"`
	Password        string        `json:"password" env:"DB_PASSWORD"`
	Name            string        `json:"name" env:"DB_NAME" envDefault:"task_manager"`
	SSLMode         string        `json:"ssl_mode" env:"DB_SSL_MODE" envDefault:"disable"`
	MaxOpenConns    int           `json:"max_open_conns" env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `json:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" env:"DB_CONN_MAX_IDLE_TIME" envDefault:"30m"`
	LogLevel        string        `json:"log_level" env:"DB_LOG_LEVEL" envDefault:"warn"`
}

type RedisConfig struct {
	Enabled      bool          `json:"enabled" env:"REDIS_ENABLED" envDefault:"true"`
	Host         string        `json:"host" env:"REDIS_HOST" envDefault:"localhost"`
	Port         string        `json:"port" env:"REDIS_PORT" envDefault:"6379"`
	Password     string        `json:"password" env:"REDIS_PASSWORD"`
	DB           int           `json:"db" env:"REDIS_DB" envDefault:"0"`
	PoolSize     int           `json:"pool_size" env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `json:"min_idle_conns" env:"REDIS_MIN_IDLE_CONNS" envDefault:"5"`
	MaxRetries   int           `json:"max_retries" env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `json:"dial_timeout" env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `json:"write_timeout" env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

type WorkerConfig struct {
	Concurrency  int           `json:"concurrency" env:"WORKER_CONCURRENCY" envDefault:"4"`
	PollInterval time.Duration `json:"poll_interval" env:"WORKER_POLL_INTERVAL" envDefault:"5s"`
	Queues       []string      `json:"queues" env:"WORKER_QUEUES" envDefault:"audit" envSeparator:","`
}

type AuthConfig struct {
	JWTSecret      string        `json:"jwt_secret" env:"JWT_SECRET" envDefault:"your-secret-key"`
	Issuer         string        `json:"issuer" env:"JWT_ISSUER" envDefault:"task-weather-api"`
	AccessTokenTTL time.Duration `json:"access_token_ttl" env:"ACCESS_TOKEN_TTL" envDefault:"30m"`
	BCryptCost     int           `json:"bcrypt_cost" env:"BCRYPT_COST" envDefault:"10"`
}

// EnrichmentConfig carries the upstream endpoints and credentials for the
// geolocation and weather lookups.
type EnrichmentConfig struct {
	PublicIPURL      string        `json:"public_ip_url" env:"PUBLIC_IP_URL" envDefault:"https://api.ipify.org"`
	PublicIPFallback bool          `json:"public_ip_fallback" env:"PUBLIC_IP_FALLBACK" envDefault:"true"`
	GeoURL           string        `json:"geo_url" env:"GEO_API_URL" envDefault:"https://ipapi.co"`
	WeatherURL       string        `json:"weather_url" env:"WEATHER_API_URL" envDefault:"http://api.openweathermap.org/data/2.5/weather"`
	WeatherAPIKey    string        `json:"-" env:"WEATHER_API_KEY"`
	Timeout          time.Duration `json:"timeout" env:"ENRICHMENT_TIMEOUT" envDefault:"5s"`
	RequestsPerSec   float64       `json:"requests_per_second" env:"ENRICHMENT_RPS" envDefault:"5"`
	GeoCacheTTL      time.Duration `json:"geo_cache_ttl" env:"GEO_CACHE_TTL" envDefault:"24h"`
	WeatherCacheTTL  time.Duration `json:"weather_cache_ttl" env:"WEATHER_CACHE_TTL" envDefault:"10m"`
	BreakerFailures  int           `json:"breaker_failures" env:"ENRICHMENT_BREAKER_FAILURES" envDefault:"5"`
	BreakerTimeout   time.Duration `json:"breaker_timeout" env:"ENRICHMENT_BREAKER_TIMEOUT" envDefault:"30s"`
}

type AuditConfig struct {
	Routes bool   `json:"routes" env:"AUDIT_ROUTES" envDefault:"false"`
	Queue  string `json:"queue" env:"AUDIT_QUEUE" envDefault:"audit"`
}

type LogConfig struct {
	Level  string `json:"level" env:"LOG_LEVEL" envDefault:"info"`
	Format string `json:"format" env:"LOG_FORMAT" envDefault:"text"`
}

func LoadConfig() (*Config, error) {
	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if config.Database.Driver != "postgres" && config.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.Auth.AccessTokenTTL <= 0 {
		return nil, fmt.Errorf("access token TTL must be positive")
	}

	if config.Database.Driver == "postgres" && config.Database.Password == "" && config.IsProduction() {
		return nil, fmt.Errorf("database password is required in production")
	}

	if config.Auth.JWTSecret == defaultJWTSecret && config.IsProduction() {
		return nil, fmt.Errorf("JWT secret must be set in production")
	}

	return config, nil
}

func (c *Config) GetDatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.Path
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
