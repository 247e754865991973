package enrichment

import (
	"errors"
	"net/http"
	"time"
)

var ErrUnavailable = errors.New("enrichment unavailable")

// Config is everything the upstream clients need. Nothing is read from the
// environment at call time.
type Config struct {
	PublicIPURL      string
	PublicIPFallback bool
	GeoURL           string
	WeatherURL       string
	WeatherAPIKey    string

	Timeout         time.Duration
	RequestsPerSec  float64
	GeoCacheTTL     time.Duration
	WeatherCacheTTL time.Duration
	BreakerFailures int
	BreakerTimeout  time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

func (c Config) validate() error {
	if c.GeoURL == "" {
		return errors.New("geolocation URL is required")
	}
	if c.WeatherURL == "" {
		return errors.New("weather URL is required")
	}
	if c.PublicIPFallback && c.PublicIPURL == "" {
		return errors.New("public IP URL is required when fallback is enabled")
	}
	return nil
}
