package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"task-weather-api/internal/cache"
)

// Report is the location and current weather for one caller address.
type Report struct {
	IPAddress    string
	Country      string
	City         string
	WeatherState string
	Temperature  float64
}

type Enricher interface {
	Enrich(ctx context.Context, clientIP string) (*Report, error)
}

type Service struct {
	resolver AddressResolver
	geo      GeoLocator
	weather  WeatherProvider
	breakers []*cache.CircuitBreaker
	logger   *slog.Logger
}

func NewService(resolver AddressResolver, geo GeoLocator, weather WeatherProvider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{resolver: resolver, geo: geo, weather: weather, logger: logger}
}

// New wires the ipify, ipapi.co and OpenWeatherMap clients. c may be nil,
// in which case every lookup goes upstream.
func New(config Config, c cache.Cache, logger *slog.Logger) (*Service, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if config.WeatherAPIKey == "" {
		logger.Warn("weather API key is not set; weather lookups will fail")
	}

	client := config.HTTPClient
	if client == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	limiter := newLimiter(config.RequestsPerSec)
	newUpstream := func(name string) *upstream {
		return &upstream{
			name:    name,
			client:  client,
			limiter: limiter,
			breaker: cache.NewCircuitBreaker(&cache.CircuitBreakerConfig{
				Name:             name,
				MaxFailures:      config.BreakerFailures,
				Timeout:          config.BreakerTimeout,
				HalfOpenMaxCalls: 1,
			}),
		}
	}

	ipUp := newUpstream("public-ip")
	geoUp := newUpstream("geolocation")
	weatherUp := newUpstream("weather")

	var geo GeoLocator = &IPAPILocator{upstream: geoUp, baseURL: config.GeoURL}
	var weather WeatherProvider = &OpenWeatherProvider{
		upstream: weatherUp,
		endpoint: config.WeatherURL,
		apiKey:   config.WeatherAPIKey,
	}
	// A zero TTL turns caching off for that lookup.
	if c != nil && config.GeoCacheTTL > 0 {
		geo = NewCachedGeoLocator(geo, c, config.GeoCacheTTL, logger)
	}
	if c != nil && config.WeatherCacheTTL > 0 {
		weather = NewCachedWeatherProvider(weather, c, config.WeatherCacheTTL, logger)
	}

	svc := NewService(&PublicAddressResolver{
		upstream: ipUp,
		url:      config.PublicIPURL,
		fallback: config.PublicIPFallback,
	}, geo, weather, logger)
	svc.breakers = []*cache.CircuitBreaker{ipUp.breaker, geoUp.breaker, weatherUp.breaker}
	return svc, nil
}

// Enrich resolves, locates and fetches weather in that order. Any failure
// yields ErrUnavailable and no partial report.
func (s *Service) Enrich(ctx context.Context, clientIP string) (*Report, error) {
	ip, err := s.resolver.Resolve(ctx, clientIP)
	if err != nil {
		return nil, s.unavailable("resolve address", err)
	}

	loc, err := s.geo.Locate(ctx, ip)
	if err != nil {
		return nil, s.unavailable("locate address", err)
	}

	weather, err := s.weather.Current(ctx, loc.City)
	if err != nil {
		return nil, s.unavailable("fetch weather", err)
	}

	return &Report{
		IPAddress:    ip,
		Country:      loc.Country,
		City:         loc.City,
		WeatherState: weather.State,
		Temperature:  weather.Temperature,
	}, nil
}

func (s *Service) unavailable(step string, err error) error {
	s.logger.Warn("enrichment failed", "step", step, "error", err)
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, step, err)
}

// Stats reports breaker state per upstream.
func (s *Service) Stats() map[string]interface{} {
	stats := make(map[string]interface{}, len(s.breakers))
	for _, b := range s.breakers {
		bs := b.GetStats()
		stats[fmt.Sprint(bs["name"])] = bs
	}
	return stats
}
