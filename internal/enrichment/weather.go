package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"task-weather-api/internal/cache"

	"github.com/tidwall/gjson"
)

type Weather struct {
	State       string  `json:"weather_state"`
	Temperature float64 `json:"temperature"`
}

type WeatherProvider interface {
	Current(ctx context.Context, city string) (Weather, error)
}

// OpenWeatherProvider queries OpenWeatherMap's current weather endpoint in
// metric units.
type OpenWeatherProvider struct {
	upstream *upstream
	endpoint string
	apiKey   string
}

func (p *OpenWeatherProvider) Current(ctx context.Context, city string) (Weather, error) {
	query := url.Values{}
	query.Set("q", city)
	query.Set("appid", p.apiKey)
	query.Set("units", "metric")

	endpoint := p.endpoint
	if strings.Contains(endpoint, "?") {
		endpoint += "&" + query.Encode()
	} else {
		endpoint += "?" + query.Encode()
	}

	body, err := p.upstream.get(ctx, endpoint)
	if err != nil {
		return Weather{}, err
	}

	state := gjson.GetBytes(body, "weather.0.main")
	temp := gjson.GetBytes(body, "main.temp")
	if !state.Exists() || !temp.Exists() {
		return Weather{}, fmt.Errorf("%s: response is missing weather fields", p.upstream.name)
	}

	return Weather{State: state.String(), Temperature: temp.Float()}, nil
}

type CachedWeatherProvider struct {
	next   WeatherProvider
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedWeatherProvider(next WeatherProvider, c cache.Cache, ttl time.Duration, logger *slog.Logger) *CachedWeatherProvider {
	return &CachedWeatherProvider{next: next, cache: c, ttl: ttl, logger: logger}
}

func (p *CachedWeatherProvider) Current(ctx context.Context, city string) (Weather, error) {
	key := "weather:" + strings.ToLower(city)

	var w Weather
	err := p.cache.Get(ctx, key, &w)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		p.logger.Warn("weather cache read failed", "error", err)
	}

	w, err = p.next.Current(ctx, city)
	if err != nil {
		return Weather{}, err
	}

	if err := p.cache.Set(ctx, key, w, p.ttl); err != nil {
		p.logger.Warn("weather cache write failed", "error", err)
	}
	return w, nil
}
