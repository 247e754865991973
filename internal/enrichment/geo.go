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

const unknown = "Unknown"

type Location struct {
	Country string `json:"country"`
	City    string `json:"city"`
}

type GeoLocator interface {
	Locate(ctx context.Context, ip string) (Location, error)
}

// IPAPILocator reads ipapi.co's /{ip}/json/ document.
type IPAPILocator struct {
	upstream *upstream
	baseURL  string
}

func (l *IPAPILocator) Locate(ctx context.Context, ip string) (Location, error) {
	endpoint := fmt.Sprintf("%s/%s/json/", strings.TrimRight(l.baseURL, "/"), url.PathEscape(ip))

	body, err := l.upstream.get(ctx, endpoint)
	if err != nil {
		return Location{}, err
	}
	if !gjson.ValidBytes(body) {
		return Location{}, fmt.Errorf("%s: invalid JSON response", l.upstream.name)
	}

	doc := gjson.ParseBytes(body)
	if doc.Get("error").Bool() {
		return Location{}, fmt.Errorf("%s: %s", l.upstream.name, doc.Get("reason").String())
	}

	return Location{
		Country: orUnknown(doc.Get("country_name").String()),
		City:    orUnknown(doc.Get("city").String()),
	}, nil
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknown
	}
	return s
}

// CachedGeoLocator remembers locations per address. Cache failures fall
// through to the wrapped locator.
type CachedGeoLocator struct {
	next   GeoLocator
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedGeoLocator(next GeoLocator, c cache.Cache, ttl time.Duration, logger *slog.Logger) *CachedGeoLocator {
	return &CachedGeoLocator{next: next, cache: c, ttl: ttl, logger: logger}
}

func (l *CachedGeoLocator) Locate(ctx context.Context, ip string) (Location, error) {
	key := "geo:" + ip

	var loc Location
	err := l.cache.Get(ctx, key, &loc)
	if err == nil {
		return loc, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l.logger.Warn("geo cache read failed", "error", err)
	}

	loc, err = l.next.Locate(ctx, ip)
	if err != nil {
		return Location{}, err
	}

	if err := l.cache.Set(ctx, key, loc, l.ttl); err != nil {
		l.logger.Warn("geo cache write failed", "error", err)
	}
	return loc, nil
}
