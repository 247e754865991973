package enrichment

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"task-weather-api/internal/cache"

	"golang.org/x/time/rate"
)

const maxBodyBytes = 1 << 20

// upstream is one external HTTP service. Calls wait on the shared limiter and
// go through the service's own breaker.
type upstream struct {
	name    string
	client  *http.Client
	limiter *rate.Limiter
	breaker *cache.CircuitBreaker
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
}

func (u *upstream) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := u.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: wait for rate limiter: %w", u.name, err)
	}

	var body []byte
	err := u.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := u.client.Do(req)
		if err != nil {
			return fmt.Errorf("request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("returned %s", resp.Status)
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", u.name, err)
	}
	return body, nil
}
