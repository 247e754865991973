package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"task-weather-api/internal/config"
	"task-weather-api/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUpstreams serves the geolocation and weather APIs.
type fakeUpstreams struct {
	srv         *httptest.Server
	weatherDown atomic.Bool
}

func newFakeUpstreams(t *testing.T) *fakeUpstreams {
	t.Helper()
	f := &fakeUpstreams{}

	mux := http.NewServeMux()
	mux.HandleFunc("/ip", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "203.0.113.7")
	})
	mux.HandleFunc("/geo/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"city":"Lisbon","country_name":"Portugal"}`)
	})
	mux.HandleFunc("/weather", func(w http.ResponseWriter, r *http.Request) {
		if f.weatherDown.Load() {
			http.Error(w, `{"cod":500}`, http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"weather":[{"main":"Clear"}],"main":{"temp":23.5}}`)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func setTestEnv(t *testing.T, upstreams *fakeUpstreams) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv("DB_LOG_LEVEL", "silent")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("JWT_SECRET", "integration-secret")
	t.Setenv("PUBLIC_IP_URL", upstreams.srv.URL+"/ip")
	t.Setenv("GEO_API_URL", upstreams.srv.URL+"/geo")
	t.Setenv("WEATHER_API_URL", upstreams.srv.URL+"/weather")
	t.Setenv("WEATHER_API_KEY", "test-key")
	t.Setenv("ENRICHMENT_RPS", "0")
	t.Setenv("WEATHER_CACHE_TTL", "0s")
	t.Setenv("LOG_LEVEL", "error")
}

func newTestApplication(t *testing.T) *application {
	t.Helper()
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	app, err := newApplication(context.Background(), cfg, newLogger(cfg.Log, &bytes.Buffer{}))
	require.NoError(t, err)
	t.Cleanup(app.close)
	return app
}

type client struct {
	t      *testing.T
	router http.Handler
	token  string
}

func (c *client) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func (c *client) signUp(username, password string) {
	c.t.Helper()
	w := c.do(http.MethodPost, "/users", fmt.Sprintf(`{"username":%q,"password":%q}`, username, password))
	require.Equal(c.t, http.StatusOK, w.Code, w.Body.String())

	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())

	var token struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &token))
	require.Equal(c.t, "bearer", token.TokenType)
	c.token = token.AccessToken
}

func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func countAPICalls(app *application) int64 {
	var count int64
	if err := app.pool.DB.Model(&models.APICall{}).Count(&count).Error; err != nil {
		return -1
	}
	return count
}

func TestApplicationStartup(t *testing.T) {
	setTestEnv(t, newFakeUpstreams(t))
	app := newTestApplication(t)

	assert.Nil(t, app.redis, "redis disabled")
	assert.Nil(t, app.worker, "auditing needs redis")

	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAliceAndBob(t *testing.T) {
	setTestEnv(t, newFakeUpstreams(t))
	app := newTestApplication(t)

	alice := &client{t: t, router: app.router}
	alice.signUp("alice", "pw1")
	bob := &client{t: t, router: app.router}
	bob.signUp("bob", "pw2")

	w := alice.do(http.MethodGet, "/users/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", decodeMap(t, w)["username"])

	w = alice.do(http.MethodPost, "/tasks", `{"task_name":"t1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	task := decodeMap(t, w)
	assert.Equal(t, "pending", task["status"])
	taskPath := fmt.Sprintf("/tasks/%d", int(task["id"].(float64)))

	w = bob.do(http.MethodGet, "/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, bob.do(http.MethodGet, taskPath, "").Code)
	assert.Equal(t, http.StatusNotFound, bob.do(http.MethodPut, taskPath, `{"status":"done"}`).Code)
	assert.Equal(t, http.StatusNotFound, bob.do(http.MethodDelete, taskPath, "").Code)

	w = alice.do(http.MethodPut, taskPath, `{"status":"done"}`)
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeMap(t, w)
	assert.Equal(t, "done", updated["status"])
	assert.Equal(t, "t1", updated["task_name"])
	assert.NotNil(t, updated["updated_at"])

	assert.Equal(t, http.StatusOK, alice.do(http.MethodDelete, taskPath, "").Code)
	assert.Equal(t, http.StatusNotFound, alice.do(http.MethodDelete, taskPath, "").Code)

	anonymous := &client{t: t, router: app.router}
	w = anonymous.do(http.MethodGet, "/tasks", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestProtectedRoute(t *testing.T) {
	upstreams := newFakeUpstreams(t)
	setTestEnv(t, upstreams)
	app := newTestApplication(t)

	alice := &client{t: t, router: app.router}
	alice.signUp("alice", "pw1")

	w := alice.do(http.MethodGet, "/protected-route", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{
		"message": "This is a protected route",
		"ip_address": "192.0.2.1",
		"country": "Portugal",
		"weather": {"weather_state": "Clear", "temperature": 23.5}
	}`, w.Body.String())
	assert.Equal(t, int64(1), countAPICalls(app))

	w = alice.do(http.MethodGet, "/protected-route/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), countAPICalls(app))

	upstreams.weatherDown.Store(true)
	w = alice.do(http.MethodGet, "/protected-route", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "ip_address")
	assert.Equal(t, int64(2), countAPICalls(app), "failed lookups are not recorded")
}

func TestOperationalEndpoints(t *testing.T) {
	setTestEnv(t, newFakeUpstreams(t))
	app := newTestApplication(t)
	anonymous := &client{t: t, router: app.router}

	w := anonymous.do(http.MethodGet, "/openapi.json", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "3.0.3", decodeMap(t, w)["openapi"])

	w = anonymous.do(http.MethodGet, "/openapi.yaml", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")

	w = anonymous.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	metrics := decodeMap(t, w)
	for _, section := range []string{"application", "system", "database", "cache", "enrichment"} {
		assert.Contains(t, metrics, section)
	}

	w = anonymous.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouteAuditThroughRedis(t *testing.T) {
	upstreams := newFakeUpstreams(t)
	setTestEnv(t, upstreams)

	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_HOST", host)
	t.Setenv("REDIS_PORT", port)
	t.Setenv("AUDIT_ROUTES", "true")
	t.Setenv("WORKER_POLL_INTERVAL", "100ms")

	app := newTestApplication(t)
	require.NotNil(t, app.redis)
	require.NotNil(t, app.worker)
	app.worker.Start(1)

	alice := &client{t: t, router: app.router}
	alice.signUp("alice", "pw1")

	w := alice.do(http.MethodPost, "/tasks", `{"task_name":"audited"}`)
	require.Equal(t, http.StatusOK, w.Code)

	// Registration and task creation are both audited.
	require.Eventually(t, func() bool {
		return countAPICalls(app) == 2
	}, 3*time.Second, 20*time.Millisecond)

	var routes []string
	require.NoError(t, app.pool.DB.Model(&models.APICall{}).Order("id").Pluck("route", &routes).Error)
	assert.Equal(t, []string{"POST /users", "POST /tasks"}, routes)
}

func TestConfigurationValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{
			name: "development defaults",
			env:  map[string]string{"ENVIRONMENT": "development"},
		},
		{
			name:    "production without JWT secret",
			env:     map[string]string{"ENVIRONMENT": "production", "DB_PASSWORD": "pw"},
			wantErr: true,
		},
		{
			name:    "unsupported driver",
			env:     map[string]string{"DB_DRIVER": "mysql"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := config.LoadConfig()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, cfg)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "value", entry["key"])

	buf.Reset()
	newLogger(config.LogConfig{Level: "bogus", Format: "text"}, &buf).Info("fallback level")
	assert.Contains(t, buf.String(), "fallback level")
}

func TestWorkerQueues(t *testing.T) {
	tests := []struct {
		name   string
		queues []string
		audit  string
		want   []string
	}{
		{name: "defaults", queues: []string{"audit"}, audit: "audit", want: []string{"audit"}},
		{name: "audit appended", queues: []string{"emails", " reports "}, audit: "audit", want: []string{"emails", "reports", "audit"}},
		{name: "duplicates and blanks dropped", queues: []string{"audit", "", "audit"}, audit: "audit", want: []string{"audit"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Worker: config.WorkerConfig{Queues: tt.queues},
				Audit:  config.AuditConfig{Queue: tt.audit},
			}
			assert.Equal(t, tt.want, workerQueues(cfg))
		})
	}
}
