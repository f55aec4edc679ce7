package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/application/write"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/config"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/domain/entity"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/infrastructure/generation"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/infrastructure/persistence/memory"
	"github.com/SumaiyaTarannumNoor/Lets-Write/internal/interfaces/http/handler"
	"github.com/SumaiyaTarannumNoor/Lets-Write/web"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(endpoint string) *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "lets-write", Version: "test", Env: "test"},
		Generation: config.GenerationConfig{
			Endpoint:      endpoint,
			Timeout:       2 * time.Second,
			DefaultLength: 300,
			MinLength:     50,
			MaxLength:     1000,
		},
		Session: config.SessionConfig{
			CookieName: "letswrite_session",
			Secret:     "test-secret",
			TTL:        30 * time.Minute,
		},
		UI: config.UIConfig{Title: "Let's Write", DefaultTheme: "dark"},
		Observability: config.ObservabilityConfig{
			Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
		},
	}
}

type testApp struct {
	server *httptest.Server
	client *http.Client
}

func newTestApp(t *testing.T, cfg *config.Config) *testApp {
	t.Helper()

	gen := generation.New(cfg.Generation.Endpoint, &http.Client{Timeout: cfg.Generation.Timeout})
	svc := write.NewService(gen, memory.NewSessionStore(cfg.Session.TTL), memory.NewInFlightGuard(), write.Options{
		Limits: entity.LengthLimits{
			Min:     cfg.Generation.MinLength,
			Max:     cfg.Generation.MaxLength,
			Default: cfg.Generation.DefaultLength,
		},
		DefaultTheme: entity.ThemeDark,
	})

	tmpl, err := web.Templates()
	require.NoError(t, err)

	r := NewWithDeps(cfg, RouterHandlers{
		Health: handler.NewHealthHandler(cfg.App.Version, nil, gen),
		Write:  handler.NewWriteHandler(svc),
		Page:   handler.NewPageHandler(svc, cfg.UI),
	}, memory.NewRateLimiter(time.Minute), tmpl)

	srv := httptest.NewServer(r.Engine())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testApp{server: srv, client: &http.Client{Jar: jar}}
}

func (a *testApp) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, a.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &payload))
	} else {
		payload = map[string]any{"raw": string(raw)}
	}
	return resp, payload
}

func errorCode(payload map[string]any) string {
	detail, _ := payload["error"].(map[string]any)
	code, _ := detail["error_code"].(string)
	return code
}

func newBackend(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestWriteSuccessFlow(t *testing.T) {
	var gotBody map[string]any
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text": "Once upon a time, there was..."}`)
	})
	app := newTestApp(t, testConfig(backend.URL))

	resp, payload := app.do(t, http.MethodPost, "/api/write", `{"prompt": "Once upon a time", "length": 300}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := payload["data"].(map[string]any)
	assert.Equal(t, "Once upon a time, there was...", data["text"])
	assert.Equal(t, map[string]any{"prompt": "Once upon a time", "length": float64(300)}, gotBody)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, payload = app.do(t, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sess := payload["data"].(map[string]any)
	assert.Equal(t, "Once upon a time", sess["prompt"])
	assert.Equal(t, "Once upon a time, there was...", sess["text"])
	assert.Equal(t, "idle", sess["status"])

	resp, payload = app.do(t, http.MethodGet, "/api/session/download", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="generated-text.txt"`, resp.Header.Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
	assert.Equal(t, "Once upon a time, there was...", payload["raw"])
}

func TestWriteBackendFailures(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantCode string
	}{
		{
			name: "status 500",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, `{"error": "model exploded"}`)
			},
			wantCode: "5007",
		},
		{
			name: "missing text",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"result": "x"}`)
			},
			wantCode: "4001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newBackend(t, tt.handler)
			app := newTestApp(t, testConfig(backend.URL))

			resp, payload := app.do(t, http.MethodPost, "/api/write", `{"prompt": "Once upon a time", "length": 300}`)
			assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
			assert.Equal(t, tt.wantCode, errorCode(payload))
			assert.Nil(t, payload["data"])

			_, payload = app.do(t, http.MethodGet, "/api/session", "")
			sess := payload["data"].(map[string]any)
			assert.Empty(t, sess["text"])
			assert.NotEmpty(t, sess["error"])
			assert.Equal(t, "idle", sess["status"])
		})
	}
}

func TestWriteUnreachableBackend(t *testing.T) {
	down := httptest.NewServer(http.NotFoundHandler())
	endpoint := down.URL + "/api/generate"
	down.Close()

	app := newTestApp(t, testConfig(endpoint))

	resp, payload := app.do(t, http.MethodPost, "/api/write", `{"prompt": "Once upon a time", "length": 300}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "5006", errorCode(payload))
	detail := payload["error"].(map[string]any)["details"].(string)
	assert.Contains(t, detail, endpoint)
}

func TestWriteRejectsBadInput(t *testing.T) {
	var calls atomic.Int32
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"text": "x"}`)
	})
	app := newTestApp(t, testConfig(backend.URL))

	for _, body := range []string{
		`{"prompt": "   ", "length": 300}`,
		`{"prompt": "hi", "length": 10}`,
		`{"prompt": "hi", "length": 5000}`,
		`{"prompt": "hi", "length": "long"}`,
		`not json`,
	} {
		resp, payload := app.do(t, http.MethodPost, "/api/write", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.Equal(t, "1001", errorCode(payload), body)
	}
	assert.Equal(t, int32(0), calls.Load())
}

func TestWriteRejectsSecondSubmissionWhileInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		_, _ = io.WriteString(w, `{"text": "done"}`)
	})
	app := newTestApp(t, testConfig(backend.URL))

	// 先拿到会话 Cookie
	resp, _ := app.do(t, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	first := make(chan int, 1)
	go func() {
		req, _ := http.NewRequest(http.MethodPost, app.server.URL+"/api/write", strings.NewReader(`{"prompt": "p", "length": 300}`))
		req.Header.Set("Content-Type", "application/json")
		r, err := app.client.Do(req)
		if err != nil {
			first <- 0
			return
		}
		_ = r.Body.Close()
		first <- r.StatusCode
	}()
	<-entered

	resp, payload := app.do(t, http.MethodPost, "/api/write", `{"prompt": "again", "length": 300}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "4002", errorCode(payload))

	close(release)
	assert.Equal(t, http.StatusOK, <-first)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSettingsClearAndPage(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"text": "a tale"}`)
	})
	app := newTestApp(t, testConfig(backend.URL))

	resp, payload := app.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, payload["raw"], `data-theme="dark"`)

	resp, payload = app.do(t, http.MethodPut, "/api/session/settings", `{"theme": "light", "length": 600}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sess := payload["data"].(map[string]any)
	assert.Equal(t, "light", sess["theme"])
	assert.Equal(t, float64(600), sess["length"])

	resp, _ = app.do(t, http.MethodPut, "/api/session/settings", `{"theme": "neon"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, payload = app.do(t, http.MethodGet, "/", "")
	assert.Contains(t, payload["raw"], `data-theme="light"`)
	assert.Contains(t, payload["raw"], `value="600"`)

	resp, _ = app.do(t, http.MethodPost, "/api/write", `{"prompt": "p", "length": 0}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, payload = app.do(t, http.MethodDelete, "/api/session", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sess = payload["data"].(map[string]any)
	assert.Empty(t, sess["text"])
	assert.Empty(t, sess["prompt"])
	assert.Equal(t, "light", sess["theme"])

	resp, payload = app.do(t, http.MethodGet, "/api/session/download", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "1004", errorCode(payload))
}

func TestSessionsAreIsolatedPerCookie(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"text": "mine"}`)
	})
	cfg := testConfig(backend.URL)
	app := newTestApp(t, cfg)

	resp, _ := app.do(t, http.MethodPost, "/api/write", `{"prompt": "p", "length": 300}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// 无 Cookie 的客户端看到空会话
	other, err := http.Get(app.server.URL + "/api/session")
	require.NoError(t, err)
	defer other.Body.Close()

	var payload map[string]any
	require.NoError(t, json.NewDecoder(other.Body).Decode(&payload))
	assert.Empty(t, payload["data"].(map[string]any)["text"])
}

func TestRateLimit(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"text": "x"}`)
	})
	cfg := testConfig(backend.URL)
	cfg.Security.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 2}
	app := newTestApp(t, cfg)

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, _ := app.do(t, http.MethodGet, "/api/session", "")
		statuses = append(statuses, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}

func TestHealthEndpoints(t *testing.T) {
	down := httptest.NewServer(http.NotFoundHandler())
	endpoint := down.URL
	down.Close()

	app := newTestApp(t, testConfig(endpoint))

	resp, payload := app.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", payload["status"])

	// 后端不可达只降级，不影响就绪
	resp, payload = app.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	checks := payload["checks"].(map[string]any)
	assert.Equal(t, "degraded", checks["backend"].(map[string]any)["status"])
	assert.Equal(t, "disabled", checks["redis"].(map[string]any)["status"])

	resp, _ = app.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
