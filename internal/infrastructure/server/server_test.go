package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/codefixlab/internal/infrastructure/config"
	"github.com/GriffinCanCode/codefixlab/internal/infrastructure/logging"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Assistant.Delay = 0
	cfg.Contact.Delay = 0
	cfg.Logging.Development = true
	cfg.Server.Port = "0"
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv, err := NewServer(cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Close(ctx)
	})
	return srv
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t, testConfig())

	for _, path := range []string{
		"/",
		"/health",
		"/metrics/json",
		"/frames",
		"/frames/defaults",
		"/assistant/links",
		"/catalog/errors",
		"/catalog/projects/login-page",
		"/downloads/projects.tar.gz",
		"/contact/inbox",
	} {
		t.Run(path, func(t *testing.T) {
			w := get(t, srv, path)
			assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, testConfig())
	get(t, srv, "/health")

	w := get(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestRequestIDAndCORS(t *testing.T) {
	cfg := testConfig()
	cfg.CORS.Origins = []string{"http://localhost:3000"}
	srv := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRunThroughServer(t *testing.T) {
	srv := newTestServer(t, testConfig())

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/frames", nil))
	require.Equal(t, http.StatusCreated, w.Code)
	id := strings.Split(strings.Split(w.Body.String(), `"id":"`)[1], `"`)[0]

	body := strings.NewReader(`{"markup":"<p>hi</p>","style":"p{color:red}","script":"throw new Error('boom')"}`)
	req := httptest.NewRequest(http.MethodPost, "/frames/"+id+"/run", body)
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"failed"`)
	assert.Contains(t, w.Body.String(), "boom")
}

func TestCatalogOverlay(t *testing.T) {
	dir := t.TempDir()
	overlay := `errors:
  - id: extra-error
    title: Extra Error
    icon: fa-bug
    problem: Something extra
    solution: Fix it
    language: html
    code: "<p>extra</p>"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.yaml"), []byte(overlay), 0o644))

	cfg := testConfig()
	cfg.Catalog.Dir = dir
	srv := newTestServer(t, cfg)

	w := get(t, srv, "/catalog/errors/extra-error")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestBadCatalogOverlay(t *testing.T) {
	cfg := testConfig()
	cfg.Catalog.Dir = filepath.Join(t.TempDir(), "missing")

	_, err := NewServer(cfg, logging.NewNop())
	assert.Error(t, err)
}

func TestTraceHeaders(t *testing.T) {
	srv := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Trace-ID", "upstream-trace")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, "upstream-trace", w.Header().Get("X-Trace-ID"))
	assert.Len(t, w.Header().Get("X-Span-ID"), 16)

	cfg := testConfig()
	cfg.Tracing.Enabled = false
	plain := newTestServer(t, cfg)
	assert.Empty(t, get(t, plain, "/health").Header().Get("X-Trace-ID"))
}

func TestLogLevelEndpoint(t *testing.T) {
	logger, err := logging.New(logging.Config{Level: "info", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	srv, err := NewServer(testConfig(), logger)
	require.NoError(t, err)
	defer srv.Close(context.Background())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/log/level", strings.NewReader(`{"level":"debug"}`))
	srv.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.JSONEq(t, `{"level":"debug"}`, get(t, srv, "/log/level").Body.String())
}

func TestRunBudgetIsServiceWide(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.RequestsPerSecond = 1000
	cfg.RateLimit.Burst = 1000
	cfg.RateLimit.RunsPerSecond = 1
	cfg.RateLimit.RunBurst = 1
	srv := newTestServer(t, cfg)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/frames", nil))
	require.Equal(t, http.StatusCreated, w.Code)
	id := strings.Split(strings.Split(w.Body.String(), `"id":"`)[1], `"`)[0]

	codes := make([]int, 0, 2)
	for _, client := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		req := httptest.NewRequest(http.MethodPost, "/frames/"+id+"/run", strings.NewReader(`{"markup":"<p>x</p>"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = client
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)

	// Non-executing routes are unaffected
	assert.Equal(t, http.StatusOK, get(t, srv, "/frames/"+id).Code)
}

func TestLiveChannelDrawsOnRunBudget(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.RequestsPerSecond = 1000
	cfg.RateLimit.Burst = 1000
	cfg.RateLimit.RunsPerSecond = 1
	cfg.RateLimit.RunBurst = 1
	srv := newTestServer(t, cfg)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/frames", nil))
	require.Equal(t, http.StatusCreated, w.Code)
	id := strings.Split(strings.Split(w.Body.String(), `"id":"`)[1], `"`)[0]

	req := httptest.NewRequest(http.MethodPost, "/frames/"+id+"/run", strings.NewReader(`{"markup":"<p>x</p>"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	live := httptest.NewServer(srv.Router())
	defer live.Close()
	url := "ws" + strings.TrimPrefix(live.URL, "http") + "/frames/" + id + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage() // welcome
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"run","markup":"<p>y</p>"}`)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"error"`)
	assert.Contains(t, string(data), "rate limit exceeded")
}
