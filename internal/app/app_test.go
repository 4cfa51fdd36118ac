package app

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casepulse/internal/config"
	apierrors "casepulse/internal/errors"
	"casepulse/internal/shared/testutil"
	"casepulse/pkg/contracts/events"
)

func testConfig(t *testing.T, datasetPath string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Dataset.Path = datasetPath
	cfg.Dataset.Watch = false
	cfg.Security.RateLimit.Enabled = false
	// The Prometheus exporter registers on the global registry
	cfg.Telemetry.MetricsEnabled = false
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	app, err := New(cfg, logger)
	require.NoError(t, err)
	return app
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestNew(t *testing.T) {
	path := testutil.WriteCasesCSV(t, testutil.SampleCases...)

	tests := []struct {
		name        string
		watch       bool
		wantWatcher bool
	}{
		{name: "watching", watch: true, wantWatcher: true},
		{name: "not watching", watch: false, wantWatcher: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, path)
			cfg.Dataset.Watch = tt.watch
			app := newTestApp(t, cfg)

			assert.NotNil(t, app.Router)
			assert.NotNil(t, app.Server)
			assert.NotNil(t, app.ReportService)
			assert.NotNil(t, app.HealthService)
			assert.NotNil(t, app.WebSocketHub)
			assert.Equal(t, tt.wantWatcher, app.Watcher != nil)
			assert.Equal(t, "127.0.0.1:0", app.Server.Addr)
		})
	}
}

func TestRouter_ReportEndpoints(t *testing.T) {
	path := testutil.WriteCasesCSV(t, testutil.SampleCases...)
	app := newTestApp(t, testConfig(t, path))

	tests := []struct {
		name            string
		target          string
		wantStatus      int
		wantContentType string
	}{
		{"hospitals", "/api/hospitals", http.StatusOK, "application/json"},
		{"report", "/api/report?hospital=A", http.StatusOK, "application/json"},
		{"trend chart", "/api/report/charts/trend.png", http.StatusOK, "image/png"},
		{"gender chart", "/api/report/charts/gender.svg?hospital=B", http.StatusOK, "image/svg+xml"},
		{"empty gender chart", "/api/report/charts/gender.png?hospital=", http.StatusUnprocessableEntity, "application/json"},
		{"workbook", "/api/report/export.xlsx", http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"leaderboard", "/api/report/leaderboard.csv?hospital=A", http.StatusOK, "text/csv; charset=utf-8"},
		{"dashboard", "/", http.StatusOK, "text/html; charset=utf-8"},
		{"health", "/api/health", http.StatusOK, "application/json"},
		{"ready", "/api/health/ready", http.StatusOK, "application/json"},
		{"version", "/api/version", http.StatusOK, "application/json"},
		{"unknown route", "/nope", http.StatusNotFound, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, app.Router, tt.target)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Contains(t, w.Header().Get("Content-Type"), tt.wantContentType)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestRouter_ReportBody(t *testing.T) {
	path := testutil.WriteCasesCSV(t, testutil.SampleCases...)
	app := newTestApp(t, testConfig(t, path))

	w := get(t, app.Router, "/api/report")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string `json:"status"`
		Data   struct {
			Selection []string `json:"selection"`
			Sections  []struct {
				Hospital string `json:"hospital"`
				Metrics  struct {
					CaseCount         int      `json:"case_count"`
					AverageDifference *float64 `json:"average_difference"`
				} `json:"metrics"`
			} `json:"sections"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, "success", body.Status)
	assert.Equal(t, []string{"A", "B"}, body.Data.Selection)
	require.Len(t, body.Data.Sections, 2)
	assert.Equal(t, 2, body.Data.Sections[0].Metrics.CaseCount)
	require.NotNil(t, body.Data.Sections[0].Metrics.AverageDifference)
	assert.Equal(t, 75.0, *body.Data.Sections[0].Metrics.AverageDifference)
	assert.Nil(t, body.Data.Sections[1].Metrics.AverageDifference)
}

func TestRouter_Middleware(t *testing.T) {
	path := testutil.WriteCasesCSV(t, testutil.SampleCases...)
	app := newTestApp(t, testConfig(t, path))

	t.Run("security headers", func(t *testing.T) {
		w := get(t, app.Router, "/api/health")
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
	})

	t.Run("request id is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("X-Request-ID", "req-42")
		w := httptest.NewRecorder()
		app.Router.ServeHTTP(w, req)
		assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	})

	t.Run("problem carries trace id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/report/charts/gender.png?hospital=", nil)
		req.Header.Set("X-Request-ID", "req-43")
		w := httptest.NewRecorder()
		app.Router.ServeHTTP(w, req)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, apierrors.TypeEmptySelection, body["type"])
		assert.Equal(t, "req-43", body["trace_id"])
	})

	t.Run("method not allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/hospitals", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestRouter_DatasetUnavailable(t *testing.T) {
	app := newTestApp(t, testConfig(t, filepath.Join(t.TempDir(), "missing.csv")))

	w := get(t, app.Router, "/api/report")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = get(t, app.Router, "/api/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = get(t, app.Router, "/")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Dataset Unavailable")
}

func TestApplication_Serve(t *testing.T) {
	path := testutil.WriteCasesCSV(t, testutil.SampleCases...)
	cfg := testConfig(t, path)
	cfg.Dataset.Watch = true
	app := newTestApp(t, cfg)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, ln) }()

	resp, err := http.Get(base + "/api/health")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A dashboard connects and is told when the dataset is reloaded
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg events.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeConnect, msg.Type)

	resp, err = http.Post(base+"/api/dataset/reload", "application/json", nil)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeDatasetChanged, msg.Type)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
