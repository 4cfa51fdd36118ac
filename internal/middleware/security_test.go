package middleware

import (
	"crypto/tls"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"casepulse/internal/shared/testutil"
)

func TestSecureHeaders(t *testing.T) {
	tests := []struct {
		name     string
		tls      bool
		upgrade  bool
		wantHSTS string
		wantCSP  bool
	}{
		{name: "plain http", wantCSP: true},
		{name: "tls adds hsts", tls: true, wantHSTS: "max-age=63072000; includeSubDomains", wantCSP: true},
		{name: "websocket upgrade skipped", upgrade: true},
	}

	handler := DefaultSecureHeaders().Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.tls {
				req.TLS = &tls.ConnectionState{}
			}
			if tt.upgrade {
				req.Header.Set("Upgrade", "websocket")
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantHSTS, w.Header().Get("Strict-Transport-Security"))
			if tt.wantCSP {
				csp := w.Header().Get("Content-Security-Policy")
				assert.Contains(t, csp, "connect-src 'self' ws: wss:")
				assert.Contains(t, csp, "img-src 'self' data:")
				assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
				assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
				assert.Contains(t, w.Header().Get("Permissions-Policy"), "camera=()")
			} else {
				assert.Empty(t, w.Header().Get("Content-Security-Policy"))
			}
		})
	}
}

func TestSecureHeaders_CustomPolicy(t *testing.T) {
	sh := &SecureHeaders{ContentSecurityPolicy: "default-src 'none'"}
	w := httptest.NewRecorder()
	sh.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "default-src 'none'", w.Header().Get("Content-Security-Policy"))
	assert.Empty(t, w.Header().Get("X-Frame-Options"))
}

func TestAuditLog(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := AuditLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/dataset/reload", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
	testutil.AssertLogContains(t, logs, slog.LevelInfo, "audit log")
	testutil.AssertLogContains(t, logs, slog.LevelInfo, "audit log complete")
	testutil.AssertLogAttr(t, logs, "component", "audit")
	testutil.AssertLogAttr(t, logs, "status", int64(http.StatusAccepted))
}
