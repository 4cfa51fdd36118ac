package errors

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"casepulse/internal/shared/testutil"
)

func TestErrorMiddleware_Handler(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		target     string
		wantStatus int
		wantLevel  slog.Level
	}{
		{
			name: "successful request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("ok"))
			},
			target:     "/api/v1/report?hospital=A",
			wantStatus: http.StatusOK,
			wantLevel:  slog.LevelInfo,
		},
		{
			name: "client error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
			},
			target:     "/api/v1/charts/gender",
			wantStatus: http.StatusUnprocessableEntity,
			wantLevel:  slog.LevelWarn,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			target:     "/api/v1/report",
			wantStatus: http.StatusServiceUnavailable,
			wantLevel:  slog.LevelError,
		},
		{
			name: "panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic("chart exploded")
			},
			target:     "/api/v1/charts/trend",
			wantStatus: http.StatusInternalServerError,
			wantLevel:  slog.LevelError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			mw := NewErrorMiddleware(NewErrorHandler(logger, false), logger)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)

			assert.NotPanics(t, func() {
				mw.Handler(tt.handler).ServeHTTP(w, r)
			})

			assert.Equal(t, tt.wantStatus, w.Code)
			testutil.AssertLogContains(t, logs, tt.wantLevel, "http request")
			testutil.AssertLogAttr(t, logs, "component", "error_middleware")
		})
	}
}

func TestErrorMiddleware_LogsQuery(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	mw := NewErrorMiddleware(NewErrorHandler(logger, false), logger)

	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/report?hospital=A&hospital=B", nil))

	testutil.AssertLogAttr(t, logs, "query", "hospital=A&hospital=B")
	testutil.AssertLogAttr(t, logs, "path", "/api/v1/report")
}

func TestRecoveryMiddleware(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	mw := RecoveryMiddleware(NewErrorHandler(logger, false))

	w := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	testutil.AssertLogContains(t, logs, slog.LevelError, "panic recovered")

	w = httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecoveryMiddleware_RepanicsAbortHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	mw := RecoveryMiddleware(NewErrorHandler(logger, false))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(http.ErrAbortHandler)
		})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
