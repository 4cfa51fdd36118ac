package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casepulse/internal/shared/testutil"
)

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantLevel  slog.Level
	}{
		{
			name:       "context deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
			wantLevel:  slog.LevelError,
		},
		{
			name:       "client went away",
			err:        context.Canceled,
			wantStatus: StatusClientClosedRequest,
			wantType:   TypeClientGone,
			wantLevel:  slog.LevelDebug,
		},
		{
			name:       "wrapped empty selection",
			err:        fmt.Errorf("gender chart: %w", ErrEmptySelection),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeEmptySelection,
			wantLevel:  slog.LevelWarn,
		},
		{
			name:       "dataset unavailable",
			err:        fmt.Errorf("%w: open data/cases.csv: no such file", ErrDatasetUnavailable),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   TypeDatasetUnavailable,
			wantLevel:  slog.LevelError,
		},
		{
			name:       "api error",
			err:        ErrInvalidRequest,
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantLevel:  slog.LevelWarn,
		},
		{
			name:       "generic error",
			err:        errors.New("something went wrong"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantLevel:  slog.LevelError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)

			handler.HandleError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeProblem(t, w)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "/api/v1/report", body["instance"])
			assert.Contains(t, body, "trace_id")
			assert.NotContains(t, body, "stack")

			testutil.AssertLogContains(t, logs, tt.wantLevel, "request failed")
		})
	}
}

func TestErrorHandler_HandleError_Nil(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Equal(t, 0, w.Body.Len())
	assert.Equal(t, 0, logs.Count())
}

func TestErrorHandler_HandleError_StackOnServerErrors(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("boom"))
	assert.Contains(t, decodeProblem(t, w), "stack")

	w = httptest.NewRecorder()
	handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), ErrEmptySelection)
	assert.NotContains(t, decodeProblem(t, w), "stack")
}

func TestErrorHandler_ErrorToProblem(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantExt    map[string]interface{}
	}{
		{"canceled", context.Canceled, StatusClientClosedRequest, TypeClientGone, nil},
		{"wrapped canceled", fmt.Errorf("build report: %w", context.Canceled), StatusClientClosedRequest, TypeClientGone, nil},
		{"too many hospitals", fmt.Errorf("%w: 51 > 50", ErrTooManyHospitals), http.StatusBadRequest, TypeTooManyHospitals, nil},
		{"unknown chart", fmt.Errorf("%w: pie", ErrUnknownChart), http.StatusNotFound, TypeUnknownChart, nil},
		{"unsupported format", fmt.Errorf("%w: gif", ErrUnsupportedFormat), http.StatusBadRequest, TypeUnsupportedFormat, nil},
		{
			"dataset unavailable",
			ErrDatasetUnavailable,
			http.StatusServiceUnavailable, TypeDatasetUnavailable,
			map[string]interface{}{"retry_after": 30},
		},
		{
			"dataset app error",
			NewDatasetError("failed to load dataset", errors.New("permission denied")),
			http.StatusServiceUnavailable, TypeDatasetUnavailable,
			map[string]interface{}{"error_type": "DATASET"},
		},
		{
			"parsing app error with context",
			NewParsingError("required column not found", nil).WithContext("column", "Month"),
			http.StatusUnprocessableEntity, TypeDatasetInvalid,
			map[string]interface{}{"error_type": "PARSING", "context": map[string]interface{}{"column": "Month"}},
		},
		{"render app error", NewRenderError("failed to render chart", nil), http.StatusInternalServerError, TypeRenderFailed, nil},
		{"validation app error", NewAppError(ErrTypeValidation, "bad", nil), http.StatusBadRequest, TypeValidation, nil},
		{"not found app error", NewAppError(ErrTypeNotFound, "hospital not found", nil), http.StatusNotFound, TypeNotFound, nil},
		{"config app error", NewConfigError("bad", nil), http.StatusInternalServerError, TypeInternal, nil},
		{
			"api error with details",
			ErrValidation("format", "unsupported"),
			http.StatusBadRequest, TypeValidation,
			map[string]interface{}{"error_code": "VALIDATION_FAILED"},
		},
		{"api rate limit", ErrRateLimitExceeded, http.StatusTooManyRequests, TypeRateLimit, nil},
		{"api unavailable", ErrServiceUnavailable, http.StatusServiceUnavailable, TypeServiceDown, nil},
	}

	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)
	r := httptest.NewRequest(http.MethodGet, "/api/v1/charts/trend", nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := handler.ErrorToProblem(tt.err, r)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/v1/charts/trend", problem.Instance)
			for k, v := range tt.wantExt {
				assert.Equal(t, v, problem.Extensions[k], "extension %s", k)
			}
		})
	}
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	for _, includeStack := range []bool{false, true} {
		t.Run(fmt.Sprintf("includeStack=%v", includeStack), func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, includeStack)

			w := httptest.NewRecorder()
			handler.HandlePanic(w, httptest.NewRequest(http.MethodGet, "/", nil), "nil map write")

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			body := decodeProblem(t, w)
			assert.Equal(t, TypeInternal, body["type"])
			if includeStack {
				assert.Equal(t, "nil map write", body["panic"])
			} else {
				assert.NotContains(t, body, "panic")
			}
			testutil.AssertLogContains(t, logs, slog.LevelError, "panic recovered")
		})
	}
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	handler.NotFound(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, TypeNotFound, decodeProblem(t, w)["type"])

	w = httptest.NewRecorder()
	handler.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/v1/report", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	body := decodeProblem(t, w)
	assert.Equal(t, TypeMethod, body["type"])
	assert.Equal(t, "Method DELETE is not allowed for this endpoint", body["detail"])
}

func TestErrorHandler_ClientGoneStaysQuiet(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/api/v1/report", nil), context.Canceled)

	assert.Equal(t, StatusClientClosedRequest, w.Code)
	assert.NotContains(t, decodeProblem(t, w), "stack")
	assert.Empty(t, logs.Entries(slog.LevelWarn, slog.LevelError))
	assert.Equal(t, slog.LevelDebug, levelForStatus(StatusClientClosedRequest))
}
