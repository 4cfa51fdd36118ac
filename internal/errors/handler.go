package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Problem type URIs shared by every endpoint.
const (
	TypeValidation  = "/errors/validation"
	TypeNotFound    = "/errors/not-found"
	TypeRateLimit   = "/errors/rate-limit"
	TypeInternal    = "/errors/internal"
	TypeServiceDown = "/errors/service-unavailable"
	TypeTimeout     = "/errors/timeout"
	TypeMethod      = "/errors/method-not-allowed"
	TypeClientGone  = "/errors/client-closed-request"
)

// StatusClientClosedRequest is the nginx convention for a request whose
// client went away before the response was written.
const StatusClientClosedRequest = 499

// Problem type URIs of the report pipeline.
const (
	TypeDatasetUnavailable = "/errors/dataset/unavailable"
	TypeDatasetInvalid     = "/errors/dataset/invalid"
	TypeEmptySelection     = "/errors/report/empty-selection"
	TypeTooManyHospitals   = "/errors/report/too-many-hospitals"
	TypeUnknownChart       = "/errors/report/unknown-chart"
	TypeUnsupportedFormat  = "/errors/report/unsupported-format"
	TypeRenderFailed       = "/errors/report/render-failed"
	TypeWebSocketUpgrade   = "/errors/websocket/upgrade-failed"
)

// sentinelProblem maps a sentinel error to its response. An empty detail
// means the wrapped error text is shown.
type sentinelProblem struct {
	target  error
	status  int
	typ     string
	title   string
	detail  string
	retryIn int
}

// Checked in order; the first errors.Is match wins.
var sentinelProblems = []sentinelProblem{
	{target: context.DeadlineExceeded, status: http.StatusGatewayTimeout, typ: TypeTimeout, title: "Request Timeout",
		detail: "The request took too long to process and was cancelled"},
	{target: context.Canceled, status: StatusClientClosedRequest, typ: TypeClientGone, title: "Client Closed Request",
		detail: "The client closed the connection before the response was ready"},
	{target: ErrEmptySelection, status: http.StatusUnprocessableEntity, typ: TypeEmptySelection, title: "Empty Selection",
		detail: "Select at least one hospital to render this view"},
	{target: ErrTooManyHospitals, status: http.StatusBadRequest, typ: TypeTooManyHospitals, title: "Too Many Hospitals"},
	{target: ErrUnknownChart, status: http.StatusNotFound, typ: TypeUnknownChart, title: "Unknown Chart"},
	{target: ErrUnsupportedFormat, status: http.StatusBadRequest, typ: TypeUnsupportedFormat, title: "Unsupported Format"},
	{target: ErrDatasetUnavailable, status: http.StatusServiceUnavailable, typ: TypeDatasetUnavailable, title: "Dataset Unavailable",
		retryIn: 30},
}

var apiErrorTypes = map[string]string{
	CodeValidationFailed: TypeValidation,
	CodeInvalidRequest:   TypeValidation,
	CodeRateLimited:      TypeRateLimit,
	CodeUnavailable:      TypeServiceDown,
	CodeUpgradeFailed:    TypeWebSocketUpgrade,
}

// ErrorHandler turns handler errors and panics into problem responses and
// logs them once.
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError writes err as a problem response. Nil is ignored.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	problem := h.ErrorToProblem(err, r)

	attrs := []slog.Attr{
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		attrs = append(attrs, slog.Any("app_error", appErr))
	}
	h.logger.LogAttrs(r.Context(), levelForStatus(problem.Status), "request failed", attrs...)

	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", getStackTrace())
	}
	h.write(w, r, problem)
}

// ErrorToProblem classifies err. Sentinels win over AppError and APIError
// wrappers; anything unrecognised is a 500 with a generic detail.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	path := r.URL.Path

	for _, sp := range sentinelProblems {
		if !errors.Is(err, sp.target) {
			continue
		}
		detail := sp.detail
		if detail == "" {
			detail = err.Error()
		}
		problem := NewProblemDetails(sp.status, sp.typ, sp.title, detail, path)
		if sp.retryIn > 0 {
			problem.WithExtension("retry_after", sp.retryIn)
		}
		return problem
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Problem(path)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErrorToProblem(apiErr, path)
	}

	return NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
		"An unexpected error occurred while processing your request", path)
}

func apiErrorToProblem(apiErr *APIError, path string) *ProblemDetails {
	problemType, ok := apiErrorTypes[apiErr.ErrorCode]
	if !ok {
		problemType = TypeInternal
	}
	problem := NewProblemDetails(apiErr.StatusCode, problemType, http.StatusText(apiErr.StatusCode), apiErr.Message, path).
		WithExtension("error_code", apiErr.ErrorCode)
	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

// HandlePanic answers a recovered panic with a 500. The panic value and
// stack are only exposed when includeStack is set.
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
		"An unexpected error occurred", r.URL.Path)
	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}
	h.write(w, r, problem)
}

// NotFound is the router's 404 handler.
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found",
		"The requested resource was not found", r.URL.Path))
}

// MethodNotAllowed is the router's 405 handler.
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, NewProblemDetails(http.StatusMethodNotAllowed, TypeMethod, "Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method), r.URL.Path))
}

// write stamps the request id and renders problem.
func (h *ErrorHandler) write(w http.ResponseWriter, r *http.Request, problem *ProblemDetails) {
	problem.WithExtension("trace_id", middleware.GetReqID(r.Context()))
	render.Render(w, r, problem)
}

// levelForStatus logs client errors as warnings and server errors as
// errors. Disconnected clients are only logged at debug.
func levelForStatus(status int) slog.Level {
	switch {
	case status == StatusClientClosedRequest:
		return slog.LevelDebug
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func getStackTrace() string {
	buf := make([]byte, 8<<10)
	return string(buf[:runtime.Stack(buf, false)])
}
