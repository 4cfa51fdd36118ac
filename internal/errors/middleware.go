package errors

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrorMiddleware is the outermost API middleware: it turns panics into
// problem responses and writes one access log line per request.
type ErrorMiddleware struct {
	handler *ErrorHandler
	logger  *slog.Logger
}

func NewErrorMiddleware(handler *ErrorHandler, logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		handler: handler,
		logger:  logger.With(slog.String("component", "error_middleware")),
	}
}

func (m *ErrorMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			m.handler.recoverPanic(ww, r, recover())
			m.accessLog(r, ww, time.Since(start))
		}()
		next.ServeHTTP(ww, r)
	})
}

func (m *ErrorMiddleware) accessLog(r *http.Request, ww middleware.WrapResponseWriter, took time.Duration) {
	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}

	attrs := make([]slog.Attr, 0, 9)
	attrs = append(attrs,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Duration("duration", took),
		slog.Int("bytes", ww.BytesWritten()),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("user_agent", r.UserAgent()),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	// hospital selections travel in the query
	if r.URL.RawQuery != "" {
		attrs = append(attrs, slog.String("query", r.URL.RawQuery))
	}
	m.logger.LogAttrs(r.Context(), levelForStatus(status), "http request", attrs...)
}

// RecoveryMiddleware only recovers panics. It leaves the ResponseWriter
// unwrapped, which keeps it hijackable for websocket upgrades.
func RecoveryMiddleware(handler *ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() { handler.recoverPanic(w, r, recover()) }()
			next.ServeHTTP(w, r)
		})
	}
}

// recoverPanic handles a value returned by recover. http.ErrAbortHandler is
// re-raised so net/http can abort the connection quietly.
func (h *ErrorHandler) recoverPanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	if recovered == nil {
		return
	}
	if recovered == http.ErrAbortHandler {
		panic(recovered)
	}
	h.HandlePanic(w, r, recovered)
}
