package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"casepulse/internal/services"
)

// HealthChecker is the part of services.HealthService the probes need.
type HealthChecker interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}

// HealthHandler serves the probes under /api/health and /api/version.
type HealthHandler struct {
	checker HealthChecker
	logger  *slog.Logger
}

func NewHealthHandler(checker HealthChecker, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{checker: checker, logger: logger.With(slog.String("handler", "health"))}
}

// Routes answers GET and HEAD so load balancers can probe without a body.
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	for path, check := range map[string]func(context.Context) services.HealthStatus{
		"/":      h.checker.HealthCheck,
		"/ready": h.checker.ReadinessCheck,
		"/live":  h.checker.LivenessCheck,
	} {
		r.Get(path, h.probe(check))
		r.Head(path, h.probe(check))
	}
	return r
}

// probe answers 503 for any status other than ok, ready or alive, so a
// dashboard whose dataset cannot be read is taken out of rotation.
func (h *HealthHandler) probe(check func(context.Context) services.HealthStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := check(r.Context())
		w.Header().Set("Cache-Control", "no-store")

		switch status.Status {
		case services.StatusOK, services.StatusReady, services.StatusAlive:
		default:
			h.logger.DebugContext(r.Context(), "probe failed",
				slog.String("path", r.URL.Path),
				slog.String("status", status.Status))
			render.Status(r, http.StatusServiceUnavailable)
		}

		if r.Method == http.MethodHead {
			if code, ok := r.Context().Value(render.StatusCtxKey).(int); ok {
				w.WriteHeader(code)
			}
			return
		}
		render.JSON(w, r, status)
	}
}

// Version handles GET /api/version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.checker.Version())
}
