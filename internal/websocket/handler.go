package websocket

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	apierrors "casepulse/internal/errors"
	"casepulse/internal/infrastructure"
)

// Handler upgrades dashboard connections and attaches them to a hub.
type Handler struct {
	hub            *Hub
	upgrader       websocket.Upgrader
	allowedOrigins []string
	logger         *slog.Logger
}

// NewHandler builds the /ws endpoint. Same-host origins are always accepted;
// allowedOrigins adds cross-origin dashboards ("*" accepts any).
func NewHandler(hub *Hub, allowedOrigins []string, logger *slog.Logger) *Handler {
	h := &Handler{
		hub:            hub,
		allowedOrigins: allowedOrigins,
		logger:         logger.With(slog.String("component", "websocket.handler")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  hub.cfg.ReadBufferSize,
		WriteBufferSize: hub.cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			h.logger.WarnContext(r.Context(), "websocket upgrade rejected",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			apierrors.WriteError(w, apierrors.New(status, apierrors.CodeUpgradeFailed,
				apierrors.ErrWebSocketUpgrade.Message).WithDetails(reason.Error()))
		},
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if strings.EqualFold(origin, "http://"+r.Host) || strings.EqualFold(origin, "https://"+r.Host) {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// ServeHTTP handles websocket requests from the peer
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	if traceID == "" {
		traceID = infrastructure.GenerateTraceID()
	}
	ctx := infrastructure.WithTraceID(r.Context(), traceID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already wrote the response
		h.logger.DebugContext(ctx, "websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := NewClient(h.hub, WrapConn(conn), traceID)
	h.hub.Register(client)

	go h.pump(client, "write", client.WritePump)
	go h.pump(client, "read", client.ReadPump)
}

func (h *Handler) pump(client *Client, name string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.ErrorContext(client.context(), "websocket pump panic",
				slog.String("pump", name),
				slog.String("panic", fmt.Sprint(rec)),
				slog.String("client_id", client.id))
		}
	}()
	fn()
}
