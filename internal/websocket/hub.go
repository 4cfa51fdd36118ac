package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"casepulse/internal/config"
	"casepulse/internal/infrastructure"
	"casepulse/pkg/contracts/domain"
	"casepulse/pkg/contracts/events"
)

// ErrHubStopped is returned when publishing after Run has returned.
var ErrHubStopped = errors.New("websocket hub stopped")

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	doneOnce   sync.Once

	mu      sync.RWMutex
	cfg     config.WebSocketConfig
	logger  *slog.Logger
	metrics *infrastructure.DashboardMetrics
	// parent of every client logger
	clientLogger *slog.Logger

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	droppedClients   atomic.Int64
}

// HubStats is a snapshot of hub counters.
type HubStats struct {
	ActiveClients    int   `json:"active_clients"`
	TotalConnections int64 `json:"total_connections"`
	MessagesSent     int64 `json:"messages_sent"`
	DroppedClients   int64 `json:"dropped_clients"`
}

// NewHub creates a hub. Call Run to start dispatching.
func NewHub(cfg config.WebSocketConfig, metrics *infrastructure.DashboardMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if metrics == nil {
		metrics = infrastructure.NoopDashboardMetrics()
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}

	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		cfg:        cfg,

		logger:       infrastructure.WithComponent(logger, "websocket.hub"),
		clientLogger: infrastructure.WithComponent(logger, "websocket.client"),
		metrics:      metrics,
	}
}

// Run dispatches registrations and broadcasts until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hub shutting down", slog.Int("clients", h.ClientCount()))
			return nil

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client, "closed")

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.totalConnections.Add(1)
	ctx := client.context()
	h.metrics.WebSocketClients.Add(ctx, 1)

	h.logger.InfoContext(ctx, "client registered",
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr),
		slog.Int("total_clients", count))

	msg := events.NewMessage(events.MessageTypeConnect, events.ConnectData{
		Status:   "connected",
		ClientID: client.id,
	})
	msg.TraceID = infrastructure.GetTraceID(client.context())
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
		h.logger.WarnContext(ctx, "client buffer full, connection message dropped",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) removeClient(client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.metrics.WebSocketClients.Add(ctx, -1)
	h.logger.InfoContext(ctx, "client unregistered",
		slog.String("client_id", client.id),
		slog.String("reason", reason),
		slog.Int("total_clients", count),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	var slow []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
			h.messagesSent.Add(1)
		default:
			slow = append(slow, client)
		}
	}

	// A client that cannot keep up is disconnected rather than blocking the hub
	for _, client := range slow {
		h.droppedClients.Add(1)
		h.removeClient(client, "send buffer full")
	}

	h.logger.Debug("broadcast delivered",
		slog.Int("clients", len(clients)),
		slog.Int("dropped", len(slow)),
		slog.Int("message_size", len(message)))
}

func (h *Hub) shutdown() {
	h.doneOnce.Do(func() { close(h.done) })

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		h.removeClient(client, "hub stopped")
	}
}

// Register adds a client to the hub. After Run has returned the client's
// send channel is closed so its write pump exits.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues msg for every connected client.
func (h *Hub) Publish(msg events.WebSocketMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- data:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// DatasetChanged tells open dashboards to re-render.
func (h *Hub) DatasetChanged(path, reason string, source *domain.SourceInfo) {
	err := h.Publish(events.NewMessage(events.MessageTypeDatasetChanged, events.DatasetChanged{
		Path:   path,
		Reason: reason,
		Source: source,
	}))
	if err != nil {
		h.logger.Warn("dataset change not broadcast",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// DatasetError tells open dashboards that reloading the dataset failed.
func (h *Hub) DatasetError(path string, cause error) {
	err := h.Publish(events.NewMessage(events.MessageTypeDatasetError, events.DatasetError{
		Path:    path,
		Message: cause.Error(),
	}))
	if err != nil {
		h.logger.Warn("dataset error not broadcast",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns current hub counters
func (h *Hub) Stats() HubStats {
	return HubStats{
		ActiveClients:    h.ClientCount(),
		TotalConnections: h.totalConnections.Load(),
		MessagesSent:     h.messagesSent.Load(),
		DroppedClients:   h.droppedClients.Load(),
	}
}
