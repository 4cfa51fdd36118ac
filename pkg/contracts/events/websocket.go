// Package events contains the WebSocket message contracts pushed to open
// dashboards.
package events

import (
	"time"

	"casepulse/pkg/contracts/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Sent once to every client right after it registers
	MessageTypeConnect MessageType = "connection"

	// Dataset messages
	MessageTypeDatasetChanged MessageType = "dataset:changed"
	MessageTypeDatasetError   MessageType = "dataset:error"
)

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	Type      MessageType `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// NewMessage stamps a message with the current time.
func NewMessage(msgType MessageType, data interface{}) WebSocketMessage {
	return WebSocketMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// ConnectData is the payload of a connection message.
type ConnectData struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
}

// DatasetChanged tells dashboards that the CSV behind them changed and the
// cached dataset was dropped. Source is the last loaded version, if any.
type DatasetChanged struct {
	Path   string             `json:"path"`
	Reason string             `json:"reason"`
	Source *domain.SourceInfo `json:"source,omitempty"`
}

// DatasetError reports a failed reload.
type DatasetError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}
