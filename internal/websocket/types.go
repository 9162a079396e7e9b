package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeActionApplied is sent after rules were applied to text
	EventTypeActionApplied EventType = "action_applied"
	// EventTypeResolutionError is sent when resolution or application fails
	EventTypeResolutionError EventType = "resolution_error"
	// EventTypeConfigReloaded is sent after the action store was replaced
	EventTypeConfigReloaded EventType = "config_reloaded"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
	// EventTypePong answers a client ping
	EventTypePong EventType = "pong"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	RequestID string    `json:"request_id,omitempty"`
}

// ActionAppliedEvent summarizes one application of an action
type ActionAppliedEvent struct {
	Actions      []string `json:"actions"`
	Rules        int      `json:"rules"`
	Replacements int      `json:"replacements"`
	Missing      []string `json:"missing,omitempty"`
	InputBytes   int      `json:"input_bytes"`
	OutputBytes  int      `json:"output_bytes"`
	ProcessingMS float64  `json:"processing_ms"`
}

// ResolutionErrorEvent reports a failed resolution or application
type ResolutionErrorEvent struct {
	Actions []string `json:"actions"`
	Kind    string   `json:"kind"`
	Error   string   `json:"error"`
}

// ConfigReloadedEvent reports a configuration reload
type ConfigReloadedEvent struct {
	File        string `json:"file"`
	ActionLists int    `json:"action_lists"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action    string `json:"action"` // "connected", "disconnected"
	ClientID  string `json:"client_id"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent,omitempty"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type   string      `json:"type"`
	Events []EventType `json:"events,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID          string
	IP          string
	UserAgent   string
	ConnectedAt time.Time

	conn *websocket.Conn
	send chan Event

	// subscription is nil until the client subscribes; nil receives
	// every event.
	subscription map[EventType]bool
}
