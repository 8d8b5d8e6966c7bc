// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/relay-timer/internal/logic"
)

// Topics are the full topic names under a configured prefix.
type Topics struct {
	Events    string
	System    string
	Indicator string
}

// NewTopics derives every topic from prefix.
func NewTopics(prefix string) Topics {
	return Topics{
		Events:    prefix + "/events",
		System:    prefix + "/system",
		Indicator: prefix + "/indicator",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a controller event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Relay RelayPayload `json:"relay"`
}

// RelayPayload contains the controller event details.
type RelayPayload struct {
	Timestamp   string `json:"timestamp"`
	Event       string `json:"event"`
	Outcome     string `json:"outcome,omitempty"`
	DelayMs     uint32 `json:"delay_ms"`
	Delay       string `json:"delay"`
	RequestedMs *int64 `json:"requested_ms,omitempty"`
	ElapsedMs   *int64 `json:"elapsed_ms,omitempty"`
	Late        bool   `json:"late,omitempty"`
}

// FormatPayload creates the JSON payload for a controller event.
func FormatPayload(event logic.Event) ([]byte, error) {
	p := RelayPayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     string(event.Type),
		Outcome:   string(event.Outcome),
		DelayMs:   event.DelayMillis,
		Delay:     logic.FormatDelay(event.DelayMillis),
		Late:      event.Late,
	}
	switch event.Type {
	case logic.EventDelayRequest:
		req := event.RequestedMillis
		p.RequestedMs = &req
	case logic.EventActivationEnd:
		ms := event.Elapsed.Milliseconds()
		p.ElapsedMs = &ms
	}
	return json.Marshal(Payload{Relay: p})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}
