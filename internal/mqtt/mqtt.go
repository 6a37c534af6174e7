// Package mqtt connects the controller to the broker: it publishes state,
// settings, cycle events and lifecycle events, and turns inbound sensor and
// command messages into Message values.
package mqtt

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/sweeney/hvac-controller/internal/logic"
)

// DefaultPrefix is the topic root when none is configured.
const DefaultPrefix = "hvac"

// ErrNotConnected is returned for unbuffered publishes while the broker is
// unreachable.
var ErrNotConnected = errors.New("mqtt: not connected")

// Topics is the full topic set under one prefix.
type Topics struct {
	State    string // push data, retained
	Settings string // settings, retained
	Events   string // cycle events
	System   string // STARTUP / SHUTDOWN / HEARTBEAT / LWT / RECONNECTED

	Set     string // inbound parameter changes
	Indoor  string // inbound indoor sensor
	Outdoor string // inbound outdoor sensor
	Peaks   string // inbound forecast band
}

// NewTopics builds the topic set rooted at prefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Topics{
		State:    prefix + "/state",
		Settings: prefix + "/settings",
		Events:   prefix + "/events",
		System:   prefix + "/system",
		Set:      prefix + "/set",
		Indoor:   prefix + "/sensor/indoor",
		Outdoor:  prefix + "/sensor/outdoor",
		Peaks:    prefix + "/sensor/peaks",
	}
}

// Inbound lists the topics the controller subscribes to.
func (t Topics) Inbound() []string {
	return []string{t.Set, t.Indoor, t.Outdoor, t.Peaks}
}

// Publisher publishes controller output to the broker.
type Publisher interface {
	// Publish sends a cycle event. Events published while disconnected are
	// buffered and replayed on reconnect.
	Publish(event logic.Event) error

	// PublishState sends the retained push-data document.
	PublishState(payload []byte) error

	// PublishSettings sends the retained settings document.
	PublishSettings(payload []byte) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// Payload is the cycle event message.
type Payload struct {
	HVAC EventPayload `json:"hvac"`
}

// EventPayload carries one controller transition. Temperatures are tenths.
type EventPayload struct {
	Timestamp    string `json:"timestamp"`
	Event        string `json:"event"`
	Mode         string `json:"mode,omitempty"`
	Source       string `json:"source,omitempty"`
	Reason       string `json:"reason,omitempty"`
	CycleSeconds int    `json:"cycle_s,omitempty"`
	Indoor       int    `json:"indoor"`
	Target       int    `json:"target"`
}

// FormatPayload creates the JSON payload for a cycle event.
func FormatPayload(event logic.Event) ([]byte, error) {
	p := EventPayload{
		Timestamp:    event.Timestamp.UTC().Format(time.RFC3339),
		Event:        string(event.Type),
		Reason:       string(event.Reason),
		CycleSeconds: event.CycleSeconds,
		Indoor:       int(event.Indoor),
		Target:       int(event.Target),
	}
	switch event.Type {
	case logic.EventCycleStart, logic.EventCycleStop, logic.EventModeChange:
		p.Mode = event.Mode.String()
		p.Source = event.Source.String()
	}
	return json.Marshal(Payload{HVAC: p})
}

// SystemPayload is used for simple events (LWT, RECONNECTED) that don't
// carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}
