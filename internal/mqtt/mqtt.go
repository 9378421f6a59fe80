// Package mqtt mirrors controller events and telemetry to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/irrigation-controller/internal/logic"
)

// Topic is the MQTT topic for alert latch transitions.
const Topic = "irrigation/controller/events"

// TopicTelemetry is the MQTT topic for per-tick readings.
const TopicTelemetry = "irrigation/controller/telemetry"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "irrigation/controller/system"

// Publisher publishes controller messages.
type Publisher interface {
	// Publish sends a latch transition.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishTelemetry sends one tick's reading.
	PublishTelemetry(t Telemetry) error

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
	Retained   bool   // Whether the message should be retained by the broker
}

// Telemetry is the per-tick reading mirrored to the broker.
type Telemetry struct {
	Timestamp      time.Time
	Humidity       float32
	Temperature    float32
	RawHumidity    uint16
	RawTemperature uint16
	State          logic.State
	Status         logic.Status
	PumpLevel      uint8
}

// Payload represents the MQTT message payload for a latch transition.
type Payload struct {
	Irrigation EventPayload `json:"irrigation"`
}

// EventPayload contains the transition details.
type EventPayload struct {
	Timestamp   string  `json:"timestamp"`
	Event       string  `json:"event"`
	State       string  `json:"state"`
	Humidity    float32 `json:"humidity"`
	Temperature float32 `json:"temperature"`
}

// FormatPayload creates the JSON payload for a latch transition.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Irrigation: EventPayload{
			Timestamp:   event.Timestamp.UTC().Format(time.RFC3339),
			Event:       string(event.Type),
			State:       string(event.State),
			Humidity:    event.Humidity,
			Temperature: event.Temperature,
		},
	}
	return json.Marshal(payload)
}

// TelemetryPayload represents the MQTT message payload for a reading.
type TelemetryPayload struct {
	Telemetry TelemetryPayloadInner `json:"telemetry"`
}

// TelemetryPayloadInner contains the reading details.
type TelemetryPayloadInner struct {
	Timestamp   string      `json:"timestamp"`
	Humidity    float32     `json:"humidity"`
	Temperature float32     `json:"temperature"`
	Raw         RawSamples  `json:"raw"`
	State       string      `json:"state"`
	Status      string      `json:"status"`
	Pump        PumpPayload `json:"pump"`
}

// RawSamples holds the ADC samples behind a reading.
type RawSamples struct {
	Humidity    uint16 `json:"humidity"`
	Temperature uint16 `json:"temperature"`
}

// PumpPayload holds the pump duty level.
type PumpPayload struct {
	Level uint8 `json:"level"`
}

// FormatTelemetryPayload creates the JSON payload for a reading.
func FormatTelemetryPayload(t Telemetry) ([]byte, error) {
	payload := TelemetryPayload{
		Telemetry: TelemetryPayloadInner{
			Timestamp:   t.Timestamp.UTC().Format(time.RFC3339),
			Humidity:    t.Humidity,
			Temperature: t.Temperature,
			Raw:         RawSamples{Humidity: t.RawHumidity, Temperature: t.RawTemperature},
			State:       string(t.State),
			Status:      string(t.Status),
			Pump:        PumpPayload{Level: t.PumpLevel},
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
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
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
