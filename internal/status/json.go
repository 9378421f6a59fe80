package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	BootID        string      `json:"boot_id,omitempty"`
	State         string      `json:"state"`
	Line          string      `json:"line"`
	Ready         bool        `json:"ready"`
	Humidity      float32     `json:"humidity"`
	Temperature   float32     `json:"temperature"`
	Raw           RawJSON     `json:"raw"`
	PumpLevel     uint8       `json:"pump_level"`
	Ticks         int         `json:"ticks"`
	LastTick      string      `json:"last_tick,omitempty"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Counts        CountsJSON  `json:"event_counts"`
	Errors        ErrorsJSON  `json:"errors"`
	Config        *ConfigJSON `json:"config,omitempty"`
}

// RawJSON holds the raw ADC samples.
type RawJSON struct {
	Humidity    uint16 `json:"humidity"`
	Temperature uint16 `json:"temperature"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker,omitempty"`
}

// CountsJSON is the JSON representation of transition counts.
type CountsJSON struct {
	AlertOn  int `json:"alert_on"`
	AlertOff int `json:"alert_off"`
}

// ErrorsJSON is the JSON representation of per-stage error counts.
type ErrorsJSON struct {
	Sensor  int `json:"sensor"`
	Pump    int `json:"pump"`
	Display int `json:"display"`
}

// ConfigJSON is the JSON representation of controller config.
type ConfigJSON struct {
	TickMs      int64  `json:"tick_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Sensor      string `json:"sensor"`
	Pump        string `json:"pump"`
	Display     string `json:"display"`
	Broker      string `json:"broker,omitempty"`
	HTTPAddr    string `json:"http_addr,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.State)
	if state == "" {
		state = "UNKNOWN"
	}
	inner := StatusInner{
		BootID:        snap.BootID,
		State:         state,
		Line:          string(snap.Status),
		Ready:         snap.Ready(),
		Humidity:      snap.Reading.Humidity,
		Temperature:   snap.Reading.Temperature,
		Raw:           RawJSON{Humidity: snap.RawHumidity, Temperature: snap.RawTemperature},
		PumpLevel:     snap.PumpLevel,
		Ticks:         snap.Ticks,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts:        CountsJSON{AlertOn: snap.Counts.AlertOn, AlertOff: snap.Counts.AlertOff},
		Errors: ErrorsJSON{
			Sensor:  snap.Errors.Sensor,
			Pump:    snap.Errors.Pump,
			Display: snap.Errors.Display,
		},
	}
	if !snap.LastTick.IsZero() {
		inner.LastTick = snap.LastTick.UTC().Format(time.RFC3339)
	}
	return inner
}

func buildConfig(snap Snapshot) *ConfigJSON {
	return &ConfigJSON{
		TickMs:      snap.Config.TickMs,
		HeartbeatMs: snap.Config.HeartbeatMs,
		Sensor:      snap.Config.Sensor,
		Pump:        snap.Config.Pump,
		Display:     snap.Config.Display,
		Broker:      snap.Config.Broker,
		HTTPAddr:    snap.Config.HTTPAddr,
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	inner.Config = buildConfig(snap)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
// Config is only carried on STARTUP.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	if event == "STARTUP" {
		inner.Config = buildConfig(snap)
	}

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
