// Package logic contains the pure irrigation control policy.
// This package has NO external dependencies (no ADC, PWM, display, MQTT or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State is the alert latch: NORMAL or ALERT.
type State string

const (
	StateNormal State = "NORMAL"
	StateAlert  State = "ALERT"
)

// Thresholds used by the latch. All bounds are inclusive.
const (
	HumAlert  float32 = 30 // humidity at or below this enters ALERT
	HumOK     float32 = 60 // humidity at or above this leaves ALERT
	TempAlert float32 = 28 // temperature at or above this enters ALERT when humidity <= HumOK
)

// Pump duty levels commanded by the latch.
const (
	PumpAlertLevel uint8 = 20
	PumpOffLevel   uint8 = 0
)

// EventType represents a latch transition.
type EventType string

const (
	EventAlertOn  EventType = "ALERT_ON"
	EventAlertOff EventType = "ALERT_OFF"
)

// Status is the third display line chosen for a tick.
type Status string

const (
	StatusAlert    Status = "ALERTA"
	StatusAdequate Status = "adequado"
	StatusNormal   Status = "normal"
)

// Reading is one tick's pair of scaled sensor values.
type Reading struct {
	Humidity    float32 // percent, [0,100]
	Temperature float32 // degrees C, [0,80]
}

// PumpCommand tells the caller whether to write the actuator this tick.
type PumpCommand struct {
	Issue bool
	Level uint8
}

// Decision is the outcome of evaluating one reading.
type Decision struct {
	Previous   State
	State      State
	Pump       PumpCommand
	Status     Status
	Transition EventType // empty when the latch did not change
}

// Event represents a latch transition to be published.
type Event struct {
	Timestamp   time.Time
	Type        EventType
	State       State
	Humidity    float32
	Temperature float32
}

// EventCounts tracks the number of each transition since startup.
type EventCounts struct {
	AlertOn  int
	AlertOff int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
