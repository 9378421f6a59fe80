// Package status provides a thread-safe status tracker for the irrigation
// controller. The control loop writes it; HTTP handlers and MQTT system
// events read snapshots.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/irrigation-controller/internal/irrigation"
	"github.com/sweeney/irrigation-controller/internal/logic"
)

// Config contains controller configuration for display.
type Config struct {
	TickMs      int64
	HeartbeatMs int64
	Sensor      string
	Pump        string
	Display     string
	Broker      string
	HTTPAddr    string
}

// Errors counts per-stage failures since startup.
type Errors struct {
	Sensor  int
	Pump    int
	Display int
}

// Snapshot is a point-in-time view of controller state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State          logic.State
	Status         logic.Status
	Reading        logic.Reading
	RawHumidity    uint16
	RawTemperature uint16
	PumpLevel      uint8
	Counts         logic.EventCounts
	Ticks          int
	Errors         Errors
	LastTick       time.Time
	StartTime      time.Time
	Now            time.Time
	BootID         string
	MQTTConnected  bool
	Config         Config
}

// Ready reports whether at least one tick has been evaluated.
func (s Snapshot) Ready() bool {
	return s.Ticks > 0
}

// Uptime returns the duration since the controller started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable controller state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time, boot id and config.
func NewTracker(startTime time.Time, bootID string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     logic.StateNormal,
			StartTime: startTime,
			BootID:    bootID,
			Config:    cfg,
		},
	}
}

// RecordTick stores the outcome of an evaluated tick.
func (t *Tracker) RecordTick(res irrigation.Result, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.State = res.Decision.State
	t.snap.Status = res.Decision.Status
	t.snap.Reading = res.Reading
	t.snap.RawHumidity = res.RawHumidity
	t.snap.RawTemperature = res.RawTemperature
	t.snap.Counts = counts
	t.snap.LastTick = res.Timestamp
	t.snap.Ticks++
	if res.PumpErr != nil {
		t.snap.Errors.Pump++
	}
	if res.DisplayErr != nil {
		t.snap.Errors.Display++
	}
	t.mu.Unlock()
}

// RecordSensorError counts a tick skipped for an unavailable sensor.
func (t *Tracker) RecordSensorError() {
	t.mu.Lock()
	t.snap.Errors.Sensor++
	t.mu.Unlock()
}

// SetPumpLevel sets the last pump level confirmed written.
func (t *Tracker) SetPumpLevel(level uint8) {
	t.mu.Lock()
	t.snap.PumpLevel = level
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the controller state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
