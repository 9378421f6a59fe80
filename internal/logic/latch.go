package logic

import "time"

// Latch owns the alert state and applies the threshold policy.
// Entry and exit use different thresholds, so humidity in [HumAlert, HumOK)
// never toggles the latch on its own.
type Latch struct {
	state         State
	startTime     time.Time
	lastHeartbeat time.Time
	eventCounts   EventCounts
}

// NewLatch creates a latch in StateNormal.
// The startTime is used for calculating uptime in heartbeat events.
func NewLatch(startTime time.Time) *Latch {
	return &Latch{
		state:         StateNormal,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// ShouldEnter reports whether a reading meets the alert entry condition.
func ShouldEnter(r Reading) bool {
	return r.Humidity <= HumAlert || (r.Temperature >= TempAlert && r.Humidity <= HumOK)
}

// ShouldExit reports whether a reading meets the alert exit condition.
// Temperature plays no part in leaving ALERT.
func ShouldExit(r Reading) bool {
	return r.Humidity >= HumOK
}

// Evaluate applies one reading to the latch and returns what the caller must do.
func (l *Latch) Evaluate(r Reading) Decision {
	d := Decision{Previous: l.state}

	switch {
	case ShouldEnter(r):
		// Re-issued on every tick the entry condition holds.
		l.state = StateAlert
		d.Pump = PumpCommand{Issue: true, Level: PumpAlertLevel}
	case l.state == StateAlert && ShouldExit(r):
		l.state = StateNormal
		d.Pump = PumpCommand{Issue: true, Level: PumpOffLevel}
	}

	d.State = l.state
	d.Status = statusFor(l.state, r)

	if d.Previous != d.State {
		if d.State == StateAlert {
			d.Transition = EventAlertOn
			l.eventCounts.AlertOn++
		} else {
			d.Transition = EventAlertOff
			l.eventCounts.AlertOff++
		}
	}
	return d
}

func statusFor(s State, r Reading) Status {
	if s == StateAlert {
		return StatusAlert
	}
	if r.Humidity >= HumOK {
		return StatusAdequate
	}
	return StatusNormal
}

// State returns the current latch state.
func (l *Latch) State() State {
	return l.state
}

// EventCountsSnapshot returns the transition counts since startup.
func (l *Latch) EventCountsSnapshot() EventCounts {
	return l.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (l *Latch) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(l.lastHeartbeat) < interval {
		return nil
	}

	l.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(l.startTime),
		Counts:    l.eventCounts,
	}
}
