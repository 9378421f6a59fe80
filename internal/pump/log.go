package pump

import "log"

// Setter is anything that accepts a duty level, such as a simulated soil model.
type Setter interface {
	SetIntensity(level uint8) error
}

// LogDriver logs each level change and forwards it to an optional Setter.
// It stands in for the pump when no actuator hardware is attached.
type LogDriver struct {
	next  Setter
	last  uint8
	wrote bool
}

// NewLogDriver creates a LogDriver. next may be nil.
func NewLogDriver(next Setter) *LogDriver {
	return &LogDriver{next: next}
}

// SetIntensity logs level changes and forwards every write.
func (d *LogDriver) SetIntensity(level uint8) error {
	if !d.wrote || d.last != level {
		log.Printf("pump: intensity %d/%d", level, MaxLevel)
	}
	d.last = level
	d.wrote = true
	if d.next != nil {
		return d.next.SetIntensity(level)
	}
	return nil
}

// Close is a no-op.
func (d *LogDriver) Close() error {
	return nil
}
