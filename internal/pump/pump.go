// Package pump drives the irrigation pump through a PWM duty level.
// The real implementation uses a Linux GPIO character device line.
// The fake implementation allows testing without hardware.
package pump

import "errors"

// ErrWriteFailed is returned when the actuator could not be written.
var ErrWriteFailed = errors.New("pump: actuator write failed")

// MaxLevel is the actuator resolution (8-bit duty).
const MaxLevel = 255

// Driver sets the pump duty level.
type Driver interface {
	// SetIntensity configures the duty cycle; the pump holds it until changed.
	SetIntensity(level uint8) error

	// Close releases actuator resources.
	Close() error
}

// Pin definitions (board GPIO numbering)
const (
	PinPump = 13 // red LED standing in for the pump
)
