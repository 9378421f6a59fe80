// Package sensor converts raw analog samples into humidity and temperature.
// Samplers abstract the ADC: the fake and simulated samplers allow running
// without hardware, the serial sampler reads a board's diagnostic output.
package sensor

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

// ErrUnavailable is returned when the sampling subsystem is not ready.
var ErrUnavailable = errors.New("sensor: sampling unavailable")

// MaxSample is the full-scale value of the 12-bit ADC.
const MaxSample = 4095

// Full-scale ranges of the scaled values.
const (
	HumidityMax    float32 = 100
	TemperatureMax float32 = 80
)

// Channel selects an analog input.
type Channel int

const (
	ChannelHumidity    Channel = 0 // ADC0, joystick X
	ChannelTemperature Channel = 1 // ADC1, joystick Y
)

func (c Channel) String() string {
	switch c {
	case ChannelHumidity:
		return "humidity"
	case ChannelTemperature:
		return "temperature"
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// Sampler takes raw analog samples.
type Sampler interface {
	// Sample returns a fresh raw value in [0, MaxSample] for the channel.
	// Returns an error wrapping ErrUnavailable when the ADC is not ready.
	Sample(ch Channel) (uint16, error)

	// Close releases sampler resources.
	Close() error
}

// Reader scales raw samples into physical values.
type Reader struct {
	sampler Sampler

	// last raw samples, kept for diagnostics
	rawHumidity    uint16
	rawTemperature uint16
}

// NewReader creates a Reader over the given sampler.
func NewReader(s Sampler) *Reader {
	return &Reader{sampler: s}
}

// ReadHumidity samples the humidity channel and returns percent in [0,100].
func (r *Reader) ReadHumidity() (float32, error) {
	raw, err := r.sample(ChannelHumidity)
	if err != nil {
		return 0, err
	}
	r.rawHumidity = raw
	return Scale(raw, HumidityMax), nil
}

// ReadTemperature samples the temperature channel and returns degrees C in [0,80].
func (r *Reader) ReadTemperature() (float32, error) {
	raw, err := r.sample(ChannelTemperature)
	if err != nil {
		return 0, err
	}
	r.rawTemperature = raw
	return Scale(raw, TemperatureMax), nil
}

// Raw returns the most recent raw samples (humidity, temperature).
func (r *Reader) Raw() (uint16, uint16) {
	return r.rawHumidity, r.rawTemperature
}

func (r *Reader) sample(ch Channel) (uint16, error) {
	if r.sampler == nil {
		return 0, fmt.Errorf("read %s: %w", ch, ErrUnavailable)
	}
	raw, err := r.sampler.Sample(ch)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return 0, fmt.Errorf("read %s: %w", ch, err)
		}
		return 0, fmt.Errorf("read %s: %w: %v", ch, ErrUnavailable, err)
	}
	return raw, nil
}

// Scale maps a raw sample linearly onto [0, full].
// Computed in single precision so truncated values match the firmware.
func Scale(raw uint16, full float32) float32 {
	if raw > MaxSample {
		raw = MaxSample
	}
	v := float32(float32(raw)/float32(MaxSample)) * full
	return math32.Max(0, math32.Min(v, full))
}
