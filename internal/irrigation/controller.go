// Package irrigation runs one control tick: read sensors, update the alert
// latch, drive the pump and render the display, in that order.
package irrigation

import (
	"fmt"
	"log"
	"time"

	"github.com/sweeney/irrigation-controller/internal/display"
	"github.com/sweeney/irrigation-controller/internal/logic"
)

// SensorReader reads scaled sensor values.
type SensorReader interface {
	ReadHumidity() (float32, error)
	ReadTemperature() (float32, error)
}

// Actuator sets the pump duty level.
type Actuator interface {
	SetIntensity(level uint8) error
}

// RawSource optionally exposes the raw ADC samples behind the last reading.
type RawSource interface {
	Raw() (uint16, uint16)
}

// Result is the outcome of one tick.
type Result struct {
	Timestamp      time.Time
	Reading        logic.Reading
	RawHumidity    uint16
	RawTemperature uint16
	Decision       logic.Decision

	// PumpErr and DisplayErr are set when that stage failed; the tick
	// still counts as evaluated.
	PumpErr    error
	DisplayErr error
}

// Event returns the latch transition as a publishable event, or nil.
func (r Result) Event() *logic.Event {
	if r.Decision.Transition == "" {
		return nil
	}
	return &logic.Event{
		Timestamp:   r.Timestamp,
		Type:        r.Decision.Transition,
		State:       r.Decision.State,
		Humidity:    r.Reading.Humidity,
		Temperature: r.Reading.Temperature,
	}
}

// Controller owns the latch and the collaborators for one irrigation zone.
// Not safe for concurrent use; Tick is called from a single loop.
type Controller struct {
	sensors SensorReader
	pump    Actuator
	screen  display.Display
	latch   *logic.Latch
}

// New creates a Controller in StateNormal.
func New(sensors SensorReader, pump Actuator, screen display.Display, startTime time.Time) *Controller {
	return &Controller{
		sensors: sensors,
		pump:    pump,
		screen:  screen,
		latch:   logic.NewLatch(startTime),
	}
}

// Latch exposes the alert latch for heartbeat and count queries.
func (c *Controller) Latch() *logic.Latch {
	return c.latch
}

// Tick runs one control cycle.
//
// A sensor failure aborts the tick before the latch is touched and is
// returned as an error wrapping sensor.ErrUnavailable. Pump and display
// failures are recorded in the Result and logged; they never abort the tick.
func (c *Controller) Tick(now time.Time) (Result, error) {
	res := Result{Timestamp: now}

	h, err := c.sensors.ReadHumidity()
	if err != nil {
		return res, fmt.Errorf("humidity: %w", err)
	}
	t, err := c.sensors.ReadTemperature()
	if err != nil {
		return res, fmt.Errorf("temperature: %w", err)
	}
	res.Reading = logic.Reading{Humidity: h, Temperature: t}
	if raw, ok := c.sensors.(RawSource); ok {
		res.RawHumidity, res.RawTemperature = raw.Raw()
	}

	log.Printf("tick: X=%d Y=%d umid=%d temp=%d", res.RawHumidity, res.RawTemperature, int(h), int(t))

	// Latch first, then the actuator, then the screen.
	res.Decision = c.latch.Evaluate(res.Reading)

	if res.Decision.Pump.Issue {
		if err := c.pump.SetIntensity(res.Decision.Pump.Level); err != nil {
			res.PumpErr = err
			log.Printf("tick: pump write error: %v", err)
		}
	}

	if c.screen != nil {
		if err := display.Render(c.screen, res.Reading, res.Decision.Status); err != nil {
			res.DisplayErr = err
			log.Printf("tick: display error: %v", err)
		}
	}

	return res, nil
}
