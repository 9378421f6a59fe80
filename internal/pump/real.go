//go:build linux

package pump

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// pwmPeriod is the software PWM period (100 Hz).
const pwmPeriod = 10 * time.Millisecond

// RealDriver drives the pump from a Linux GPIO character device line.
// Duty levels between off and full are produced by software PWM.
type RealDriver struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line

	mu    sync.Mutex
	level uint8

	stop chan struct{}
	done chan struct{}
}

// NewRealDriver requests the given line of chipName as an output, initially low.
func NewRealDriver(chipName string, offset int) (*RealDriver, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("irrigation-pump"))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request pump pin %d: %w", offset, err)
	}

	d := &RealDriver{
		chip: chip,
		line: line,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go d.run()
	return d, nil
}

// SetIntensity sets the duty level. The line is written immediately so that
// a broken line is reported to the caller; the PWM loop keeps the duty.
func (d *RealDriver) SetIntensity(level uint8) error {
	v := 0
	if level > 0 {
		v = 1
	}
	if err := d.line.SetValue(v); err != nil {
		return fmt.Errorf("%w: set pump pin: %v", ErrWriteFailed, err)
	}
	d.mu.Lock()
	d.level = level
	d.mu.Unlock()
	return nil
}

func (d *RealDriver) run() {
	defer close(d.done)

	timer := time.NewTimer(pwmPeriod)
	defer timer.Stop()

	wait := func(dur time.Duration) bool {
		timer.Reset(dur)
		select {
		case <-d.stop:
			return false
		case <-timer.C:
			return true
		}
	}

	var failing bool
	for {
		d.mu.Lock()
		level := d.level
		d.mu.Unlock()

		var err error
		switch level {
		case 0:
			err = d.line.SetValue(0)
			if !wait(pwmPeriod) {
				return
			}
		case MaxLevel:
			err = d.line.SetValue(1)
			if !wait(pwmPeriod) {
				return
			}
		default:
			on := pwmPeriod * time.Duration(level) / MaxLevel
			if err = d.line.SetValue(1); err == nil && !wait(on) {
				return
			}
			if err == nil {
				err = d.line.SetValue(0)
			}
			if !wait(pwmPeriod - on) {
				return
			}
		}

		// Log once per failure streak; SetIntensity reports to the caller.
		if err != nil && !failing {
			log.Printf("pump: pwm write error: %v", err)
		}
		failing = err != nil
	}
}

// Close stops the PWM loop, drives the pump off and releases the line.
// The line is left as an input with pull-down so the pump stays off across
// reboots.
func (d *RealDriver) Close() error {
	close(d.stop)
	<-d.done

	var errs []error
	if d.line != nil {
		if err := d.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive pump pin low: %w", err))
		}
		if err := d.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pump pin: %w", err))
		}
		if err := d.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pump pin: %w", err))
		}
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
