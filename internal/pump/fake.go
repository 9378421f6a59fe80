package pump

import "errors"

// FakeDriver is a test double that records written levels.
type FakeDriver struct {
	// Levels contains every level successfully written.
	Levels []uint8

	// Calls counts SetIntensity calls, including failed ones.
	Calls int

	// FailNext makes the next N calls fail.
	FailNext int

	// WriteError, if set, is returned by every SetIntensity call.
	WriteError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeDriver creates a FakeDriver.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

// SetIntensity records the level or returns the scripted error.
func (f *FakeDriver) SetIntensity(level uint8) error {
	f.Calls++
	if f.WriteError != nil {
		return f.WriteError
	}
	if f.FailNext > 0 {
		f.FailNext--
		return errors.New("simulated pwm fault")
	}
	f.Levels = append(f.Levels, level)
	return nil
}

// Last returns the most recently written level and whether any write happened.
func (f *FakeDriver) Last() (uint8, bool) {
	if len(f.Levels) == 0 {
		return 0, false
	}
	return f.Levels[len(f.Levels)-1], true
}

// Close marks the driver as closed.
func (f *FakeDriver) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded writes and scripted faults.
func (f *FakeDriver) Reset() {
	f.Levels = nil
	f.Calls = 0
	f.FailNext = 0
	f.WriteError = nil
	f.Closed = false
}
