//go:build !linux

package pump

import "errors"

// RealDriver is not available on non-Linux platforms.
type RealDriver struct{}

// NewRealDriver returns an error on non-Linux platforms.
func NewRealDriver(chipName string, offset int) (*RealDriver, error) {
	return nil, errors.New("pump: gpio not supported on this platform (requires Linux)")
}

// SetIntensity is not implemented on non-Linux platforms.
func (d *RealDriver) SetIntensity(level uint8) error {
	return ErrWriteFailed
}

// Close is not implemented on non-Linux platforms.
func (d *RealDriver) Close() error {
	return nil
}
