package pump

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/cenkalti/backoff/v4"
)

// FailSafeAfter is the number of consecutive failed writes after which the
// guard forces the pump off.
const FailSafeAfter = 3

// Guard wraps a Driver with the actuator failure policy: each write is
// retried once immediately, and a sustained failure forces level 0.
// Safe for concurrent use; Level may be read from other goroutines.
type Guard struct {
	mu       sync.Mutex
	drv      Driver
	level    uint8
	written  bool
	failures int
}

// NewGuard wraps d.
func NewGuard(d Driver) *Guard {
	return &Guard{drv: d}
}

// SetIntensity writes level, retrying once. Returns an error wrapping
// ErrWriteFailed if both attempts fail.
func (g *Guard) SetIntensity(level uint8) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	err := g.write(level)
	if err == nil {
		g.level = level
		g.written = true
		g.failures = 0
		return nil
	}

	g.failures++
	if g.failures >= FailSafeAfter && level != 0 {
		if ferr := g.write(0); ferr != nil {
			log.Printf("pump: fail-safe off after %d failures also failed: %v", g.failures, ferr)
		} else {
			log.Printf("pump: forced off after %d consecutive write failures", g.failures)
			g.level = 0
			g.written = true
		}
	}

	if errors.Is(err, ErrWriteFailed) {
		return fmt.Errorf("set intensity %d: %w", level, err)
	}
	return fmt.Errorf("set intensity %d: %w: %v", level, ErrWriteFailed, err)
}

// caller holds lock
func (g *Guard) write(level uint8) error {
	return backoff.Retry(func() error {
		return g.drv.SetIntensity(level)
	}, backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 1))
}

// Level returns the last level confirmed written, and whether any write succeeded.
func (g *Guard) Level() (uint8, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.level, g.written
}

// Failures returns the current run of consecutive failed writes.
func (g *Guard) Failures() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failures
}

// Close closes the wrapped driver.
func (g *Guard) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.drv.Close()
}
