// Package display renders controller status on a 128x64 monochrome screen.
package display

import (
	"errors"
	"fmt"

	"github.com/sweeney/irrigation-controller/internal/logic"
)

// ErrWriteFailed is returned when a frame could not be committed to the backend.
var ErrWriteFailed = errors.New("display: write failed")

// Screen geometry in pixels; origin is top-left.
const (
	Width  = 128
	Height = 64
)

// Icon identifies a built-in glyph.
type Icon int

const (
	IconHappy Icon = iota + 1
)

// Display is a frame-buffered text display.
// Drawing calls only touch the pending frame; Flush commits it.
type Display interface {
	Clear()
	DrawText(text string, x, y int)
	DrawIcon(id Icon, x, y int)
	// Flush commits the pending frame. Returns an error wrapping
	// ErrWriteFailed if the backend is unreachable.
	Flush() error
}

// Layout of the three status lines.
const (
	marginX   = 10
	humidityY = 10
	tempY     = 30
	statusY   = 50
	adequateX = 20 // label sits right of the happy glyph
)

// Render draws one tick's frame: two measurement lines then the status line.
// Measurements are shown as whole units, truncated toward zero.
func Render(d Display, r logic.Reading, s logic.Status) error {
	d.Clear()
	d.DrawText(fmt.Sprintf("UMID %d", whole(r.Humidity)), marginX, humidityY)
	d.DrawText(fmt.Sprintf("TEMP %d C", whole(r.Temperature)), marginX, tempY)

	switch s {
	case logic.StatusAlert:
		d.DrawText(string(logic.StatusAlert), marginX, statusY)
	case logic.StatusAdequate:
		d.DrawIcon(IconHappy, marginX, statusY)
		d.DrawText(string(logic.StatusAdequate), adequateX, statusY)
	default:
		d.DrawText(string(logic.StatusNormal), marginX, statusY)
	}

	if err := d.Flush(); err != nil {
		if errors.Is(err, ErrWriteFailed) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

func whole(v float32) int {
	return int(v)
}
