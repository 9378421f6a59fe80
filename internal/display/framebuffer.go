package display

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Sink receives each committed frame, e.g. a panel driver or a console.
type Sink interface {
	Push(frame *image.Gray) error
}

// glyphs holds 8x8 icon bitmaps, one byte per row, MSB leftmost.
var glyphs = map[Icon][8]byte{
	IconHappy: {
		0b00111100,
		0b01000010,
		0b10100101,
		0b10000001,
		0b10100101,
		0b10011001,
		0b01000010,
		0b00111100,
	},
}

// Framebuffer is a Display backed by an in-memory 1-bit image.
// Drawing happens on a back buffer; Flush copies it to the front buffer
// and hands it to the sink. Safe for concurrent Snapshot callers.
type Framebuffer struct {
	back *image.Gray
	face font.Face
	sink Sink

	mu     sync.RWMutex
	front  *image.Gray
	frames int
}

// NewFramebuffer creates a Width x Height framebuffer. sink may be nil.
func NewFramebuffer(sink Sink) *Framebuffer {
	bounds := image.Rect(0, 0, Width, Height)
	return &Framebuffer{
		back:  image.NewGray(bounds),
		front: image.NewGray(bounds),
		face:  basicfont.Face7x13,
		sink:  sink,
	}
}

// Clear blanks the back buffer.
func (fb *Framebuffer) Clear() {
	for i := range fb.back.Pix {
		fb.back.Pix[i] = 0
	}
}

// DrawText draws text with its top-left corner at (x, y).
func (fb *Framebuffer) DrawText(text string, x, y int) {
	d := font.Drawer{
		Dst:  fb.back,
		Src:  image.White,
		Face: fb.face,
		Dot:  fixed.P(x, y+fb.face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}

// DrawIcon draws an 8x8 glyph with its top-left corner at (x, y).
// Unknown icons draw nothing.
func (fb *Framebuffer) DrawIcon(id Icon, x, y int) {
	g, ok := glyphs[id]
	if !ok {
		return
	}
	for row, bits := range g {
		for col := 0; col < 8; col++ {
			if bits&(0x80>>col) != 0 {
				fb.back.SetGray(x+col, y+row, color.Gray{Y: 0xff})
			}
		}
	}
}

// Flush commits the back buffer and pushes it to the sink.
func (fb *Framebuffer) Flush() error {
	fb.mu.Lock()
	copy(fb.front.Pix, fb.back.Pix)
	fb.frames++
	fb.mu.Unlock()

	if fb.sink == nil {
		return nil
	}
	if err := fb.sink.Push(fb.Snapshot()); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// Snapshot returns a copy of the last committed frame.
func (fb *Framebuffer) Snapshot() *image.Gray {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	img := image.NewGray(fb.front.Rect)
	copy(img.Pix, fb.front.Pix)
	return img
}

// Frames returns the number of committed frames.
func (fb *Framebuffer) Frames() int {
	fb.mu.RLock()
	defer fb.mu.RUnlock()
	return fb.frames
}

// WritePNG encodes the last committed frame as PNG.
func (fb *Framebuffer) WritePNG(w io.Writer) error {
	return png.Encode(w, fb.Snapshot())
}

// Lit reports whether the pixel at (x, y) is on in the given frame.
func Lit(img *image.Gray, x, y int) bool {
	return img.GrayAt(x, y).Y >= 0x80
}
