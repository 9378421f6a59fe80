package display

import (
	"image"
	"io"
	"strings"
)

// Console is a Sink that prints frames as text using half-block characters,
// two pixel rows per line.
type Console struct {
	w     io.Writer
	every int
	n     int
}

// NewConsole prints every Nth pushed frame to w (every <= 1 prints all).
func NewConsole(w io.Writer, every int) *Console {
	if every < 1 {
		every = 1
	}
	return &Console{w: w, every: every}
}

// Push renders frame to the writer.
func (c *Console) Push(frame *image.Gray) error {
	c.n++
	if (c.n-1)%c.every != 0 {
		return nil
	}
	_, err := io.WriteString(c.w, ASCII(frame))
	return err
}

// ASCII renders a frame inside a border, using '▀', '▄' and '█'.
func ASCII(frame *image.Gray) string {
	b := frame.Bounds()
	var sb strings.Builder
	border := "+" + strings.Repeat("-", b.Dx()) + "+\n"
	sb.WriteString(border)
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		sb.WriteByte('|')
		for x := b.Min.X; x < b.Max.X; x++ {
			top := Lit(frame, x, y)
			bottom := y+1 < b.Max.Y && Lit(frame, x, y+1)
			switch {
			case top && bottom:
				sb.WriteString("█")
			case top:
				sb.WriteString("▀")
			case bottom:
				sb.WriteString("▄")
			default:
				sb.WriteByte(' ')
			}
		}
		sb.WriteString("|\n")
	}
	sb.WriteString(border)
	return sb.String()
}
