package display

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/irrigation-controller/internal/logic"
)

func TestRenderAlert(t *testing.T) {
	f := NewFakeDisplay()
	err := Render(f, logic.Reading{Humidity: 20.9, Temperature: 25.7}, logic.StatusAlert)
	require.NoError(t, err)

	frame := f.Last()
	require.NotEmpty(t, frame)
	assert.Equal(t, OpClear, frame[0].Kind)
	assert.Equal(t, []string{"UMID 20", "TEMP 25 C", "ALERTA"}, Texts(frame))
	assert.False(t, HasIcon(frame, IconHappy))

	last := frame[len(frame)-1]
	assert.Equal(t, 10, last.X)
	assert.Equal(t, 50, last.Y)
}

func TestRenderAdequate(t *testing.T) {
	f := NewFakeDisplay()
	require.NoError(t, Render(f, logic.Reading{Humidity: 70, Temperature: 25}, logic.StatusAdequate))

	frame := f.Last()
	assert.Equal(t, []string{"UMID 70", "TEMP 25 C", "adequado"}, Texts(frame))
	assert.True(t, HasIcon(frame, IconHappy))

	for _, op := range frame {
		switch {
		case op.Kind == OpIcon:
			assert.Equal(t, 10, op.X)
			assert.Equal(t, 50, op.Y)
		case op.Kind == OpText && op.Text == "adequado":
			assert.Equal(t, 20, op.X)
			assert.Equal(t, 50, op.Y)
		}
	}
}

func TestRenderNormal(t *testing.T) {
	f := NewFakeDisplay()
	require.NoError(t, Render(f, logic.Reading{Humidity: 40, Temperature: 10}, logic.StatusNormal))
	assert.Equal(t, []string{"UMID 40", "TEMP 10 C", "normal"}, Texts(f.Last()))
}

func TestRenderMeasurementPositions(t *testing.T) {
	f := NewFakeDisplay()
	require.NoError(t, Render(f, logic.Reading{}, logic.StatusNormal))

	var texts []Op
	for _, op := range f.Last() {
		if op.Kind == OpText {
			texts = append(texts, op)
		}
	}
	require.Len(t, texts, 3)
	assert.Equal(t, [2]int{10, 10}, [2]int{texts[0].X, texts[0].Y})
	assert.Equal(t, [2]int{10, 30}, [2]int{texts[1].X, texts[1].Y})
}

func TestRenderTruncates(t *testing.T) {
	tests := []struct {
		r    logic.Reading
		want []string
	}{
		{logic.Reading{Humidity: 59.99, Temperature: 27.99}, []string{"UMID 59", "TEMP 27 C"}},
		{logic.Reading{Humidity: 0.4, Temperature: 79.9}, []string{"UMID 0", "TEMP 79 C"}},
		{logic.Reading{Humidity: 100, Temperature: 80}, []string{"UMID 100", "TEMP 80 C"}},
	}
	for _, tt := range tests {
		f := NewFakeDisplay()
		require.NoError(t, Render(f, tt.r, logic.StatusNormal))
		assert.Equal(t, tt.want, Texts(f.Last())[:2])
	}
}

func TestRenderFlushError(t *testing.T) {
	f := NewFakeDisplay()
	f.FlushError = errors.New("i2c nack")

	err := Render(f, logic.Reading{Humidity: 50}, logic.StatusNormal)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.Contains(t, err.Error(), "i2c nack")
	assert.Empty(t, f.Frames)
}

func TestRenderIdempotentFrames(t *testing.T) {
	f := NewFakeDisplay()
	r := logic.Reading{Humidity: 20, Temperature: 25}
	for i := 0; i < 3; i++ {
		require.NoError(t, Render(f, r, logic.StatusAlert))
	}
	require.Len(t, f.Frames, 3)
	assert.Equal(t, f.Frames[0], f.Frames[1])
	assert.Equal(t, f.Frames[1], f.Frames[2])
}

type recordingSink struct {
	frames []*image.Gray
	err    error
}

func (s *recordingSink) Push(frame *image.Gray) error {
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, frame)
	return nil
}

func litCount(img *image.Gray) int {
	n := 0
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if Lit(img, x, y) {
				n++
			}
		}
	}
	return n
}

func TestFramebufferDrawsAndCommits(t *testing.T) {
	sink := &recordingSink{}
	fb := NewFramebuffer(sink)

	fb.Clear()
	fb.DrawText("UMID 42", 10, 10)
	assert.Zero(t, litCount(fb.Snapshot()), "nothing visible before flush")

	require.NoError(t, fb.Flush())
	assert.Equal(t, 1, fb.Frames())
	require.Len(t, sink.frames, 1)

	snap := fb.Snapshot()
	assert.Positive(t, litCount(snap))
	assert.Equal(t, image.Rect(0, 0, Width, Height), snap.Bounds())

	// Text occupies the line band starting at y=10 and nothing above it.
	for y := 0; y < 10; y++ {
		for x := 0; x < Width; x++ {
			assert.False(t, Lit(snap, x, y), "pixel (%d,%d) lit above text", x, y)
		}
	}
}

func TestFramebufferIcon(t *testing.T) {
	fb := NewFramebuffer(nil)
	fb.Clear()
	fb.DrawIcon(IconHappy, 10, 50)
	fb.DrawIcon(Icon(99), 0, 0)
	require.NoError(t, fb.Flush())

	snap := fb.Snapshot()
	assert.True(t, Lit(snap, 12, 50), "top edge of face")
	assert.False(t, Lit(snap, 10, 50), "corner stays dark")
	assert.False(t, Lit(snap, 0, 0), "unknown icon draws nothing")
}

func TestFramebufferClear(t *testing.T) {
	fb := NewFramebuffer(nil)
	fb.DrawText("ALERTA", 10, 50)
	require.NoError(t, fb.Flush())
	require.Positive(t, litCount(fb.Snapshot()))

	fb.Clear()
	require.NoError(t, fb.Flush())
	assert.Zero(t, litCount(fb.Snapshot()))
}

func TestFramebufferSinkError(t *testing.T) {
	fb := NewFramebuffer(&recordingSink{err: errors.New("bus down")})
	fb.DrawText("x", 0, 0)
	err := fb.Flush()
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.Equal(t, 1, fb.Frames(), "frame committed locally even if the sink fails")
}

func TestFramebufferWritePNG(t *testing.T) {
	fb := NewFramebuffer(nil)
	require.NoError(t, Render(fb, logic.Reading{Humidity: 70, Temperature: 20}, logic.StatusAdequate))

	var buf bytes.Buffer
	require.NoError(t, fb.WritePNG(&buf))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, Width, img.Bounds().Dx())
	assert.Equal(t, Height, img.Bounds().Dy())
}

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, 2)
	fb := NewFramebuffer(c)

	require.NoError(t, Render(fb, logic.Reading{Humidity: 20, Temperature: 25}, logic.StatusAlert))
	first := buf.String()
	assert.NotEmpty(t, first)
	lines := strings.Split(strings.TrimRight(first, "\n"), "\n")
	assert.Len(t, lines, Height/2+2)

	require.NoError(t, Render(fb, logic.Reading{Humidity: 20, Temperature: 25}, logic.StatusAlert))
	assert.Equal(t, first, buf.String(), "second frame skipped")
}

func TestASCIIBlank(t *testing.T) {
	out := ASCII(image.NewGray(image.Rect(0, 0, 4, 2)))
	assert.Equal(t, "+----+\n|    |\n+----+\n", out)
}
