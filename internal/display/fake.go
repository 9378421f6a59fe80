package display

import "strings"

// OpKind identifies a recorded drawing call.
type OpKind string

const (
	OpClear OpKind = "clear"
	OpText  OpKind = "text"
	OpIcon  OpKind = "icon"
)

// Op is one recorded drawing call.
type Op struct {
	Kind OpKind
	Text string
	Icon Icon
	X, Y int
}

// FakeDisplay records drawing calls for test assertions.
type FakeDisplay struct {
	// Frames contains the ops of every successfully flushed frame.
	Frames [][]Op

	// FlushError, if set, will be returned by Flush.
	FlushError error

	pending []Op
}

// NewFakeDisplay creates a FakeDisplay.
func NewFakeDisplay() *FakeDisplay {
	return &FakeDisplay{}
}

func (f *FakeDisplay) Clear() {
	f.pending = append(f.pending[:0:0], Op{Kind: OpClear})
}

func (f *FakeDisplay) DrawText(text string, x, y int) {
	f.pending = append(f.pending, Op{Kind: OpText, Text: text, X: x, Y: y})
}

func (f *FakeDisplay) DrawIcon(id Icon, x, y int) {
	f.pending = append(f.pending, Op{Kind: OpIcon, Icon: id, X: x, Y: y})
}

// Flush records the pending frame, or returns FlushError.
func (f *FakeDisplay) Flush() error {
	if f.FlushError != nil {
		return f.FlushError
	}
	f.Frames = append(f.Frames, f.pending)
	f.pending = nil
	return nil
}

// Last returns the most recently flushed frame, or nil.
func (f *FakeDisplay) Last() []Op {
	if len(f.Frames) == 0 {
		return nil
	}
	return f.Frames[len(f.Frames)-1]
}

// Texts returns the text lines of a frame in drawing order.
func Texts(frame []Op) []string {
	var out []string
	for _, op := range frame {
		if op.Kind == OpText {
			out = append(out, op.Text)
		}
	}
	return out
}

// HasIcon reports whether a frame draws the icon.
func HasIcon(frame []Op, id Icon) bool {
	for _, op := range frame {
		if op.Kind == OpIcon && op.Icon == id {
			return true
		}
	}
	return false
}

// String joins a frame's text lines, for log and failure messages.
func String(frame []Op) string {
	return strings.Join(Texts(frame), " | ")
}

// Reset clears recorded frames.
func (f *FakeDisplay) Reset() {
	f.Frames = nil
	f.pending = nil
	f.FlushError = nil
}
