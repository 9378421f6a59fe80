//go:build tinygo

package display

import (
	"image"
	"image/color"

	"tinygo.org/x/drivers/ssd1306"
)

var (
	pixelOn  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	pixelOff = color.RGBA{A: 255}
)

// Panel is a Sink that copies frames to an SSD1306 OLED.
type Panel struct {
	dev *ssd1306.Device
}

// NewPanel wraps a configured SSD1306 device.
func NewPanel(dev *ssd1306.Device) *Panel {
	return &Panel{dev: dev}
}

// Push copies the frame into the panel buffer and sends it over the bus.
func (p *Panel) Push(frame *image.Gray) error {
	b := frame.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := pixelOff
			if Lit(frame, x, y) {
				c = pixelOn
			}
			p.dev.SetPixel(int16(x), int16(y), c)
		}
	}
	return p.dev.Display()
}
