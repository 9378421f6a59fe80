//go:build tinygo && rp2040

// Command irrigation-firmware runs the irrigation control loop on an RP2040
// board: joystick axes on ADC0/ADC1 stand in for the soil humidity and
// temperature sensors, GPIO13 drives the pump with PWM and an SSD1306 on
// I2C1 shows the status.
//
// Flash with: tinygo flash -target=pico ./cmd/irrigation-firmware
package main

import (
	"fmt"
	"log"
	"machine"
	"time"

	"tinygo.org/x/drivers/ssd1306"

	"github.com/sweeney/irrigation-controller/internal/display"
	"github.com/sweeney/irrigation-controller/internal/irrigation"
	"github.com/sweeney/irrigation-controller/internal/logic"
	"github.com/sweeney/irrigation-controller/internal/pump"
	"github.com/sweeney/irrigation-controller/internal/sensor"
)

// Board pin map.
const (
	pinSDA      = machine.GP14
	pinSCL      = machine.GP15
	pinHumidity = machine.ADC0 // GPIO26, joystick X
	pinTemp     = machine.ADC1 // GPIO27, joystick Y
	pinPump     = machine.GP13

	panelAddress = 0x3C
	pwmPeriodNs  = 1e9 / 1000 // 1 kHz
)

const tickInterval = 500 * time.Millisecond

// adcSampler reads the two joystick axes and echoes each sample on the
// console in the "X: n" / "Y: n" form the desktop serial sampler parses.
type adcSampler struct {
	humidity machine.ADC
	temp     machine.ADC
}

func newADCSampler() *adcSampler {
	machine.InitADC()
	s := &adcSampler{
		humidity: machine.ADC{Pin: pinHumidity},
		temp:     machine.ADC{Pin: pinTemp},
	}
	s.humidity.Configure(machine.ADCConfig{})
	s.temp.Configure(machine.ADCConfig{})
	return s
}

func (s *adcSampler) Sample(ch sensor.Channel) (uint16, error) {
	switch ch {
	case sensor.ChannelHumidity:
		v := s.humidity.Get() >> 4 // 16-bit scaled to the 12-bit converter range
		fmt.Printf("X: %d\n", v)
		return v, nil
	case sensor.ChannelTemperature:
		v := s.temp.Get() >> 4
		fmt.Printf("Y: %d\n", v)
		return v, nil
	}
	return 0, fmt.Errorf("%w: no ADC for %s", sensor.ErrUnavailable, ch)
}

func (s *adcSampler) Close() error { return nil }

// pwmGroup is the subset of the RP2040 PWM slice the pump needs; the
// concrete type in machine is unexported.
type pwmGroup interface {
	Configure(cfg machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// pwmPump drives the pump pin with an 8-bit duty level.
type pwmPump struct {
	pwm     pwmGroup
	channel uint8
}

func newPWMPump() (*pwmPump, error) {
	p := &pwmPump{pwm: machine.PWM6} // GPIO13 is slice 6, channel B
	if err := p.pwm.Configure(machine.PWMConfig{Period: pwmPeriodNs}); err != nil {
		return nil, fmt.Errorf("configure pwm: %w", err)
	}
	ch, err := p.pwm.Channel(pinPump)
	if err != nil {
		return nil, fmt.Errorf("pwm channel: %w", err)
	}
	p.channel = ch
	return p, nil
}

func (p *pwmPump) SetIntensity(level uint8) error {
	p.pwm.Set(p.channel, uint32(level)*p.pwm.Top()/pump.MaxLevel)
	return nil
}

func (p *pwmPump) Close() error {
	p.pwm.Set(p.channel, 0)
	return nil
}

func main() {
	time.Sleep(2 * time.Second) // let the USB console attach

	reader := sensor.NewReader(newADCSampler())

	drv, err := newPWMPump()
	if err != nil {
		log.Fatalf("fatal: init pump: %v", err)
	}
	guard := pump.NewGuard(drv)
	if err := guard.SetIntensity(logic.PumpOffLevel); err != nil {
		log.Printf("pump: initial off write failed: %v", err)
	}

	machine.I2C1.Configure(machine.I2CConfig{
		SDA:       pinSDA,
		SCL:       pinSCL,
		Frequency: 400 * machine.KHz,
	})
	dev := ssd1306.NewI2C(machine.I2C1)
	dev.Configure(ssd1306.Config{
		Width:   display.Width,
		Height:  display.Height,
		Address: panelAddress,
	})
	fb := display.NewFramebuffer(display.NewPanel(dev))

	ctl := irrigation.New(reader, guard, fb, time.Now())

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for now := range ticker.C {
		res, err := ctl.Tick(now)
		if err != nil {
			log.Printf("sensor read error: %v", err)
			continue
		}
		if ev := res.Event(); ev != nil {
			log.Printf("event: %s", ev.Type)
		}
	}
}
