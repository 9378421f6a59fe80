// Package config loads the controller configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Sensor sources.
const (
	SourceSim    = "sim"
	SourceSerial = "serial"
)

// Pump drivers.
const (
	DriverLog  = "log"
	DriverGPIO = "gpio"
)

// Display modes.
const (
	DisplayConsole = "console"
	DisplayNone    = "none"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("config: invalid")

// Config represents the controller configuration.
type Config struct {
	Sensor  SensorConfig  `yaml:"sensor"`
	Pump    PumpConfig    `yaml:"pump"`
	Display DisplayConfig `yaml:"display"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	HTTP    HTTPConfig    `yaml:"http"`
}

// SensorConfig selects where raw samples come from.
type SensorConfig struct {
	Source string `yaml:"source"` // sim or serial
	Port   string `yaml:"port"`   // serial device, e.g. /dev/ttyACM0
	Baud   int    `yaml:"baud"`
	Seed   uint64 `yaml:"seed"` // simulation seed, 0 picks one from the clock
}

// PumpConfig selects the pump driver.
type PumpConfig struct {
	Driver string `yaml:"driver"` // log or gpio
	Chip   string `yaml:"chip"`
	Line   int    `yaml:"line"`
}

// DisplayConfig selects the display backend.
type DisplayConfig struct {
	Mode  string `yaml:"mode"`  // console or none
	Every int    `yaml:"every"` // print every Nth frame to the console
}

// MQTTConfig configures the optional telemetry mirror. An empty broker
// disables it.
type MQTTConfig struct {
	Broker    string        `yaml:"broker"`
	ClientID  string        `yaml:"client_id"`
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// HTTPConfig configures the optional status server. An empty address
// disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Sensor: SensorConfig{
			Source: SourceSim,
			Port:   "/dev/ttyACM0",
			Baud:   115200,
		},
		Pump: PumpConfig{
			Driver: DriverLog,
			Chip:   "gpiochip0",
			Line:   13,
		},
		Display: DisplayConfig{
			Mode:  DisplayConsole,
			Every: 10,
		},
		MQTT: MQTTConfig{
			ClientID:  "irrigation-controller",
			Heartbeat: 15 * time.Minute,
		},
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults; missing fields keep their default values.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks enumerated fields and ranges.
func (c *Config) Validate() error {
	switch c.Sensor.Source {
	case SourceSim:
	case SourceSerial:
		if c.Sensor.Port == "" {
			return fmt.Errorf("%w: sensor.port is required for the serial source", ErrInvalid)
		}
		if c.Sensor.Baud <= 0 {
			return fmt.Errorf("%w: sensor.baud must be positive, got %d", ErrInvalid, c.Sensor.Baud)
		}
	default:
		return fmt.Errorf("%w: unknown sensor.source %q", ErrInvalid, c.Sensor.Source)
	}

	switch c.Pump.Driver {
	case DriverLog:
	case DriverGPIO:
		if c.Pump.Line < 0 {
			return fmt.Errorf("%w: pump.line must not be negative, got %d", ErrInvalid, c.Pump.Line)
		}
	default:
		return fmt.Errorf("%w: unknown pump.driver %q", ErrInvalid, c.Pump.Driver)
	}

	switch c.Display.Mode {
	case DisplayConsole, DisplayNone:
	default:
		return fmt.Errorf("%w: unknown display.mode %q", ErrInvalid, c.Display.Mode)
	}
	if c.Display.Every < 1 {
		return fmt.Errorf("%w: display.every must be at least 1, got %d", ErrInvalid, c.Display.Every)
	}

	if c.MQTT.Heartbeat < 0 {
		return fmt.Errorf("%w: mqtt.heartbeat must not be negative", ErrInvalid)
	}
	return nil
}

// ensureDefaults fills fields a partial file left empty.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Sensor.Source == "" {
		c.Sensor.Source = def.Sensor.Source
	}
	if c.Sensor.Port == "" {
		c.Sensor.Port = def.Sensor.Port
	}
	if c.Sensor.Baud == 0 {
		c.Sensor.Baud = def.Sensor.Baud
	}

	if c.Pump.Driver == "" {
		c.Pump.Driver = def.Pump.Driver
	}
	if c.Pump.Chip == "" {
		c.Pump.Chip = def.Pump.Chip
	}

	if c.Display.Mode == "" {
		c.Display.Mode = def.Display.Mode
	}
	if c.Display.Every == 0 {
		c.Display.Every = def.Display.Every
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
}
