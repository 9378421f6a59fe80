// Command irrigation-controller runs the irrigation control loop: it reads
// soil humidity and temperature, latches an alert with hysteresis, drives the
// pump and renders a 128x64 status display every 500 ms.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sweeney/irrigation-controller/internal/config"
	"github.com/sweeney/irrigation-controller/internal/display"
	"github.com/sweeney/irrigation-controller/internal/irrigation"
	"github.com/sweeney/irrigation-controller/internal/logic"
	"github.com/sweeney/irrigation-controller/internal/metrics"
	"github.com/sweeney/irrigation-controller/internal/mqtt"
	"github.com/sweeney/irrigation-controller/internal/pump"
	"github.com/sweeney/irrigation-controller/internal/sensor"
	"github.com/sweeney/irrigation-controller/internal/status"
	"github.com/sweeney/irrigation-controller/internal/web"
)

// tickInterval is the fixed control period.
const tickInterval = 500 * time.Millisecond

// cliFlags holds command-line overrides for the config file.
type cliFlags struct {
	sensor    string
	serial    string
	pump      string
	gpioLine  int
	display   string
	broker    string
	heartbeat time.Duration
	http      string
}

func main() {
	var f cliFlags
	configPath := flag.String("config", "", "YAML config file (missing file uses defaults)")
	flag.StringVar(&f.sensor, "sensor", "", "Sensor source: sim or serial")
	flag.StringVar(&f.serial, "serial", "", "Serial port of the sensor board")
	flag.StringVar(&f.pump, "pump", "", "Pump driver: log or gpio")
	flag.IntVar(&f.gpioLine, "gpio-line", 0, "GPIO line offset of the pump")
	flag.StringVar(&f.display, "display", "", "Display: console or none")
	flag.StringVar(&f.broker, "broker", "", "MQTT broker address (empty disables MQTT)")
	flag.DurationVar(&f.heartbeat, "heartbeat", 0, "Heartbeat interval (0 to disable)")
	flag.StringVar(&f.http, "http", "", "HTTP status address (empty disables HTTP)")
	printState := flag.Bool("print-state", false, "Print current readings and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	set := map[string]bool{}
	flag.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	applyFlags(cfg, f, set)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// applyFlags overrides config fields whose flags were given explicitly.
func applyFlags(cfg *config.Config, f cliFlags, set map[string]bool) {
	if set["sensor"] {
		cfg.Sensor.Source = f.sensor
	}
	if set["serial"] {
		cfg.Sensor.Port = f.serial
	}
	if set["pump"] {
		cfg.Pump.Driver = f.pump
	}
	if set["gpio-line"] {
		cfg.Pump.Line = f.gpioLine
	}
	if set["display"] {
		cfg.Display.Mode = f.display
	}
	if set["broker"] {
		cfg.MQTT.Broker = f.broker
	}
	if set["heartbeat"] {
		cfg.MQTT.Heartbeat = f.heartbeat
	}
	if set["http"] {
		cfg.HTTP.Addr = f.http
	}
}

func run(cfg *config.Config, printState bool) error {
	// Initialize sensors
	sampler, err := newSampler(cfg.Sensor)
	if err != nil {
		return fmt.Errorf("init sensor: %w", err)
	}
	defer sampler.Close()
	reader := sensor.NewReader(sampler)

	// Print state mode
	if printState {
		h, t, err := readOnce(reader)
		if err != nil {
			return fmt.Errorf("read sensors: %w", err)
		}
		hr, tr := reader.Raw()
		fmt.Printf("X: %d, Y: %d, UMID: %d, TEMP: %d C\n", hr, tr, int(h), int(t))
		return nil
	}

	// Initialize pump, off until the first evaluation says otherwise
	driver, err := newDriver(cfg.Pump, sampler)
	if err != nil {
		return fmt.Errorf("init pump: %w", err)
	}
	guard := pump.NewGuard(driver)
	defer guard.Close()
	if err := guard.SetIntensity(logic.PumpOffLevel); err != nil {
		log.Printf("pump: initial off write failed: %v", err)
	}

	// Initialize display
	var sink display.Sink
	if cfg.Display.Mode == config.DisplayConsole {
		sink = display.NewConsole(os.Stdout, cfg.Display.Every)
	}
	fb := display.NewFramebuffer(sink)

	start := time.Now()
	ctl := irrigation.New(reader, guard, fb, start)

	// Initialize metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize MQTT
	var publisher mqtt.Publisher = mqtt.NopPublisher{}
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		rp, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err != nil {
			log.Printf("mqtt: disabled: %v", err)
		} else {
			publisher = rp
			mqttStatus = rp
		}
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	bootID := uuid.NewString()
	tracker := status.NewTracker(start, bootID, status.Config{
		TickMs:      tickInterval.Milliseconds(),
		HeartbeatMs: cfg.MQTT.Heartbeat.Milliseconds(),
		Sensor:      cfg.Sensor.Source,
		Pump:        cfg.Pump.Driver,
		Display:     cfg.Display.Mode,
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
	})
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, fb, m.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: boot=%s sensor=%s pump=%s display=%s tick=%v broker=%q heartbeat=%v",
		bootID, cfg.Sensor.Source, cfg.Pump.Driver, cfg.Display.Mode, tickInterval, cfg.MQTT.Broker, cfg.MQTT.Heartbeat)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	err = runLoop(ctl, guard, publisher, mqttStatus, tracker, m, cfg.MQTT.Heartbeat, time.Now, ticker.C, sigCh)

	// Leave the pump off on exit.
	if err := guard.SetIntensity(logic.PumpOffLevel); err != nil {
		log.Printf("pump: shutdown off write failed: %v", err)
	}
	return err
}

// levelSource reports the last pump level confirmed written.
type levelSource interface {
	Level() (uint8, bool)
}

// breakerSource reports the publish circuit breaker state.
type breakerSource interface {
	BreakerState() float64
}

func runLoop(ctl *irrigation.Controller, pumpLevel levelSource, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, m *metrics.Metrics, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			if res, err := ctl.Tick(t); err != nil {
				// Latch untouched; try again next tick.
				log.Printf("sensor read error: %v", err)
				tracker.RecordSensorError()
				m.SensorError()
			} else {
				recordTick(ctl, res, pumpLevel, publisher, tracker, m)
			}

			// Liveness is reported whether or not the sensors answered.
			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			if b, ok := publisher.(breakerSource); ok {
				m.SetBreakerState(b.BreakerState())
			}

			// Check for heartbeat
			if hb := ctl.Latch().CheckHeartbeat(t, heartbeat); hb != nil {
				log.Printf("heartbeat: uptime=%v alert_on=%d alert_off=%d",
					hb.Uptime, hb.Counts.AlertOn, hb.Counts.AlertOff)
				snap := tracker.Snapshot()
				hbEvent := mqtt.SystemEvent{
					Timestamp:  hb.Timestamp,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
					m.PublishError()
				}
			}
		}
	}
}

// recordTick mirrors a successful tick to the tracker, metrics and broker.
func recordTick(ctl *irrigation.Controller, res irrigation.Result, pumpLevel levelSource, publisher mqtt.Publisher, tracker *status.Tracker, m *metrics.Metrics) {
	level, _ := pumpLevel.Level()
	tracker.RecordTick(res, ctl.Latch().EventCountsSnapshot())
	tracker.SetPumpLevel(level)
	m.ObserveTick(res)
	m.SetPumpLevel(level)

	if event := res.Event(); event != nil {
		log.Printf("event: %s (umid=%d temp=%d pump=%d)",
			event.Type, int(event.Humidity), int(event.Temperature), level)
		if err := publisher.Publish(*event); err != nil {
			log.Printf("publish error: %v", err)
			m.PublishError()
		}
	}

	if err := publisher.PublishTelemetry(telemetry(res, level)); err != nil {
		m.PublishError()
	}
}

func telemetry(res irrigation.Result, level uint8) mqtt.Telemetry {
	return mqtt.Telemetry{
		Timestamp:      res.Timestamp,
		Humidity:       res.Reading.Humidity,
		Temperature:    res.Reading.Temperature,
		RawHumidity:    res.RawHumidity,
		RawTemperature: res.RawTemperature,
		State:          res.Decision.State,
		Status:         res.Decision.Status,
		PumpLevel:      level,
	}
}

func newSampler(cfg config.SensorConfig) (sensor.Sampler, error) {
	switch cfg.Source {
	case config.SourceSerial:
		return sensor.NewSerialSampler(cfg.Port, cfg.Baud)
	default:
		seed := cfg.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		return sensor.NewSimSampler(seed), nil
	}
}

// newDriver builds the pump driver. The log driver feeds the level back into
// a simulated sampler so the soil model responds to irrigation.
func newDriver(cfg config.PumpConfig, sampler sensor.Sampler) (pump.Driver, error) {
	switch cfg.Driver {
	case config.DriverGPIO:
		return pump.NewRealDriver(cfg.Chip, cfg.Line)
	default:
		next, _ := sampler.(pump.Setter)
		return pump.NewLogDriver(next), nil
	}
}

// readOnce reads both sensors, waiting briefly for a sampler that has not
// produced data yet.
func readOnce(r irrigation.SensorReader) (float32, float32, error) {
	var h, t float32
	op := func() error {
		var err error
		if h, err = r.ReadHumidity(); err != nil {
			return err
		}
		t, err = r.ReadTemperature()
		return err
	}
	err := backoff.Retry(op, backoff.WithMaxRetries(backoff.NewConstantBackOff(100*time.Millisecond), 20))
	return h, t, err
}
