// Package metrics exposes controller counters and gauges to Prometheus.
// All methods are no-ops on a nil *Metrics so callers can leave it unset.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/irrigation-controller/internal/irrigation"
	"github.com/sweeney/irrigation-controller/internal/logic"
)

const namespace = "irrigation"

// Metrics holds the controller's Prometheus collectors. A nil *Metrics
// accepts every call and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	ticks         prometheus.Counter
	sensorErrors  prometheus.Counter
	pumpErrors    prometheus.Counter
	displayErrors prometheus.Counter
	publishErrors prometheus.Counter
	transitions   *prometheus.CounterVec

	humidity    prometheus.Gauge
	temperature prometheus.Gauge
	raw         *prometheus.GaugeVec
	pumpLevel   prometheus.Gauge
	alert       prometheus.Gauge
	breaker     prometheus.Gauge
}

// New registers the controller metrics on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Control ticks that completed evaluation.",
		}),
		sensorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_errors_total",
			Help:      "Ticks skipped because a sensor was unavailable.",
		}),
		pumpErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pump_errors_total",
			Help:      "Pump writes that failed after retry.",
		}),
		displayErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "display_errors_total",
			Help:      "Display flushes that failed.",
		}),
		publishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "MQTT publishes that failed or were rejected by the breaker.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Alert latch transitions by type.",
		}, []string{"type"}),
		humidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "humidity_percent",
			Help:      "Last soil humidity reading.",
		}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Last ambient temperature reading.",
		}),
		raw: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "adc_raw",
			Help:      "Last raw ADC sample by channel.",
		}, []string{"channel"}),
		pumpLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pump_level",
			Help:      "Last pump duty level confirmed written (0-255).",
		}),
		alert: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alert",
			Help:      "1 while the alert latch is set.",
		}),
		breaker: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_breaker_state",
			Help:      "MQTT circuit breaker state (0 closed, 1 half-open, 2 open).",
		}),
	}

	reg.MustRegister(
		m.ticks,
		m.sensorErrors,
		m.pumpErrors,
		m.displayErrors,
		m.publishErrors,
		m.transitions,
		m.humidity,
		m.temperature,
		m.raw,
		m.pumpLevel,
		m.alert,
		m.breaker,
	)

	m.transitions.WithLabelValues(string(logic.EventAlertOn))
	m.transitions.WithLabelValues(string(logic.EventAlertOff))

	return m
}

// ObserveTick records the outcome of an evaluated tick.
func (m *Metrics) ObserveTick(res irrigation.Result) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.humidity.Set(float64(res.Reading.Humidity))
	m.temperature.Set(float64(res.Reading.Temperature))
	m.raw.WithLabelValues("humidity").Set(float64(res.RawHumidity))
	m.raw.WithLabelValues("temperature").Set(float64(res.RawTemperature))

	if res.Decision.State == logic.StateAlert {
		m.alert.Set(1)
	} else {
		m.alert.Set(0)
	}
	if res.Decision.Transition != "" {
		m.transitions.WithLabelValues(string(res.Decision.Transition)).Inc()
	}
	if res.PumpErr != nil {
		m.pumpErrors.Inc()
	}
	if res.DisplayErr != nil {
		m.displayErrors.Inc()
	}
}

func (m *Metrics) SensorError() {
	if m == nil {
		return
	}
	m.sensorErrors.Inc()
}

func (m *Metrics) PublishError() {
	if m == nil {
		return
	}
	m.publishErrors.Inc()
}

func (m *Metrics) SetPumpLevel(level uint8) {
	if m == nil {
		return
	}
	m.pumpLevel.Set(float64(level))
}

func (m *Metrics) SetBreakerState(state float64) {
	if m == nil {
		return
	}
	m.breaker.Set(state)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
