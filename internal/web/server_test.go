package web

import (
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/irrigation-controller/internal/display"
	"github.com/sweeney/irrigation-controller/internal/irrigation"
	"github.com/sweeney/irrigation-controller/internal/logic"
	"github.com/sweeney/irrigation-controller/internal/metrics"
	"github.com/sweeney/irrigation-controller/internal/status"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTracker() *status.Tracker {
	return status.NewTracker(start, "boot-1", status.Config{
		TickMs:      500,
		HeartbeatMs: 900000,
		Sensor:      "sim",
		Pump:        "log",
		Display:     "console",
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":8080",
	})
}

func newTestServer(t *testing.T, frames FrameSource, m http.Handler) (*httptest.Server, *status.Tracker) {
	t.Helper()
	tr := newTracker()
	srv := New(":0", tr, frames, m)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t, nil, nil)
	tr.RecordTick(irrigation.Result{
		Timestamp:   start.Add(time.Second),
		Reading:     logic.Reading{Humidity: 45, Temperature: 30},
		RawHumidity: 1843,
		Decision:    logic.Decision{State: logic.StateAlert, Status: logic.StatusAlert, Transition: logic.EventAlertOn},
	}, logic.EventCounts{AlertOn: 1})
	tr.SetPumpLevel(20)
	tr.SetMQTTConnected(true)

	sj := getJSON(t, ts.URL+"/index.json")

	if sj.Status.State != "ALERT" {
		t.Errorf("State: got %q, want ALERT", sj.Status.State)
	}
	if sj.Status.Line != "ALERTA" {
		t.Errorf("Line: got %q, want ALERTA", sj.Status.Line)
	}
	if sj.Status.Humidity != 45 || sj.Status.Temperature != 30 {
		t.Errorf("reading: got %v/%v", sj.Status.Humidity, sj.Status.Temperature)
	}
	if sj.Status.PumpLevel != 20 {
		t.Errorf("PumpLevel: got %d, want 20", sj.Status.PumpLevel)
	}
	if !sj.Status.Ready {
		t.Error("expected Ready=true")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Counts.AlertOn != 1 {
		t.Errorf("Counts.AlertOn: got %d, want 1", sj.Status.Counts.AlertOn)
	}
	if sj.Status.Config == nil || sj.Status.Config.TickMs != 500 {
		t.Errorf("Config: got %+v", sj.Status.Config)
	}
}

func TestJSONBeforeFirstTick(t *testing.T) {
	ts, _ := newTestServer(t, nil, nil)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Ready {
		t.Error("expected Ready=false before the first tick")
	}
	if sj.Status.State != "NORMAL" {
		t.Errorf("State: got %q, want NORMAL", sj.Status.State)
	}
}

func TestHTMLEndpoints(t *testing.T) {
	ts, tr := newTestServer(t, nil, nil)
	tr.RecordTick(irrigation.Result{
		Reading:  logic.Reading{Humidity: 70.9, Temperature: 25},
		Decision: logic.Decision{State: logic.StateNormal, Status: logic.StatusAdequate},
	}, logic.EventCounts{})

	for _, path := range []string{"/", "/index.html"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + path)
			if err != nil {
				t.Fatalf("GET %s: %v", path, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != 200 {
				t.Errorf("status: got %d, want 200", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type: got %q, want text/html", ct)
			}
			body, _ := io.ReadAll(resp.Body)
			for _, want := range []string{"NORMAL", "adequado", "70 %", "boot-1"} {
				if !strings.Contains(string(body), want) {
					t.Errorf("body missing %q", want)
				}
			}
			if strings.Contains(string(body), "/display.png") {
				t.Error("panel image linked without a frame source")
			}
		})
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t, nil, nil)

	for _, path := range []string{"/nonexistent", "/display.png", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != 404 {
			t.Errorf("%s: got %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, nil, nil)

	resp, err := http.Post(ts.URL+"/index.json", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
}

func TestDisplayPNG(t *testing.T) {
	fb := display.NewFramebuffer(nil)
	if err := display.Render(fb, logic.Reading{Humidity: 20, Temperature: 25}, logic.StatusAlert); err != nil {
		t.Fatalf("render: %v", err)
	}
	ts, _ := newTestServer(t, fb, nil)

	resp, err := http.Get(ts.URL + "/display.png")
	if err != nil {
		t.Fatalf("GET /display.png: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type: got %q, want image/png", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decode PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != display.Width || b.Dy() != display.Height {
		t.Errorf("bounds: got %v", b)
	}
}

type brokenFrames struct{}

func (brokenFrames) WritePNG(io.Writer) error { return errors.New("encode failed") }

func TestDisplayPNGError(t *testing.T) {
	ts, _ := newTestServer(t, brokenFrames{}, nil)

	resp, err := http.Get(ts.URL + "/display.png")
	if err != nil {
		t.Fatalf("GET /display.png: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.SetPumpLevel(20)
	ts, _ := newTestServer(t, nil, m.Handler())

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "irrigation_pump_level 20") {
		t.Errorf("metrics body missing pump level:\n%s", body)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t, nil, nil)

	tr.RecordTick(irrigation.Result{
		Reading:  logic.Reading{Humidity: 10},
		Decision: logic.Decision{State: logic.StateAlert, Status: logic.StatusAlert},
	}, logic.EventCounts{AlertOn: 1})
	if sj := getJSON(t, ts.URL+"/index.json"); sj.Status.State != "ALERT" {
		t.Fatalf("State: got %q, want ALERT", sj.Status.State)
	}

	tr.RecordTick(irrigation.Result{
		Reading:  logic.Reading{Humidity: 65},
		Decision: logic.Decision{State: logic.StateNormal, Status: logic.StatusAdequate, Transition: logic.EventAlertOff},
	}, logic.EventCounts{AlertOn: 1, AlertOff: 1})

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.State != "NORMAL" || sj.Status.Counts.AlertOff != 1 || sj.Status.Ticks != 2 {
		t.Errorf("after exit: %+v", sj.Status)
	}
}
