package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/irrigation-controller/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		switch {
		case days > 0:
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		case h > 0:
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		case m > 0:
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"whole": func(v float32) int { return int(v) },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Irrigation Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.alert { color: red; font-weight: bold; }
.normal { color: green; }
.connected { color: green; }
.disconnected { color: #888; }
img.panel { image-rendering: pixelated; width: 256px; height: 128px; background: #000; }
</style>
</head>
<body>
<h1>Irrigation Controller</h1>
{{if .Panel}}<p><img class="panel" src="/display.png" alt="display"></p>{{end}}

<h2>Zone</h2>
<table>
<tr><th>State</th><td id="state" class="{{if eq (printf "%s" .State) "ALERT"}}alert{{else}}normal{{end}}">{{.State}}</td></tr>
<tr><th>Display</th><td>{{if .Status}}{{.Status}}{{else}}-{{end}}</td></tr>
<tr><th>Humidity</th><td>{{whole .Reading.Humidity}} % (raw {{.RawHumidity}})</td></tr>
<tr><th>Temperature</th><td>{{whole .Reading.Temperature}} C (raw {{.RawTemperature}})</td></tr>
<tr><th>Pump</th><td>{{.PumpLevel}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Counters</h2>
<table>
<tr><th>Ticks</th><td>{{.Ticks}}</td></tr>
<tr><th>ALERT ON</th><td>{{.Counts.AlertOn}}</td></tr>
<tr><th>ALERT OFF</th><td>{{.Counts.AlertOff}}</td></tr>
<tr><th>Sensor errors</th><td>{{.Errors.Sensor}}</td></tr>
<tr><th>Pump errors</th><td>{{.Errors.Pump}}</td></tr>
<tr><th>Display errors</th><td>{{.Errors.Display}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .Config.Broker}}{{if .MQTTConnected}}connected{{else}}disconnected{{end}} ({{.Config.Broker}}){{else}}disabled{{end}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Boot</th><td>{{.BootID}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Sensor</th><td>{{.Config.Sensor}}</td></tr>
<tr><th>Pump driver</th><td>{{.Config.Pump}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a>{{if .Panel}} · <a href="/display.png">PNG</a>{{end}}</p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, panel bool) error {
	// Snapshot has Uptime() and Ready() methods but the template needs fields.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Ready  bool
		Panel  bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Ready:    snap.Ready(),
		Panel:    panel,
	}
	return indexTmpl.Execute(w, data)
}
