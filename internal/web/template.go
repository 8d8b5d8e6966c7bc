package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/relay-timer/internal/logic"
	"github.com/sweeney/relay-timer/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Relay Timer</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: red; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.swatch { display: inline-block; width: 12px; height: 12px; border: 1px solid #888; vertical-align: middle; margin-right: 6px; }
</style>
</head>
<body>
<h1>Relay Timer</h1>

<h2>State</h2>
<table>
<tr><th>Delay</th><td id="delay">{{.Delay}}</td></tr>
<tr><th>Relay</th><td id="relay" class="{{if .RelayActive}}on{{else}}off{{end}}">{{if .RelayActive}}ACTIVE{{else}}idle{{end}}</td></tr>
<tr><th>Indicator</th><td><span class="swatch" style="background: {{.Color}}"></span>{{.Color}}</td></tr>
<tr><th>Last outcome</th><td>{{if .LastOutcome}}{{.LastOutcome}}{{else}}none{{end}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>Counts</h2>
<table>
<tr><th>Completed</th><td>{{.Counts.Completed}}</td></tr>
<tr><th>Cancelled</th><td>{{.Counts.Cancelled}}</td></tr>
<tr><th>Relay faults</th><td>{{.Counts.RelayFaults}}</td></tr>
<tr><th>Accepted</th><td>{{.Counts.Accepted}}</td></tr>
<tr><th>Out of range</th><td>{{.Counts.Rejected}}</td></tr>
<tr><th>Store failures</th><td>{{.Counts.StoreFailures}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Profile</th><td>{{.Config.Profile}}</td></tr>
<tr><th>Range</th><td>{{.Config.MinMillis}}ms to {{.Config.MaxMillis}}ms, step {{.Config.StepMillis}}ms</td></tr>
<tr><th>Wiggle</th><td>{{.Config.WiggleMicro}}µs</td></tr>
<tr><th>Inputs</th><td>{{if .Config.ActiveLow}}active low{{else}}active high{{end}}</td></tr>
<tr><th>Store</th><td>{{.Config.Store}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has an Uptime method but the template needs plain fields.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Delay  string
		Color  string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Delay:    logic.FormatDelay(snap.DelayMillis),
		Color:    snap.Indicator.Hex(),
	}
	return indexTmpl.Execute(w, data)
}
