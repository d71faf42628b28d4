package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/ikke-t/mopo/internal/status"
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
	"limiterState": func(snap status.Snapshot) string {
		return status.LimiterStateName(snap.Limiter)
	},
	"rate": func(value float64, valid bool, unit string) string {
		if !valid {
			return "—"
		}
		return fmt.Sprintf("%.1f %s", value, unit)
	},
	"km": func(meters float64) string {
		return fmt.Sprintf("%.2f km", meters/1000)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Mopo Limiter</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.allowing { color: green; font-weight: bold; }
.limiting { color: red; font-weight: bold; }
.stale { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Mopo Limiter</h1>

<h2>State</h2>
<table>
<tr><th>Limiter</th><td class="{{if .Limiter.Active}}limiting{{else}}allowing{{end}}">{{limiterState .}}{{if .Limiter.Reason}} ({{.Limiter.Reason}}){{end}}</td></tr>
<tr><th>Speed</th><td{{if not .Speed.Valid}} class="stale"{{end}}>{{rate .Speed.Value .Speed.Valid "km/h"}}</td></tr>
<tr><th>RPM</th><td{{if not .RPM.Valid}} class="stale"{{end}}>{{rate .RPM.Value .RPM.Valid "rpm"}}</td></tr>
<tr><th>Odometer</th><td>{{km .OdometerMeters}}</td></tr>
</table>

<h2>Limits</h2>
<table>
<tr><th>Max speed</th><td>{{printf "%.1f" .Limits.MaxSpeedKmh}} km/h (−{{printf "%.1f" .Limits.SpeedHysteresisKmh}})</td></tr>
<tr><th>Max RPM</th><td>{{printf "%.0f" .Limits.MaxRPM}} (−{{printf "%.0f" .Limits.RPMHysteresis}})</td></tr>
</table>

<h2>Counters</h2>
<table>
<tr><th>Cuts / releases</th><td>{{.Cuts}} / {{.Releases}}</td></tr>
<tr><th>Hall pulses</th><td>{{.SpeedPulses.Accepted}} accepted, {{.SpeedPulses.Rejected}} rejected, {{.SpeedPulses.Degenerate}} degenerate</td></tr>
<tr><th>Spark pulses</th><td>{{.RPMPulses.Accepted}} accepted, {{.RPMPulses.Rejected}} rejected, {{.RPMPulses.Degenerate}} degenerate</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Daemon</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02 15:04:05 MST"}}</td></tr>
<tr><th>Decision tick</th><td>{{.Config.TickMs}} ms</td></tr>
<tr><th>Heartbeat</th><td>{{.Config.HeartbeatMs}} ms</td></tr>
</table>

</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	if err := indexTmpl.Execute(w, snap); err != nil {
		fmt.Fprintf(w, "template error: %v", err)
	}
}
