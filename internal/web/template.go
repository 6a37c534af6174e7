package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/hvac-controller/internal/logic"
	"github.com/sweeney/hvac-controller/internal/status"
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
	"stateClass": func(s logic.State) string {
		switch s {
		case logic.StateCool:
			return "cool"
		case logic.StateHeat, logic.StateGas:
			return "heat"
		}
		return "off"
	},
	"duration": func(sec int) string {
		return (time.Duration(sec) * time.Second).String()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>HVAC Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.cool { color: #0366d6; font-weight: bold; }
.heat { color: #d73a49; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
{{with .Controller}}
<h1>HVAC Controller<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>State</h2>
<table>
<tr><th>Equipment</th><td id="state" class="{{stateClass .State}}">{{.State}}</td></tr>
<tr><th>Mode</th><td>{{.Mode}}{{if eq .Mode.String "auto"}} ({{.AutoMode}}){{end}}{{if not .Enabled}} [disabled]{{end}}</td></tr>
<tr><th>Heat source</th><td>{{.HeatSource}} ({{.HeatMode}})</td></tr>
<tr><th>Fan</th><td id="fan">{{if .FanRunning}}running{{else}}off{{end}}{{if .FanMode}} [on]{{end}}</td></tr>
<tr><th>Indoor</th><td id="indoor">{{if .IndoorKnown}}{{.Indoor}}{{else}}unknown{{end}}{{if .RemoteActive}} [remote]{{end}}</td></tr>
<tr><th>Humidity</th><td id="rh">{{.Humidity}}%</td></tr>
<tr><th>Target</th><td id="target">{{.Target}}{{if .OverrideDelta}} (override {{.OverrideDelta}}){{end}}</td></tr>
<tr><th>Outdoor</th><td id="outdoor">{{.Outdoor}}{{if .OutdoorLong.Known}} ({{.OutdoorLong.Min}} .. {{.OutdoorLong.Max}}){{end}}</td></tr>
<tr><th>Cycle</th><td id="cycle">{{duration .Timers.Cycle}}</td></tr>
<tr><th>Run total</th><td id="total">{{duration .Timers.RunTotal}}</td></tr>
<tr><th>Filter</th><td id="filter">{{.FilterMinutes}} min{{if eq .Notification.String "filter_due"}} (due){{end}}</td></tr>
</table>
{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Config.WSBroker}}<tr><th>WS broker</th><td>{{.Config.WSBroker}}</td></tr>{{end}}
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/settings.json">settings</a> | <a href="/history">history</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var names = ["IDLE", "COOL", "HEAT", "GAS"];
  var classes = ["off", "cool", "heat", "heat"];

  function deg(v) { return (v / 10).toFixed(1); }
  function dur(s) {
    var h = Math.floor(s / 3600), m = Math.floor(s % 3600 / 60);
    return (h ? h + "h" : "") + m + "m" + (s % 60) + "s";
  }
  function set(id, text) {
    var el = document.getElementById(id);
    if (el) { el.textContent = text; }
  }
  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var d = JSON.parse(ev.data);
        var st = document.getElementById("state");
        st.textContent = names[d.s] || "?";
        st.className = classes[d.s] || "off";
        set("fan", d.fr ? "running" : "off");
        set("indoor", deg(d.it));
        set("rh", d.rh + "%");
        set("target", deg(d.tt));
        set("outdoor", deg(d.ot) + " (" + deg(d.ol) + " .. " + deg(d.oh) + ")");
        set("cycle", dur(d.ct));
        set("total", dur(d.rt));
        set("filter", d.fm + " min");
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
