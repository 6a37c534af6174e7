package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details. Temperatures are tenths.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Ready         bool         `json:"ready"`
	Enabled       bool         `json:"enabled"`
	Mode          string       `json:"mode"`
	AutoMode      string       `json:"auto_mode"`
	HeatMode      string       `json:"heat_mode"`
	HeatSource    string       `json:"heat_source"`
	Phase         string       `json:"phase"`
	State         string       `json:"state"`
	FanRunning    bool         `json:"fan_running"`
	Valve         string       `json:"valve"`
	Indoor        *int         `json:"indoor"`
	Humidity      int          `json:"humidity"`
	Outdoor       int          `json:"outdoor"`
	Target        int          `json:"target"`
	Override      int          `json:"override"`
	RemoteActive  bool         `json:"remote_active"`
	FilterMinutes int          `json:"filter_minutes"`
	Notification  string       `json:"notification"`
	Timers        TimersJSON   `json:"timers"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// TimersJSON exposes the controller counters in seconds.
type TimersJSON struct {
	Cycle    int `json:"cycle"`
	Idle     int `json:"idle"`
	FanOn    int `json:"fan_on"`
	FanPost  int `json:"fan_post"`
	Override int `json:"override"`
	Remote   int `json:"remote"`
	RunTotal int `json:"run_total"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Prefix    string `json:"prefix"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs      int64  `json:"tick_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	WSBroker    string `json:"ws_broker,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	c := snap.Controller
	inner := StatusInner{
		Ready:         snap.Updated,
		Enabled:       c.Enabled,
		Mode:          c.Mode.String(),
		AutoMode:      c.AutoMode.String(),
		HeatMode:      c.HeatMode.String(),
		HeatSource:    c.HeatSource.String(),
		Phase:         c.Phase.String(),
		State:         c.State.String(),
		FanRunning:    c.FanRunning,
		Valve:         c.Orientation.String(),
		Humidity:      c.Humidity,
		Outdoor:       int(c.Outdoor),
		Target:        int(c.Target),
		Override:      int(c.OverrideDelta),
		RemoteActive:  c.RemoteActive,
		FilterMinutes: c.FilterMinutes,
		Notification:  c.Notification.String(),
		Timers: TimersJSON{
			Cycle:    c.Timers.Cycle,
			Idle:     c.Timers.Idle,
			FanOn:    c.Timers.FanOn,
			FanPost:  c.Timers.FanPost,
			Override: c.Timers.Override,
			Remote:   c.Timers.Remote,
			RunTotal: c.Timers.RunTotal,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
			Prefix:    snap.Config.Prefix,
		},
		Config: ConfigJSON{
			TickMs:      snap.Config.TickMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			WSBroker:    snap.Config.WSBroker,
		},
	}
	if c.IndoorKnown {
		v := int(c.Indoor)
		inner.Indoor = &v
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
