package status

import (
	"encoding/json"

	"github.com/sweeney/hvac-controller/internal/logic"
)

// PushData is the compact document refreshed on displays. Field names and
// numeric encodings follow the display protocol; flags are 0 or 1.
type PushData struct {
	Running       int `json:"r"`
	FanRunning    int `json:"fr"`
	State         int `json:"s"`
	Indoor        int `json:"it"`
	Humidity      int `json:"rh"`
	Target        int `json:"tt"`
	FilterMinutes int `json:"fm"`
	Outdoor       int `json:"ot"`
	OutdoorLow    int `json:"ol"`
	OutdoorHigh   int `json:"oh"`
	CycleTimer    int `json:"ct"`
	FanTimer      int `json:"ft"`
	RunTotal      int `json:"rt"`
}

// SettingsData is the compact settings document.
type SettingsData struct {
	Mode         int `json:"m"`
	AutoMode     int `json:"am"`
	HeatMode     int `json:"hm"`
	FanMode      int `json:"fm"`
	Override     int `json:"ot"`
	EHeatThresh  int `json:"ht"`
	CoolLow      int `json:"c0"`
	CoolHigh     int `json:"c1"`
	HeatLow      int `json:"h0"`
	HeatHigh     int `json:"h1"`
	IdleMin      int `json:"im"`
	CycleMin     int `json:"cn"`
	CycleMax     int `json:"cx"`
	CycleThresh  int `json:"ct"`
	FanPostDelay int `json:"fd"` // for the current valve orientation
	OverrideTime int `json:"ov"`
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// NewPushData shapes the controller read-back. The outdoor range is the
// older forecast band.
func NewPushData(st logic.Status) PushData {
	return PushData{
		Running:       b2i(st.Running),
		FanRunning:    b2i(st.FanRunning),
		State:         int(st.State),
		Indoor:        int(st.Indoor),
		Humidity:      st.Humidity,
		Target:        int(st.Target),
		FilterMinutes: st.FilterMinutes,
		Outdoor:       int(st.Outdoor),
		OutdoorLow:    int(st.OutdoorLong.Min),
		OutdoorHigh:   int(st.OutdoorLong.Max),
		CycleTimer:    st.Timers.Cycle,
		FanTimer:      st.Timers.FanOn,
		RunTotal:      st.Timers.RunTotal,
	}
}

// NewSettingsData shapes the configuration together with the live fan and
// override state.
func NewSettingsData(st logic.Status, cfg logic.Config) SettingsData {
	return SettingsData{
		Mode:         int(cfg.Mode),
		AutoMode:     int(st.AutoMode),
		HeatMode:     int(cfg.HeatMode),
		FanMode:      b2i(st.FanMode),
		Override:     int(st.OverrideDelta),
		EHeatThresh:  cfg.EHeatThresh,
		CoolLow:      int(cfg.Cool.Low),
		CoolHigh:     int(cfg.Cool.High),
		HeatLow:      int(cfg.Heat.Low),
		HeatHigh:     int(cfg.Heat.High),
		IdleMin:      cfg.IdleMin,
		CycleMin:     cfg.CycleMin,
		CycleMax:     cfg.CycleMax,
		CycleThresh:  int(cfg.CycleThresh),
		FanPostDelay: cfg.FanPostDelay[st.Orientation],
		OverrideTime: cfg.OverrideDuration,
	}
}

// FormatPushData returns the push data JSON.
func FormatPushData(st logic.Status) []byte {
	data, _ := json.Marshal(NewPushData(st))
	return data
}

// FormatSettings returns the settings JSON.
func FormatSettings(st logic.Status, cfg logic.Config) []byte {
	data, _ := json.Marshal(NewSettingsData(st, cfg))
	return data
}
