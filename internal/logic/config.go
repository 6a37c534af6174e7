package logic

// ConfigVersion tags the persisted Config layout. Bump it when fields change
// meaning so stale files are rejected instead of misread.
const ConfigVersion = 3

// Setpoint limits and the auto-mode separation between cool low and heat high.
const (
	CoolMin Tenths = 650
	CoolMax Tenths = 880
	HeatMin Tenths = 630
	HeatMax Tenths = 860
	AutoGap Tenths = 20
)

// Config holds the operator-tunable parameters and persisted counters.
// Durations are in seconds.
type Config struct {
	Version          int       `yaml:"version"`
	CycleMin         int       `yaml:"cycle_min"`
	CycleMax         int       `yaml:"cycle_max"`
	IdleMin          int       `yaml:"idle_min"`
	CycleThresh      Tenths    `yaml:"cycle_thresh"`
	Cool             Setpoints `yaml:"cool"`
	Heat             Setpoints `yaml:"heat"`
	EHeatThresh      int       `yaml:"eheat_thresh"` // whole degrees
	FanPostDelay     [2]int    `yaml:"fan_post_delay,flow"`
	OverrideDuration int       `yaml:"override_duration"`
	Mode             Mode      `yaml:"mode"`
	HeatMode         HeatMode  `yaml:"heat_mode"`
	FilterMinutes    int       `yaml:"filter_minutes"`
}

// DefaultConfig returns factory defaults.
func DefaultConfig() Config {
	return Config{
		Version:          ConfigVersion,
		CycleMin:         60,
		CycleMax:         60 * 15,
		IdleMin:          60 * 5,
		CycleThresh:      17,
		Cool:             Setpoints{Low: 790, High: 820},
		Heat:             Setpoints{Low: 700, High: 740},
		EHeatThresh:      30,
		FanPostDelay:     [2]int{OrientationCool: 60, OrientationHeat: 120},
		OverrideDuration: 60 * 10,
		Mode:             ModeOff,
		HeatMode:         HeatPump,
	}
}

// Clamped returns a copy with every field forced into its valid range and the
// cross-field invariants restored.
func (c Config) Clamped() Config {
	out := c
	out.Version = ConfigVersion
	out.CycleMax = clamp(c.CycleMax, 60*2, 60*60)
	out.CycleMin = clamp(c.CycleMin, 60, min(60*20, out.CycleMax-1))
	out.IdleMin = clamp(c.IdleMin, 60, 60*30)
	out.CycleThresh = clamp(c.CycleThresh, 5, 50)
	out.EHeatThresh = clamp(c.EHeatThresh, 5, 50)
	out.OverrideDuration = clamp(c.OverrideDuration, 60, 60*60*5)
	for i := range out.FanPostDelay {
		out.FanPostDelay[i] = clamp(c.FanPostDelay[i], 0, 60*5)
	}
	out.Mode = c.Mode & 3
	out.HeatMode = c.HeatMode % 3
	out.FilterMinutes = max(c.FilterMinutes, 0)

	out.Heat.Low = clamp(c.Heat.Low, HeatMin, HeatMax)
	out.Heat.High = clamp(max(c.Heat.High, out.Heat.Low), HeatMin, HeatMax)
	out.Cool.High = clamp(c.Cool.High, CoolMin, CoolMax)
	out.setCool(c.Cool.Low, BoundLow)
	return out
}

// Setpoints returns the pair for cool or heat.
func (c Config) Setpoints(m Mode) (Setpoints, bool) {
	switch m {
	case ModeCool:
		return c.Cool, true
	case ModeHeat:
		return c.Heat, true
	}
	return Setpoints{}, false
}

// setCool edits one end of the cool pair, keeps low <= high, and pulls the
// heat pair down so heat high stays AutoGap below cool low.
func (c *Config) setCool(v Tenths, b Bound) {
	v = clamp(v, CoolMin, CoolMax)
	if b == BoundHigh {
		c.Cool.High = v
		c.Cool.Low = min(c.Cool.Low, v)
	} else {
		c.Cool.Low = v
		c.Cool.High = max(c.Cool.High, v)
	}
	span := c.Heat.High - c.Heat.Low
	c.Heat.High = min(c.Cool.Low-AutoGap, c.Heat.High)
	c.Heat.Low = max(c.Heat.High-span, HeatMin)
}

// setHeat mirrors setCool, pushing the cool pair up.
func (c *Config) setHeat(v Tenths, b Bound) {
	v = clamp(v, HeatMin, HeatMax)
	if b == BoundHigh {
		c.Heat.High = v
		c.Heat.Low = min(c.Heat.Low, v)
	} else {
		c.Heat.Low = v
		c.Heat.High = max(c.Heat.High, v)
	}
	span := c.Cool.High - c.Cool.Low
	c.Cool.Low = max(c.Heat.High+AutoGap, c.Cool.Low)
	c.Cool.High = min(c.Cool.Low+span, CoolMax)
}

func clamp[T ~int](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
