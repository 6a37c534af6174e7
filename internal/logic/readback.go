package logic

// Status is a point-in-time copy of the controller's observable state.
type Status struct {
	Enabled           bool
	Mode              Mode
	RequestedMode     Mode
	AutoMode          Mode
	HeatMode          HeatMode
	RequestedHeatMode HeatMode
	HeatSource        HeatMode
	Phase             Phase
	State             State
	Running           bool
	FanMode           bool
	FanRunning        bool
	Orientation       Orientation
	Indoor            Tenths
	IndoorKnown       bool
	Outdoor           Tenths
	Humidity          int
	OutdoorShort      Band
	OutdoorLong       Band
	Target            Tenths
	OverrideDelta     Tenths
	RemoteActive      bool
	RemoteTimeout     int
	Timers            Timers
	FilterMinutes     int
	Notification      Notification
}

// Status returns a snapshot of the controller state.
func (c *Controller) Status() Status {
	return Status{
		Enabled:           c.enabled,
		Mode:              c.cfg.Mode,
		RequestedMode:     c.requestedMode,
		AutoMode:          c.autoMode,
		HeatMode:          c.cfg.HeatMode,
		RequestedHeatMode: c.requestedHeatMode,
		HeatSource:        c.HeatSource(),
		Phase:             c.phase,
		State:             c.State(),
		Running:           c.running(),
		FanMode:           c.fanMode,
		FanRunning:        c.FanRunning(),
		Orientation:       c.out.ReversingValve(),
		Indoor:            c.indoor,
		IndoorKnown:       c.indoorKnown,
		Outdoor:           c.outdoor,
		Humidity:          c.humidity,
		OutdoorShort:      c.shortBand,
		OutdoorLong:       c.longBand,
		Target:            c.target,
		OverrideDelta:     c.overrideDelta,
		RemoteActive:      c.timers.Remote > 0,
		RemoteTimeout:     c.remoteTimeout,
		Timers:            c.timers,
		FilterMinutes:     c.cfg.FilterMinutes,
		Notification:      c.notification,
	}
}

// Config returns a copy of the configuration, including the filter counter,
// for persistence.
func (c *Controller) Config() Config {
	return c.cfg
}

// Mode returns the committed operating mode.
func (c *Controller) Mode() Mode {
	return c.cfg.Mode
}

// AutoMode returns the resolved auto choice, ModeOff until first resolved.
func (c *Controller) AutoMode() Mode {
	return c.autoMode
}

// HeatSource returns the effective heat source.
func (c *Controller) HeatSource() HeatMode {
	if c.cfg.HeatMode == HeatAuto {
		return c.autoSource
	}
	return c.cfg.HeatMode
}

// Running reports whether heating or cooling output is asserted.
func (c *Controller) Running() bool {
	return c.running()
}

// FanRunning reports airflow: equipment running, the blower on, or the
// furnace running its own blower.
func (c *Controller) FanRunning() bool {
	return c.running() || c.fanOn || c.timers.FurnaceFan > 0
}

// Target returns the cached target temperature.
func (c *Controller) Target() Tenths {
	return c.target
}

// State reports what the equipment is doing.
func (c *Controller) State() State {
	if !c.running() {
		return StateIdle
	}
	switch {
	case c.cycleMode == ModeCool:
		return StateCool
	case c.cycleSource == HeatGas:
		return StateGas
	}
	return StateHeat
}

// Notification returns the last raised notification.
func (c *Controller) Notification() Notification {
	return c.notification
}

// CheckFilterDue reports whether the filter has seen 200 hours of airflow.
func (c *Controller) CheckFilterDue() bool {
	return c.cfg.FilterMinutes >= FilterDueMinutes
}

// RemoteActive reports whether a remote temperature heartbeat is live.
func (c *Controller) RemoteActive() bool {
	return c.timers.Remote > 0
}

// StateChanged reports whether mode, state or airflow differ from the last
// call, for throttling display refreshes.
func (c *Controller) StateChanged() bool {
	cur := observation{mode: c.cfg.Mode, state: c.State(), fan: c.FanRunning()}
	if cur == c.observed {
		return false
	}
	c.observed = cur
	return true
}
