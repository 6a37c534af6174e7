package logic

// Remote temperature and override limits.
const (
	RemoteTempMin   Tenths = 650
	RemoteTempMax   Tenths = 880
	OverrideMax     Tenths = 90
	RemoteTimeoutLo        = 1
	RemoteTimeoutHi        = 60 * 5
)

const (
	modeChangeIdleSlack = 30
	modeChangeIdleLead  = 10
)

// UpdateIndoorTemp records a local sensor sample. The temperature is ignored
// while a remote temperature heartbeat is active; humidity always applies.
// A zero temperature means the sensor has no reading yet.
func (c *Controller) UpdateIndoorTemp(temp Tenths, rh int) {
	if c.timers.Remote == 0 {
		c.indoor = temp
		c.indoorKnown = temp != 0
	}
	c.humidity = rh
}

// UpdateOutdoorTemp records the current outdoor temperature.
func (c *Controller) UpdateOutdoorTemp(temp Tenths) {
	c.outdoor = temp
}

// UpdatePeaks records the forecast min/max for the next 24 hours. The previous
// short-term band moves into the long-term history; the first update seeds
// both.
func (c *Controller) UpdatePeaks(lo, hi Tenths) {
	if c.longBand.Known {
		c.longBand = c.shortBand
	} else {
		c.longBand = Band{Min: lo, Max: hi, Known: true}
	}
	c.shortBand = Band{Min: lo, Max: hi, Known: true}
}

// SetMode requests a new operating mode. It is committed by Tick once the
// equipment has been idle for ModeDebounce seconds. When idle, the idle timer
// is advanced to modeChangeIdleLead seconds short of IdleMin so the new mode
// acts soon without skipping the idle guard.
func (c *Controller) SetMode(m Mode) {
	c.requestedMode = m & 3
	if c.phase == PhaseIdle && c.timers.Idle < c.cfg.IdleMin-modeChangeIdleSlack {
		c.timers.Idle = c.cfg.IdleMin - modeChangeIdleLead
	}
}

// SetHeatMode requests a new heat source, committed like SetMode.
func (c *Controller) SetHeatMode(h HeatMode) {
	c.requestedHeatMode = h % 3
}

// SetFan switches manual blower mode. Outside a cycle the blower follows
// immediately; during one it keeps running and the change applies at stop.
func (c *Controller) SetFan(on bool) {
	if on == c.fanMode {
		return
	}
	c.fanMode = on
	if c.phase == PhaseIdle {
		c.fanSwitch(on)
	}
}

// SetTemp edits the low or high setpoint of mode, clamped to the valid range.
// Auto edits the pair of the currently resolved auto mode. Editing one pair
// pushes the other to keep AutoGap between cool low and heat high.
func (c *Controller) SetTemp(mode Mode, v Tenths, b Bound) {
	if mode == ModeAuto {
		mode = c.autoMode
	}
	switch mode {
	case ModeCool:
		c.cfg.setCool(v, b)
	case ModeHeat:
		c.cfg.setHeat(v, b)
	default:
		return
	}
	c.refreshTarget()
}

// SetOverride nudges the target by delta for Config.OverrideDuration seconds.
// Zero cancels an active override.
func (c *Controller) SetOverride(delta Tenths) {
	if delta == 0 {
		c.overrideDelta = 0
		c.timers.Override = 0
	} else {
		c.overrideDelta = clamp(delta, -OverrideMax, OverrideMax)
		c.timers.Override = c.cfg.OverrideDuration
	}
	c.recheck = true
	c.refreshTarget()
}

// SetRemoteTemp supplies the indoor temperature from a remote sensor and arms
// the heartbeat. A value <= 0 cancels the remote source.
func (c *Controller) SetRemoteTemp(v Tenths) {
	if v <= 0 {
		c.timers.Remote = 0
		return
	}
	c.indoor = clamp(v, RemoteTempMin, RemoteTempMax)
	c.indoorKnown = true
	c.timers.Remote = c.remoteTimeout
}

// SetRemoteTimeout sets the remote temperature heartbeat lifetime in seconds.
func (c *Controller) SetRemoteTimeout(secs int) {
	c.remoteTimeout = clamp(secs, RemoteTimeoutLo, RemoteTimeoutHi)
}

// SetConfig replaces the configuration, for example after loading it from
// storage. Values are clamped and pending mode requests reset to the loaded
// modes.
func (c *Controller) SetConfig(cfg Config) {
	c.cfg = cfg.Clamped()
	c.requestedMode = c.cfg.Mode
	c.requestedHeatMode = c.cfg.HeatMode
	c.refreshTarget()
}

// Recheck forces the next decision pass to re-evaluate outside the minute
// boundary.
func (c *Controller) Recheck() {
	c.recheck = true
}

// ResetFilter clears the filter runtime and a pending filter notification.
func (c *Controller) ResetFilter() {
	c.cfg.FilterMinutes = 0
	c.timers.FilterSeconds = 0
	if c.notification == NoteFilterDue {
		c.notification = NoteNone
	}
}

// ResetTotal clears the accumulated run time.
func (c *Controller) ResetTotal() {
	c.timers.RunTotal = 0
}

// ClearNotification acknowledges the last notification.
func (c *Controller) ClearNotification() {
	c.notification = NoteNone
}

// Enable allows the decision pass to start equipment and asks for an
// immediate re-evaluation.
func (c *Controller) Enable() {
	c.enabled = true
	c.recheck = true
	if c.fanMode && c.phase == PhaseIdle {
		c.fanSwitch(true)
	}
}

// Disable is the fail-safe: every output is de-asserted at once and the
// sequencer returns to idle. Calling it again changes nothing.
func (c *Controller) Disable() {
	c.out.SetGasHeat(false)
	c.out.SetCompressor(false)
	c.fanSwitch(false)
	if c.running() {
		c.timers.Idle = 0
	}
	c.phase = PhaseIdle
	c.stopReason = StopNone
	c.timers.Settle = 0
	c.timers.FanPost = 0
	c.enabled = false
}
