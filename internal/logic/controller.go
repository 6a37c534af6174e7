package logic

import "time"

const (
	// LockoutSeconds blocks every start/stop decision after a start.
	LockoutSeconds = 20
	// ModeDebounce is the idle time before a requested mode is committed.
	ModeDebounce = 5
	// SettleSeconds holds the compressor off after the reversing valve flips.
	SettleSeconds = 3
	// FurnaceFanDelay models the furnace's own blower run-on after gas heat.
	FurnaceFanDelay = 120
	// FilterDueMinutes is 200 hours of airflow.
	FilterDueMinutes = 60 * 200
	// DefaultRemoteTimeout is the remote temperature heartbeat lifetime.
	DefaultRemoteTimeout = 60 * 5

	// startupIdle credits idle time at power-up so a restart after an outage
	// still waits before the first start.
	startupIdle = 60 * 3
)

// Controller is the equipment sequencer. It is not safe for concurrent use:
// Tick and every setter must be serialized by the caller.
type Controller struct {
	cfg Config
	out Outputs
	now func() time.Time

	enabled     bool
	indoor      Tenths
	indoorKnown bool
	outdoor     Tenths
	humidity    int
	shortBand   Band
	longBand    Band

	target        Tenths
	overrideDelta Tenths
	remoteTimeout int

	timers     Timers
	phase      Phase
	stopReason StopReason

	fanMode bool // manual blower
	fanOn   bool // blower output asserted

	requestedMode     Mode
	requestedHeatMode HeatMode
	autoMode          Mode // ModeOff until auto mode first resolves
	autoSource        HeatMode
	cycleMode         Mode
	cycleSource       HeatMode

	recheck      bool
	notification Notification
	observed     observation
	events       []Event
}

type observation struct {
	mode  Mode
	state State
	fan   bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the wall clock used for minute-boundary re-evaluation.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// New creates a disabled controller with all outputs off.
func New(cfg Config, out Outputs, opts ...Option) *Controller {
	c := &Controller{
		out:           out,
		now:           time.Now,
		remoteTimeout: DefaultRemoteTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.timers.Idle = startupIdle

	out.SetGasHeat(false)
	out.SetCompressor(false)
	out.SetFan(false)
	out.SetReversingValve(OrientationHeat)

	c.SetConfig(cfg)
	return c
}

// Tick advances the controller by one second. It returns the transitions it
// performed, in order.
func (c *Controller) Tick() []Event {
	c.events = nil

	c.advanceAirflow()
	if countdown(&c.timers.FanPost) && !c.running() && !c.fanMode {
		c.fanSwitch(false)
	}
	countdown(&c.timers.Remote)
	if countdown(&c.timers.Override) {
		c.overrideDelta = 0
		c.refreshTarget()
		c.emit(Event{Type: EventOverrideExpired})
	}

	if c.running() {
		c.timers.RunTotal++
		c.timers.Cycle++
		if c.timers.Cycle < LockoutSeconds {
			return c.events
		}
		if c.timers.Cycle >= c.cfg.CycleMax {
			c.notification = NoteCycleLimit
			c.requestStop(StopCycleLimit)
		}
	} else {
		c.timers.Idle++
	}

	if c.modeChangePending() {
		if c.running() && c.cycleSatisfied() {
			c.requestStop(StopModeChange)
		}
		if !c.running() && c.timers.Idle >= ModeDebounce {
			c.commitMode()
		}
	}

	switch c.phase {
	case PhaseStarting:
		mode, source := c.effectiveMode(), c.HeatSource()
		c.start(mode, source)
	case PhaseStopping:
		c.stop()
	}

	c.decide()
	return c.events
}

func (c *Controller) advanceAirflow() {
	if !c.fanOn && !c.running() && c.timers.FurnaceFan == 0 {
		return
	}
	c.timers.FilterSeconds++
	if c.timers.FilterSeconds >= 60 {
		c.timers.FilterSeconds -= 60
		c.cfg.FilterMinutes++
		if c.cfg.FilterMinutes == FilterDueMinutes {
			c.notification = NoteFilterDue
			c.emit(Event{Type: EventFilterDue})
		}
	}
	saturatingInc(&c.timers.FanOn, fanOnTimerMax)
	countdown(&c.timers.FurnaceFan)
}

func (c *Controller) modeChangePending() bool {
	return c.requestedMode != c.cfg.Mode || c.requestedHeatMode != c.cfg.HeatMode
}

func (c *Controller) commitMode() {
	if c.phase == PhaseStarting {
		c.abortStart()
	}
	c.cfg.Mode = c.requestedMode
	c.cfg.HeatMode = c.requestedHeatMode
	c.refreshTarget()
	c.emit(Event{Type: EventModeChange, Mode: c.cfg.Mode, Source: c.cfg.HeatMode})
}

// start carries out a pending start. When the reversing valve must flip, the
// blower runs and the compressor waits SettleSeconds ticks.
func (c *Controller) start(mode Mode, source HeatMode) {
	if c.timers.Settle > 0 {
		if countdown(&c.timers.Settle) {
			c.engage()
		}
		return
	}

	want := OrientationCool
	switch {
	case mode == ModeCool:
	case mode == ModeHeat && source == HeatGas:
		c.cycleMode, c.cycleSource = mode, source
		c.engage()
		return
	case mode == ModeHeat:
		want = OrientationHeat
	default:
		c.phase = PhaseIdle
		return
	}

	c.cycleMode, c.cycleSource = mode, source
	c.timers.FanPost = 0
	c.fanSwitch(true)
	if c.out.ReversingValve() != want {
		c.out.SetReversingValve(want)
		c.timers.Settle = SettleSeconds
		return
	}
	c.engage()
}

func (c *Controller) engage() {
	if c.cycleMode == ModeHeat && c.cycleSource == HeatGas {
		c.out.SetGasHeat(true)
	} else {
		c.out.SetCompressor(true)
	}
	c.phase = PhaseRunning
	c.stopReason = StopNone
	c.timers.Cycle = 0
	c.emit(Event{Type: EventCycleStart, Mode: c.cycleMode, Source: c.cycleSource})
}

func (c *Controller) abortStart() {
	c.timers.Settle = 0
	c.phase = PhaseIdle
	if !c.fanMode {
		c.fanSwitch(false)
	}
}

func (c *Controller) requestStop(reason StopReason) {
	if c.phase != PhaseRunning {
		return
	}
	c.phase = PhaseStopping
	c.stopReason = reason
}

func (c *Controller) stop() {
	c.out.SetCompressor(false)
	c.out.SetGasHeat(false)

	if c.fanOn && !c.fanMode {
		if d := c.cfg.FanPostDelay[c.out.ReversingValve()]; d > 0 {
			c.timers.FanPost = d
		} else {
			c.fanSwitch(false)
		}
	}
	if c.cycleMode == ModeHeat && c.cycleSource == HeatGas {
		c.timers.FurnaceFan = FurnaceFanDelay
	}

	c.phase = PhaseIdle
	c.timers.Idle = 0
	c.emit(Event{
		Type:         EventCycleStop,
		Mode:         c.cycleMode,
		Source:       c.cycleSource,
		Reason:       c.stopReason,
		CycleSeconds: c.timers.Cycle,
	})
}

// decide is the start/stop decision pass. Its result is carried out on the
// next tick, except that a stop request is only ever acted on while running.
func (c *Controller) decide() {
	if !c.enabled || !c.indoorKnown || c.cfg.Mode == ModeOff {
		return
	}

	switch c.phase {
	case PhaseRunning:
		if !c.cycleSatisfied() {
			return
		}
		if c.atRecheck() {
			c.calcTarget(c.cycleMode)
		}
		if c.stopThresholdCrossed() {
			c.requestStop(StopThreshold)
		}
	case PhaseIdle:
		if !c.idleSatisfied() {
			return
		}
		if c.atRecheck() && c.startThresholdCrossed(c.cfg.Mode) {
			c.phase = PhaseStarting
		}
	}
}

func (c *Controller) idleSatisfied() bool {
	return c.timers.Idle >= c.cfg.IdleMin
}

func (c *Controller) cycleSatisfied() bool {
	return c.timers.Cycle >= c.cfg.CycleMin
}

// atRecheck reports a minute boundary or consumes a pending recheck request.
func (c *Controller) atRecheck() bool {
	if c.recheck {
		c.recheck = false
		return true
	}
	return c.now().Second() == 0
}

func (c *Controller) stopThresholdCrossed() bool {
	switch c.cycleMode {
	case ModeCool:
		return c.indoor <= c.target-c.cfg.CycleThresh
	case ModeHeat:
		return c.indoor > c.target+c.cfg.CycleThresh
	}
	return false
}

// startThresholdCrossed refreshes the target for mode and reports whether
// indoor has reached it. In auto mode it first resolves cool or heat, and the
// heat source when that is automatic too.
func (c *Controller) startThresholdCrossed(mode Mode) bool {
	switch mode {
	case ModeCool:
		c.calcTarget(ModeCool)
		return c.indoor >= c.target
	case ModeHeat:
		c.calcTarget(ModeHeat)
		return c.indoor <= c.target
	case ModeAuto:
		// Between the bands the previous choice stands and nothing starts.
		switch ResolveAutoMode(c.indoor, c.cfg.Cool.Low, c.cfg.Heat.High) {
		case AutoCool:
			c.autoMode = ModeCool
			return c.startThresholdCrossed(ModeCool)
		case AutoHeat:
			c.autoMode = ModeHeat
			if c.cfg.HeatMode == HeatAuto {
				c.autoSource = ResolveAutoHeatSource(c.indoor, c.outdoor, Tenths(c.cfg.EHeatThresh*10))
			}
			return c.startThresholdCrossed(ModeHeat)
		}
		return false
	}
	return false
}

// calcTarget recomputes the cached target for mode. While idle it also lines
// the reversing valve up with mode ahead of the next start.
func (c *Controller) calcTarget(mode Mode) {
	if mode == ModeAuto {
		mode = c.autoMode
	}
	sp, ok := c.cfg.Setpoints(mode)
	if !ok {
		return
	}
	if c.phase == PhaseIdle {
		want := OrientationCool
		if mode == ModeHeat {
			want = OrientationHeat
		}
		if c.out.ReversingValve() != want {
			c.out.SetReversingValve(want)
		}
	}
	c.target = ComputeTarget(sp, c.outdoor, MergeBands(c.shortBand, c.longBand), c.overrideDelta)
}

// refreshTarget recomputes the target for the running cycle, or for the
// configured mode when idle.
func (c *Controller) refreshTarget() {
	c.calcTarget(c.targetMode())
}

func (c *Controller) targetMode() Mode {
	if c.running() {
		return c.cycleMode
	}
	return c.effectiveMode()
}

func (c *Controller) effectiveMode() Mode {
	if c.cfg.Mode == ModeAuto {
		return c.autoMode
	}
	return c.cfg.Mode
}

func (c *Controller) running() bool {
	return c.phase == PhaseRunning || c.phase == PhaseStopping
}

func (c *Controller) fanSwitch(on bool) {
	if on == c.fanOn {
		return
	}
	c.out.SetFan(on)
	c.fanOn = on
	if on {
		c.timers.FanOn = 0
	}
}

func (c *Controller) emit(e Event) {
	e.Timestamp = c.now()
	e.Indoor = c.indoor
	e.Target = c.target
	c.events = append(c.events, e)
}
