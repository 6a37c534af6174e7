package logic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is an Outputs that remembers the last write to each line.
type recorder struct {
	fan, comp, gas bool
	valve          Orientation
	overlap        int
	flips          int
}

func (r *recorder) SetFan(on bool)        { r.fan = on }
func (r *recorder) SetCompressor(on bool) { r.comp = on; r.check() }
func (r *recorder) SetGasHeat(on bool)    { r.gas = on; r.check() }
func (r *recorder) SetReversingValve(o Orientation) {
	if o != r.valve {
		r.flips++
	}
	r.valve = o
}
func (r *recorder) ReversingValve() Orientation { return r.valve }

func (r *recorder) check() {
	if r.comp && r.gas {
		r.overlap++
	}
}

type rig struct {
	t      *testing.T
	c      *Controller
	out    *recorder
	now    time.Time
	events []Event
}

// newRig builds a controller whose clock starts half way through a minute and
// advances one second per tick.
func newRig(t *testing.T, cfg Config) *rig {
	t.Helper()
	r := &rig{
		t:   t,
		out: &recorder{},
		now: time.Date(2026, 1, 1, 12, 0, 30, 0, time.UTC),
	}
	r.c = New(cfg, r.out, WithClock(func() time.Time { return r.now }))
	return r
}

func (r *rig) tick() []Event {
	r.now = r.now.Add(time.Second)
	ev := r.c.Tick()
	r.events = append(r.events, ev...)
	return ev
}

func (r *rig) ticks(n int) {
	for i := 0; i < n; i++ {
		r.tick()
	}
}

// tickUntil ticks until an event of type typ is emitted and returns it along
// with the number of ticks taken.
func (r *rig) tickUntil(typ EventType, limit int) (Event, int) {
	r.t.Helper()
	for i := 1; i <= limit; i++ {
		for _, e := range r.tick() {
			if e.Type == typ {
				return e, i
			}
		}
	}
	r.t.Fatalf("no %s event within %d ticks", typ, limit)
	return Event{}, 0
}

func configFor(m Mode, h HeatMode) Config {
	cfg := DefaultConfig()
	cfg.Mode = m
	cfg.HeatMode = h
	return cfg
}

// startedRig returns a controller that has just started a cycle.
func startedRig(t *testing.T, cfg Config, indoor Tenths) *rig {
	t.Helper()
	r := newRig(t, cfg)
	r.c.UpdateIndoorTemp(indoor, 40)
	r.c.Enable()
	r.tickUntil(EventCycleStart, 2*cfg.IdleMin)
	return r
}

func TestNewDrivesOutputsOff(t *testing.T) {
	r := newRig(t, DefaultConfig())
	assert.False(t, r.out.fan)
	assert.False(t, r.out.comp)
	assert.False(t, r.out.gas)
	assert.Equal(t, OrientationHeat, r.out.valve)
	assert.Equal(t, PhaseIdle, r.c.Status().Phase)
	assert.False(t, r.c.Status().Enabled)
}

func TestDisabledControllerNeverStarts(t *testing.T) {
	r := newRig(t, configFor(ModeCool, HeatPump))
	r.c.UpdateIndoorTemp(850, 40)
	r.ticks(1000)
	assert.False(t, r.c.Running())
	assert.Empty(t, r.events)
}

func TestNoStartWithoutIndoorSample(t *testing.T) {
	r := newRig(t, configFor(ModeCool, HeatPump))
	r.c.Enable()
	r.ticks(1000)
	assert.False(t, r.c.Running())
}

func TestStartWaitsForIdleMin(t *testing.T) {
	r := newRig(t, configFor(ModeCool, HeatPump))
	r.c.UpdateIndoorTemp(810, 40)
	r.c.Enable()

	ev, n := r.tickUntil(EventCycleStart, 1000)
	// Idle starts at 180 on power-up; the decision lands when it reaches
	// 300 and the start is carried out one tick later.
	assert.Equal(t, DefaultConfig().IdleMin-startupIdle+1, n)
	assert.GreaterOrEqual(t, r.c.Status().Timers.Idle, DefaultConfig().IdleMin)
	assert.Equal(t, ModeCool, ev.Mode)
	assert.True(t, r.out.comp)
	assert.True(t, r.out.fan)
	assert.False(t, r.out.gas)
	assert.Equal(t, OrientationCool, r.out.valve)
	assert.Equal(t, StateCool, r.c.State())
}

func TestCycleLimitStopsAtExactlyCycleMax(t *testing.T) {
	r := startedRig(t, configFor(ModeCool, HeatPump), 810)

	ev, n := r.tickUntil(EventCycleStop, 2000)
	assert.Equal(t, 900, n)
	assert.Equal(t, 900, ev.CycleSeconds)
	assert.Equal(t, StopCycleLimit, ev.Reason)
	assert.Equal(t, NoteCycleLimit, r.c.Notification())
	assert.False(t, r.out.comp)
	assert.Equal(t, 0, r.c.Status().Timers.Idle)
}

func TestLockoutIgnoresTemperatureSwing(t *testing.T) {
	r := startedRig(t, configFor(ModeCool, HeatPump), 810)
	r.c.UpdateIndoorTemp(600, 40)
	r.c.Recheck()

	for i := 0; i < LockoutSeconds; i++ {
		for _, e := range r.tick() {
			assert.NotEqual(t, EventCycleStop, e.Type, "tick %d", i)
		}
		assert.True(t, r.out.comp)
	}

	ev, _ := r.tickUntil(EventCycleStop, 200)
	assert.GreaterOrEqual(t, ev.CycleSeconds, DefaultConfig().CycleMin)
	assert.Equal(t, StopThreshold, ev.Reason)
}

func TestCoolStopsAtTargetMinusThreshold(t *testing.T) {
	cfg := configFor(ModeCool, HeatPump)
	r := newRig(t, cfg)
	r.c.UpdatePeaks(700, 900)
	r.c.UpdateOutdoorTemp(800)
	r.c.UpdateIndoorTemp(810, 40)
	r.c.Enable()
	r.tickUntil(EventCycleStart, 1000)

	require.Equal(t, Tenths(805), r.c.Target())

	r.c.UpdateIndoorTemp(789, 40)
	r.ticks(300)
	require.True(t, r.c.Running(), "one tenth above the band must keep cooling")

	r.c.UpdateIndoorTemp(788, 40)
	ev, n := r.tickUntil(EventCycleStop, 5)
	assert.Equal(t, 2, n)
	assert.Equal(t, StopThreshold, ev.Reason)
	assert.Equal(t, Tenths(788), ev.Indoor)
	assert.Equal(t, Tenths(805), ev.Target)
}

func TestHeatStopsAboveTargetPlusThreshold(t *testing.T) {
	r := startedRig(t, configFor(ModeHeat, HeatPump), 690)
	require.Equal(t, Tenths(700), r.c.Target())

	r.c.UpdateIndoorTemp(717, 40)
	r.ticks(200)
	require.True(t, r.c.Running())

	r.c.UpdateIndoorTemp(718, 40)
	ev, _ := r.tickUntil(EventCycleStop, 5)
	assert.Equal(t, StopThreshold, ev.Reason)
	assert.Equal(t, StateIdle, r.c.State())
}

func TestStartBoundaryIsInclusive(t *testing.T) {
	r := newRig(t, configFor(ModeCool, HeatPump))
	r.c.UpdateIndoorTemp(789, 40)
	r.c.Enable()
	r.ticks(400)
	require.False(t, r.c.Running())

	r.c.UpdateIndoorTemp(790, 40)
	r.c.Recheck()
	_, n := r.tickUntil(EventCycleStart, 3)
	assert.Equal(t, 2, n)
}

func TestDecisionsWaitForMinuteBoundary(t *testing.T) {
	r := newRig(t, configFor(ModeCool, HeatPump))
	r.c.UpdateIndoorTemp(789, 40)
	r.c.Enable()
	r.ticks(400)
	require.False(t, r.c.Running())

	r.c.UpdateIndoorTemp(800, 40)
	for i := 0; i < 61; i++ {
		r.tick()
		if r.c.Status().Phase == PhaseStarting {
			assert.Equal(t, 0, r.now.Second())
			return
		}
	}
	t.Fatal("start was never decided")
}

func TestHeatPumpFanPostDelay(t *testing.T) {
	r := startedRig(t, configFor(ModeHeat, HeatPump), 690)
	assert.Equal(t, StateHeat, r.c.State())
	assert.True(t, r.out.comp)
	assert.True(t, r.out.fan)

	r.c.UpdateIndoorTemp(730, 40)
	r.tickUntil(EventCycleStop, 200)
	assert.False(t, r.out.comp)

	r.ticks(DefaultConfig().FanPostDelay[OrientationHeat] - 1)
	assert.True(t, r.out.fan)
	assert.True(t, r.c.FanRunning())
	r.tick()
	assert.False(t, r.out.fan)
	assert.False(t, r.c.FanRunning())
}

func TestZeroFanPostDelayStopsBlowerWithCycle(t *testing.T) {
	cfg := configFor(ModeCool, HeatPump)
	cfg.FanPostDelay[OrientationCool] = 0
	r := startedRig(t, cfg, 810)

	r.c.UpdateIndoorTemp(700, 40)
	r.tickUntil(EventCycleStop, 200)
	assert.False(t, r.out.fan)
}

func TestManualFanSurvivesCycleStop(t *testing.T) {
	r := startedRig(t, configFor(ModeCool, HeatPump), 810)
	r.c.SetFan(true)

	r.c.UpdateIndoorTemp(700, 40)
	r.tickUntil(EventCycleStop, 200)
	r.ticks(500)
	assert.True(t, r.out.fan)

	r.c.SetFan(false)
	assert.False(t, r.out.fan)
}

func TestGasHeatRunsFurnaceFan(t *testing.T) {
	r := startedRig(t, configFor(ModeHeat, HeatGas), 650)
	assert.True(t, r.out.gas)
	assert.False(t, r.out.comp)
	assert.False(t, r.out.fan, "furnace drives its own blower")
	assert.Equal(t, StateGas, r.c.State())
	assert.True(t, r.c.FanRunning())

	r.c.UpdateIndoorTemp(760, 40)
	ev, _ := r.tickUntil(EventCycleStop, 200)
	assert.Equal(t, HeatGas, ev.Source)
	assert.False(t, r.out.gas)
	assert.False(t, r.out.fan)
	assert.True(t, r.c.FanRunning())
	assert.Equal(t, FurnaceFanDelay, r.c.Status().Timers.FurnaceFan)

	r.ticks(FurnaceFanDelay)
	assert.False(t, r.c.FanRunning())
}

func TestValveSettleDelaysCompressor(t *testing.T) {
	r := newRig(t, configFor(ModeCool, HeatPump))
	r.c.UpdateIndoorTemp(810, 40)
	r.c.Enable()
	for r.c.Status().Phase != PhaseStarting {
		r.tick()
		require.Less(t, r.now.Sub(time.Date(2026, 1, 1, 12, 0, 30, 0, time.UTC)), time.Hour)
	}
	// Something moved the valve after the decision was made.
	r.out.valve = OrientationHeat

	r.tick()
	assert.Equal(t, OrientationCool, r.out.valve)
	assert.True(t, r.out.fan)
	assert.False(t, r.out.comp)

	for i := 1; i < SettleSeconds; i++ {
		r.tick()
		assert.False(t, r.out.comp, "settle tick %d", i)
	}
	ev := r.tick()
	assert.True(t, r.out.comp)
	require.Len(t, ev, 1)
	assert.Equal(t, EventCycleStart, ev[0].Type)
}

func TestModeChangeWhileRunningWaitsForCycleMin(t *testing.T) {
	r := startedRig(t, configFor(ModeCool, HeatPump), 810)
	r.c.SetMode(ModeHeat)

	ev, n := r.tickUntil(EventCycleStop, 200)
	assert.Equal(t, DefaultConfig().CycleMin, n)
	assert.Equal(t, StopModeChange, ev.Reason)
	assert.Equal(t, ModeCool, r.c.Mode())

	ev, n = r.tickUntil(EventModeChange, 10)
	assert.Equal(t, ModeDebounce, n)
	assert.Equal(t, ModeHeat, ev.Mode)
	assert.Equal(t, ModeHeat, r.c.Mode())
	assert.Equal(t, OrientationHeat, r.out.valve)
}

func TestModeSelectionsCollapseWithinDebounce(t *testing.T) {
	r := startedRig(t, configFor(ModeCool, HeatPump), 810)
	r.c.SetMode(ModeHeat)
	r.tick()
	r.c.SetMode(ModeAuto)
	r.tick()
	r.c.SetMode(ModeOff)
	r.tickUntil(EventCycleStop, 200)

	var changes []Event
	for i := 0; i < 10; i++ {
		for _, e := range r.tick() {
			if e.Type == EventModeChange {
				changes = append(changes, e)
			}
		}
	}
	require.Len(t, changes, 1)
	assert.Equal(t, ModeOff, changes[0].Mode)
}

func TestAutoModeSelectsGasWhenColdOutside(t *testing.T) {
	r := newRig(t, configFor(ModeAuto, HeatAuto))
	r.c.UpdateOutdoorTemp(200)
	r.c.UpdateIndoorTemp(650, 40)
	r.c.Enable()

	ev, _ := r.tickUntil(EventCycleStart, 1000)
	assert.Equal(t, ModeHeat, ev.Mode)
	assert.Equal(t, HeatGas, ev.Source)
	assert.Equal(t, ModeHeat, r.c.AutoMode())
	assert.Equal(t, HeatGas, r.c.HeatSource())
	assert.True(t, r.out.gas)
}

func TestAutoModeSelectsHeatPumpWhenMild(t *testing.T) {
	r := newRig(t, configFor(ModeAuto, HeatAuto))
	r.c.UpdateOutdoorTemp(500)
	r.c.UpdateIndoorTemp(650, 40)
	r.c.Enable()

	ev, _ := r.tickUntil(EventCycleStart, 1000)
	assert.Equal(t, HeatPump, ev.Source)
	assert.True(t, r.out.comp)
	assert.Equal(t, OrientationHeat, r.out.valve)
}

func TestAutoModeSelectsCool(t *testing.T) {
	r := newRig(t, configFor(ModeAuto, HeatPump))
	r.c.UpdateIndoorTemp(800, 40)
	r.c.Enable()

	ev, _ := r.tickUntil(EventCycleStart, 1000)
	assert.Equal(t, ModeCool, ev.Mode)
	assert.Equal(t, OrientationCool, r.out.valve)
}

func TestSetModeShortensIdleWait(t *testing.T) {
	r := newRig(t, DefaultConfig())
	r.c.UpdateIndoorTemp(810, 40)
	r.ticks(20)
	require.Equal(t, 200, r.c.Status().Timers.Idle)

	r.c.Enable()
	r.c.SetMode(ModeCool)
	assert.Equal(t, DefaultConfig().IdleMin-10, r.c.Status().Timers.Idle)

	ev, n := r.tickUntil(EventModeChange, 1)
	assert.Equal(t, ModeCool, ev.Mode)
	require.Equal(t, 1, n)

	_, n = r.tickUntil(EventCycleStart, 100)
	assert.Equal(t, 10, n)
	assert.GreaterOrEqual(t, r.c.Status().Timers.Idle, DefaultConfig().IdleMin)
}

func TestSetModeLeavesLongIdleAlone(t *testing.T) {
	r := newRig(t, DefaultConfig())
	r.ticks(100)
	r.c.SetMode(ModeHeat)
	assert.Equal(t, 280, r.c.Status().Timers.Idle)

	r = startedRig(t, configFor(ModeCool, HeatPump), 810)
	idle := r.c.Status().Timers.Idle
	r.c.SetMode(ModeHeat)
	assert.Equal(t, idle, r.c.Status().Timers.Idle, "no change while running")
}

func TestAutoModeKeepsResolvedChoiceBetweenBands(t *testing.T) {
	r := newRig(t, configFor(ModeAuto, HeatAuto))
	r.c.UpdateOutdoorTemp(500)
	r.c.UpdateIndoorTemp(730, 40)
	r.c.Enable()
	r.ticks(400)
	require.False(t, r.c.Running())
	require.Equal(t, ModeHeat, r.c.AutoMode())
	require.Equal(t, HeatPump, r.c.HeatSource())

	// Cold enough outside to pick gas, but indoor sits between the bands.
	r.c.UpdateIndoorTemp(760, 40)
	r.c.UpdateOutdoorTemp(100)
	r.ticks(61)
	assert.Equal(t, ModeHeat, r.c.AutoMode())
	assert.Equal(t, HeatPump, r.c.HeatSource())

	r.c.SetOverride(70)
	r.c.Recheck()
	r.ticks(61)
	assert.False(t, r.c.Running())
	assert.False(t, r.out.gas)
	assert.Equal(t, HeatPump, r.c.HeatSource())
	for _, e := range r.events {
		assert.NotEqual(t, EventCycleStart, e.Type)
	}
}

func TestAutoModeBetweenBandsStaysIdle(t *testing.T) {
	r := newRig(t, configFor(ModeAuto, HeatPump))
	r.c.UpdateIndoorTemp(760, 40)
	r.c.Enable()
	r.ticks(1000)
	assert.False(t, r.c.Running())
	assert.Equal(t, ModeOff, r.c.AutoMode())
}

func TestDisableDuringCycle(t *testing.T) {
	r := startedRig(t, configFor(ModeCool, HeatPump), 810)
	r.c.Disable()

	assert.False(t, r.out.comp)
	assert.False(t, r.out.gas)
	assert.False(t, r.out.fan)
	assert.False(t, r.c.Running())
	assert.False(t, r.c.Status().Enabled)

	r.ticks(2000)
	assert.False(t, r.c.Running())
}

func TestDisableIsIdempotent(t *testing.T) {
	r := startedRig(t, configFor(ModeCool, HeatPump), 810)
	r.c.Disable()
	st, out := r.c.Status(), *r.out

	r.c.Disable()
	assert.Equal(t, st, r.c.Status())
	assert.Equal(t, out, *r.out)
}

func TestEnableAfterDisableHonoursIdleMin(t *testing.T) {
	r := startedRig(t, configFor(ModeCool, HeatPump), 810)
	r.c.Disable()
	r.c.Enable()

	_, n := r.tickUntil(EventCycleStart, 1000)
	assert.Greater(t, n, DefaultConfig().IdleMin)
}

// Drives an auto controller through a long indoor temperature swing and checks
// the sequencing guarantees on every tick.
func TestSequencingProperties(t *testing.T) {
	cfg := configFor(ModeAuto, HeatAuto)
	r := newRig(t, cfg)
	r.c.UpdatePeaks(300, 700)
	r.c.Enable()

	for i := 0; i < 40000; i++ {
		p := i % 6000
		if p > 3000 {
			p = 6000 - p
		}
		r.c.UpdateIndoorTemp(Tenths(660+p/20), 40)
		r.c.UpdateOutdoorTemp(Tenths(300 + (i/1000)%5*100))

		for _, e := range r.tick() {
			st := r.c.Status()
			switch e.Type {
			case EventCycleStart:
				assert.GreaterOrEqual(t, st.Timers.Idle, cfg.IdleMin, "start at tick %d", i)
			case EventCycleStop:
				assert.GreaterOrEqual(t, e.CycleSeconds, LockoutSeconds, "stop at tick %d", i)
				if e.Reason != StopCycleLimit {
					assert.GreaterOrEqual(t, e.CycleSeconds, cfg.CycleMin, "stop at tick %d", i)
				}
			}
		}
		require.False(t, r.out.comp && r.out.gas, "tick %d", i)
	}

	assert.Zero(t, r.out.overlap)
	var starts int
	for _, e := range r.events {
		if e.Type == EventCycleStart {
			starts++
		}
	}
	assert.Greater(t, starts, 2)
}

func TestStateChanged(t *testing.T) {
	r := newRig(t, configFor(ModeCool, HeatPump))
	assert.True(t, r.c.StateChanged())
	assert.False(t, r.c.StateChanged())

	r.c.SetFan(true)
	assert.True(t, r.c.StateChanged())
	assert.False(t, r.c.StateChanged())
}
