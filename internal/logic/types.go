// Package logic contains the decision core of the HVAC controller: the
// equipment sequencer, the target temperature calculator and the auto-mode
// selector. This package has NO external dependencies (no GPIO, MQTT, OS, or
// time.Sleep). Outputs are driven through the Outputs interface and the clock
// used for minute-boundary pacing is injectable.
package logic

import (
	"fmt"
	"time"
)

// Tenths is a signed fixed-point temperature in tenths of a degree.
type Tenths int

func (t Tenths) String() string {
	return fmt.Sprintf("%.1f", float64(t)/10)
}

// Mode is the user-selected operating mode.
type Mode uint8

const (
	ModeOff Mode = iota
	ModeCool
	ModeHeat
	ModeAuto
)

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeCool:
		return "cool"
	case ModeHeat:
		return "heat"
	case ModeAuto:
		return "auto"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	for _, v := range []Mode{ModeOff, ModeCool, ModeHeat, ModeAuto} {
		if v.String() == string(text) {
			*m = v
			return nil
		}
	}
	return fmt.Errorf("unknown mode %q", text)
}

// HeatMode selects the heat source.
type HeatMode uint8

const (
	HeatPump HeatMode = iota
	HeatGas
	HeatAuto
)

func (h HeatMode) String() string {
	switch h {
	case HeatPump:
		return "heatpump"
	case HeatGas:
		return "gas"
	case HeatAuto:
		return "auto"
	}
	return fmt.Sprintf("heatmode(%d)", uint8(h))
}

func (h HeatMode) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *HeatMode) UnmarshalText(text []byte) error {
	for _, v := range []HeatMode{HeatPump, HeatGas, HeatAuto} {
		if v.String() == string(text) {
			*h = v
			return nil
		}
	}
	return fmt.Errorf("unknown heat mode %q", text)
}

// Orientation is the reversing valve position. It doubles as the index into
// Config.FanPostDelay.
type Orientation uint8

const (
	OrientationCool Orientation = iota
	OrientationHeat
)

func (o Orientation) String() string {
	if o == OrientationHeat {
		return "heat"
	}
	return "cool"
}

// Phase is the sequencer state.
type Phase uint8

const (
	// PhaseIdle: outputs off, waiting for the start threshold.
	PhaseIdle Phase = iota
	// PhaseStarting: a start was decided; it is carried out on the next tick,
	// possibly after the reversing valve settles.
	PhaseStarting
	// PhaseRunning: heating or cooling output asserted.
	PhaseRunning
	// PhaseStopping: a stop was requested and is carried out this tick.
	PhaseStopping
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseStopping:
		return "stopping"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// State is the equipment activity reported to displays and logs.
type State uint8

const (
	StateIdle State = iota
	StateCool
	StateHeat
	StateGas
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateCool:
		return "COOL"
	case StateHeat:
		return "HEAT"
	case StateGas:
		return "GAS"
	}
	return fmt.Sprintf("STATE(%d)", uint8(s))
}

// Notification is the last advisory condition raised.
type Notification uint8

const (
	NoteNone Notification = iota
	NoteCycleLimit
	NoteFilterDue
)

func (n Notification) String() string {
	switch n {
	case NoteCycleLimit:
		return "cycle_limit"
	case NoteFilterDue:
		return "filter_due"
	}
	return "none"
}

// Bound selects the low or high end of a setpoint pair.
type Bound uint8

const (
	BoundLow Bound = iota
	BoundHigh
)

// Setpoints is a low/high temperature pair.
type Setpoints struct {
	Low  Tenths `yaml:"low" json:"low"`
	High Tenths `yaml:"high" json:"high"`
}

// Band is an outdoor min/max range. Known is false until the first update.
type Band struct {
	Min   Tenths
	Max   Tenths
	Known bool
}

// EventType identifies a sequencer transition.
type EventType string

const (
	EventCycleStart      EventType = "CYCLE_START"
	EventCycleStop       EventType = "CYCLE_STOP"
	EventModeChange      EventType = "MODE_CHANGE"
	EventOverrideExpired EventType = "OVERRIDE_EXPIRED"
	EventFilterDue       EventType = "FILTER_DUE"
)

// StopReason explains why a cycle ended.
type StopReason string

const (
	StopNone       StopReason = ""
	StopThreshold  StopReason = "threshold"
	StopCycleLimit StopReason = "cycle_limit"
	StopModeChange StopReason = "mode_change"
)

// Event is a transition performed during a tick.
type Event struct {
	Timestamp    time.Time
	Type         EventType
	Mode         Mode
	Source       HeatMode
	Reason       StopReason
	CycleSeconds int
	Indoor       Tenths
	Target       Tenths
}

// Outputs drives the equipment. Writes are assumed to succeed.
type Outputs interface {
	SetFan(on bool)
	// SetCompressor drives the heat pump / air conditioner contactor.
	SetCompressor(on bool)
	// SetGasHeat drives the furnace call for heat.
	SetGasHeat(on bool)
	SetReversingValve(o Orientation)
	// ReversingValve reads back the current valve position.
	ReversingValve() Orientation
}
