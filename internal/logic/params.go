package logic

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownParameter is returned by SetParameter for an unrecognised name.
var ErrUnknownParameter = errors.New("unknown parameter")

type paramFunc func(c *Controller, v int)

// params is the remote control surface. Every value is clamped; nothing is
// rejected.
var params = map[string]paramFunc{
	"fanmode":  func(c *Controller, v int) { c.SetFan(v != 0) },
	"mode":     func(c *Controller, v int) { c.SetMode(Mode(v & 3)) },
	"heatmode": func(c *Controller, v int) { c.SetHeatMode(HeatMode(nonNegMod(v, 3))) },

	"resettotal":  func(c *Controller, _ int) { c.ResetTotal() },
	"resetfilter": func(c *Controller, _ int) { c.ResetFilter() },

	"fanpostdelay": func(c *Controller, v int) {
		c.cfg.FanPostDelay[c.out.ReversingValve()] = clamp(v, 0, 60*5)
	},
	"cyclemin": func(c *Controller, v int) {
		c.cfg.CycleMin = clamp(v, 60, min(60*20, c.cfg.CycleMax-1))
	},
	"cyclemax": func(c *Controller, v int) {
		c.cfg.CycleMax = clamp(v, max(60*2, c.cfg.CycleMin+1), 60*60)
	},
	"idlemin":     func(c *Controller, v int) { c.cfg.IdleMin = clamp(v, 60, 60*30) },
	"cyclethresh": func(c *Controller, v int) { c.cfg.CycleThresh = clamp(Tenths(v), 5, 50) },

	"cooltempl": tempParam(ModeCool, BoundLow),
	"cooltemph": tempParam(ModeCool, BoundHigh),
	"heattempl": tempParam(ModeHeat, BoundLow),
	"heattemph": tempParam(ModeHeat, BoundHigh),

	"eheatthresh":  func(c *Controller, v int) { c.cfg.EHeatThresh = clamp(v, 5, 50) },
	"override":     func(c *Controller, v int) { c.SetOverride(Tenths(v)) },
	"overridetime": func(c *Controller, v int) { c.cfg.OverrideDuration = clamp(v, 60, 60*60*5) },
	"remotetemp":   func(c *Controller, v int) { c.SetRemoteTemp(Tenths(v)) },
	"remotetime":   func(c *Controller, v int) { c.SetRemoteTimeout(v) },
}

func tempParam(m Mode, b Bound) paramFunc {
	return func(c *Controller, v int) {
		c.SetTemp(m, Tenths(v), b)
		c.recheck = true
	}
}

// SetParameter applies a named parameter change. Names are case-insensitive.
func (c *Controller) SetParameter(name string, v int) error {
	fn, ok := params[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	fn(c, v)
	return nil
}

// ParameterNames lists the names accepted by SetParameter, sorted.
func ParameterNames() []string {
	names := make([]string, 0, len(params))
	for n := range params {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func nonNegMod(v, n int) int {
	return ((v % n) + n) % n
}
