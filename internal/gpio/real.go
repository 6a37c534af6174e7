//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/hvac-controller/internal/logger"
	"github.com/sweeney/hvac-controller/internal/logic"
)

// RealOutputs drives relays on actual hardware using the Linux GPIO
// character device.
type RealOutputs struct {
	log     *logger.Logger
	chip    *gpiocdev.Chip
	fan     *gpiocdev.Line
	cool    *gpiocdev.Line
	reverse *gpiocdev.Line
	heat    *gpiocdev.Line
}

// NewRealOutputs requests the four output lines on chipName. Every relay
// starts de-energised with the valve in the heat position.
func NewRealOutputs(chipName string, pins Pins, log *logger.Logger) (*RealOutputs, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	o := &RealOutputs{log: log, chip: chip}
	for _, req := range []struct {
		name    string
		pin     int
		initial int
		line    **gpiocdev.Line
	}{
		{"fan", pins.Fan, 0, &o.fan},
		{"cool", pins.Cool, 0, &o.cool},
		{"reverse", pins.Reverse, 1, &o.reverse},
		{"heat", pins.Heat, 0, &o.heat},
	} {
		line, err := chip.RequestLine(req.pin, gpiocdev.AsOutput(req.initial), gpiocdev.WithConsumer("hvac-"+req.name))
		if err != nil {
			_ = o.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", req.name, req.pin, err)
		}
		*req.line = line
	}
	return o, nil
}

func (o *RealOutputs) set(name string, line *gpiocdev.Line, v int) {
	if err := line.SetValue(v); err != nil {
		o.log.Errorw("gpio write failed", "line", name, "value", v, "err", err)
	}
}

func (o *RealOutputs) get(name string, line *gpiocdev.Line) bool {
	v, err := line.Value()
	if err != nil {
		o.log.Errorw("gpio read failed", "line", name, "err", err)
		return false
	}
	return v != 0
}

func (o *RealOutputs) SetFan(on bool)        { o.set("fan", o.fan, level(on)) }
func (o *RealOutputs) SetCompressor(on bool) { o.set("cool", o.cool, level(on)) }
func (o *RealOutputs) SetGasHeat(on bool)    { o.set("heat", o.heat, level(on)) }

func (o *RealOutputs) SetReversingValve(v logic.Orientation) {
	o.set("reverse", o.reverse, level(v == logic.OrientationHeat))
}

// ReversingValve reads the valve line back.
func (o *RealOutputs) ReversingValve() logic.Orientation {
	if o.get("reverse", o.reverse) {
		return logic.OrientationHeat
	}
	return logic.OrientationCool
}

// Levels reads every output line back.
func (o *RealOutputs) Levels() Levels {
	return Levels{
		Fan:        o.get("fan", o.fan),
		Compressor: o.get("cool", o.cool),
		GasHeat:    o.get("heat", o.heat),
		Valve:      o.ReversingValve(),
	}
}

// Close de-energises the relays, returns the valve to heat and releases the
// lines.
func (o *RealOutputs) Close() error {
	var errs []error
	for _, l := range []struct {
		name string
		line *gpiocdev.Line
		safe int
	}{
		{"heat", o.heat, 0},
		{"cool", o.cool, 0},
		{"fan", o.fan, 0},
		{"reverse", o.reverse, 1},
	} {
		if l.line == nil {
			continue
		}
		if err := l.line.SetValue(l.safe); err != nil {
			errs = append(errs, fmt.Errorf("reset %s pin: %w", l.name, err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", l.name, err))
		}
	}
	if o.chip != nil {
		if err := o.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}
