// Package gpio drives the HVAC relay outputs.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"fmt"

	"github.com/sweeney/hvac-controller/internal/logic"
)

// Pins holds the BCM line offsets of the four relay outputs.
type Pins struct {
	Fan     int
	Cool    int // compressor contactor
	Reverse int // reversing valve, high = heat
	Heat    int // furnace call for heat
}

// Default pin assignment (BCM numbering).
var DefaultPins = Pins{Fan: 17, Cool: 27, Reverse: 22, Heat: 23}

// Levels is a read-back of the output lines.
type Levels struct {
	Fan        bool
	Compressor bool
	GasHeat    bool
	Valve      logic.Orientation
}

func (l Levels) String() string {
	return fmt.Sprintf("FAN: %s, COOL: %s, HEAT: %s, REV: %s",
		onOff(l.Fan), onOff(l.Compressor), onOff(l.GasHeat), l.Valve)
}

// Outputs is the controller's actuator plus a read-back and release.
type Outputs interface {
	logic.Outputs
	Levels() Levels
	Close() error
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func level(on bool) int {
	if on {
		return 1
	}
	return 0
}
