//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/hvac-controller/internal/logger"
	"github.com/sweeney/hvac-controller/internal/logic"
)

// RealOutputs is not available on non-Linux platforms.
type RealOutputs struct{}

// NewRealOutputs returns an error on non-Linux platforms.
func NewRealOutputs(chipName string, pins Pins, log *logger.Logger) (*RealOutputs, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

func (o *RealOutputs) SetFan(bool)                         {}
func (o *RealOutputs) SetCompressor(bool)                  {}
func (o *RealOutputs) SetGasHeat(bool)                     {}
func (o *RealOutputs) SetReversingValve(logic.Orientation) {}
func (o *RealOutputs) ReversingValve() logic.Orientation   { return logic.OrientationHeat }
func (o *RealOutputs) Levels() Levels                      { return Levels{Valve: logic.OrientationHeat} }
func (o *RealOutputs) Close() error                        { return nil }
