package gpio

import (
	"sync"

	"github.com/sweeney/hvac-controller/internal/logic"
)

// Write is one recorded output change.
type Write struct {
	Line  string // "fan", "cool", "heat" or "reverse"
	Value bool   // for "reverse", true = heat
}

// FakeOutputs is a test double that records every write.
type FakeOutputs struct {
	mu      sync.Mutex
	levels  Levels
	Writes  []Write
	Flips   int
	Overlap int // writes that left compressor and gas heat both on
	Closed  bool
}

// NewFakeOutputs returns outputs in the power-up state.
func NewFakeOutputs() *FakeOutputs {
	return &FakeOutputs{levels: Levels{Valve: logic.OrientationHeat}}
}

func (f *FakeOutputs) record(line string, v bool) {
	f.Writes = append(f.Writes, Write{Line: line, Value: v})
	if f.levels.Compressor && f.levels.GasHeat {
		f.Overlap++
	}
}

func (f *FakeOutputs) SetFan(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levels.Fan = on
	f.record("fan", on)
}

func (f *FakeOutputs) SetCompressor(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levels.Compressor = on
	f.record("cool", on)
}

func (f *FakeOutputs) SetGasHeat(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levels.GasHeat = on
	f.record("heat", on)
}

func (f *FakeOutputs) SetReversingValve(o logic.Orientation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o != f.levels.Valve {
		f.Flips++
	}
	f.levels.Valve = o
	f.record("reverse", o == logic.OrientationHeat)
}

func (f *FakeOutputs) ReversingValve() logic.Orientation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels.Valve
}

// Levels returns the current output levels.
func (f *FakeOutputs) Levels() Levels {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels
}

// Close marks the outputs closed and drives them to the safe state.
func (f *FakeOutputs) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levels = Levels{Valve: logic.OrientationHeat}
	f.Closed = true
	return nil
}

// Reset clears the write log.
func (f *FakeOutputs) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Writes = nil
	f.Flips = 0
	f.Overlap = 0
}
