package logic

// Timers is the bank of per-second counters advanced by Tick. All values are
// seconds except where noted.
type Timers struct {
	Cycle         int // since the current cycle started
	Idle          int // since the last cycle stopped
	FanOn         int // since the blower was switched on, saturating
	FanPost       int // blower run-on countdown
	Override      int // manual override countdown
	Remote        int // remote temperature heartbeat countdown
	FurnaceFan    int // modelled furnace blower run-on countdown
	Settle        int // reversing valve settle countdown
	RunTotal      int // equipment run time since last reset
	FilterSeconds int // partial minute of airflow not yet added to FilterMinutes
}

const fanOnTimerMax = 0xFFFF

// countdown decrements a non-zero counter and reports whether it just
// reached zero.
func countdown(v *int) bool {
	if *v <= 0 {
		return false
	}
	*v--
	return *v == 0
}

func saturatingInc(v *int, limit int) {
	if *v < limit {
		*v++
	}
}
