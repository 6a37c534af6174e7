package logic

// AutoDecision is the outcome of ResolveAutoMode.
type AutoDecision uint8

const (
	AutoNoChange AutoDecision = iota
	AutoCool
	AutoHeat
)

// ResolveAutoMode picks cooling once indoor reaches the cool low setpoint and
// heating once it falls to the heat high setpoint. Between the two it keeps
// the previous choice.
func ResolveAutoMode(indoor, coolLow, heatHigh Tenths) AutoDecision {
	switch {
	case indoor >= coolLow:
		return AutoCool
	case indoor <= heatHigh:
		return AutoHeat
	}
	return AutoNoChange
}

// ResolveAutoHeatSource prefers gas when outdoor is more than gap below indoor,
// where the heat pump runs inefficiently.
func ResolveAutoHeatSource(indoor, outdoor, gap Tenths) HeatMode {
	if outdoor < indoor-gap {
		return HeatGas
	}
	return HeatPump
}
