package logic

// MergeBands widens the short-term outdoor band with the long-term band once
// the long-term band is known.
func MergeBands(short, long Band) Band {
	switch {
	case !long.Known:
		return short
	case !short.Known:
		return long
	}
	return Band{
		Min:   min(short.Min, long.Min),
		Max:   max(short.Max, long.Max),
		Known: true,
	}
}

// ComputeTarget interpolates the setpoint pair linearly across the outdoor
// band, clamps the result to the pair, then adds the override delta.
//
// A zero-width, inverted or unknown band cannot be interpolated: the result is
// High when outdoor is above the band minimum and Low otherwise.
func ComputeTarget(sp Setpoints, outdoor Tenths, band Band, override Tenths) Tenths {
	return interpolate(sp, outdoor, band) + override
}

func interpolate(sp Setpoints, outdoor Tenths, band Band) Tenths {
	if !band.Known || band.Max <= band.Min {
		if band.Known && outdoor > band.Min {
			return sp.High
		}
		return sp.Low
	}
	t := (outdoor-band.Min)*(sp.High-sp.Low)/(band.Max-band.Min) + sp.Low
	return clamp(t, sp.Low, sp.High)
}
