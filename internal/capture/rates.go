package capture

// Rates holds the capture probability per device, indexed by item id. Index 0
// is a sentinel so that Rates[ItemPokeBall] is the poke ball's rate.
type Rates []float64

// NewRates builds a rate vector from base probabilities listed in device
// tier order starting with the poke ball.
func NewRates(base []float64) Rates {
	r := make(Rates, 0, len(base)+1)
	r = append(r, 0)
	for _, p := range base {
		r = append(r, clamp(p))
	}
	return r
}

// At returns the rate for a device, or 0 when the device has no rate.
func (r Rates) At(device int) float64 {
	if device <= 0 || device >= len(r) {
		return 0
	}
	return r[device]
}

// Boost returns a copy of r with every rate multiplied by mult and clamped to
// [0, 1]. Multipliers below 1 are treated as 1 so rates never drop.
func (r Rates) Boost(mult float64) Rates {
	if mult < 1 {
		mult = 1
	}
	out := make(Rates, len(r))
	for i, p := range r {
		out[i] = clamp(p * mult)
	}
	out[0] = 0
	return out
}

func clamp(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
