package valuation

// Snapshot places the latest close inside its long trailing range and maps
// that position to a capital multiplier for the strategy.
type Snapshot struct {
	Percentile float64 `json:"percentile"`
	Multiplier float64 `json:"multiplier"`
	Label      string  `json:"label"`
}

const (
	windowBars  = 1250
	minimumBars = 120
)

// band maps a percentile range to a multiplier. Bands are evaluated
// top-down and the first match wins, so the bubble band shadows the
// overvalued one.
type band struct {
	match      func(p float64) bool
	multiplier float64
	label      string
}

var bands = []band{
	{func(p float64) bool { return p > 0.95 }, 0.0, "bubble"},
	{func(p float64) bool { return p > 0.85 }, 0.5, "overvalued"},
	{func(p float64) bool { return p < 0.10 }, 1.6, "deep-undervalued"},
	{func(p float64) bool { return p < 0.25 }, 1.3, "undervalued"},
	{func(p float64) bool { return p < 0.40 }, 1.1, "slightly-low"},
}

// Evaluate computes the percentile-of-range snapshot over the trailing
// min(1250, N) closes. Histories under 120 bars get a neutral multiplier.
func Evaluate(closes []float64) Snapshot {
	if len(closes) < minimumBars {
		return Snapshot{Percentile: 0.5, Multiplier: 1.0, Label: "insufficient-history"}
	}

	window := closes
	if len(window) > windowBars {
		window = window[len(window)-windowBars:]
	}

	lo, hi := window[0], window[0]
	for _, c := range window {
		if c < lo {
			lo = c
		}
		if c > hi {
			hi = c
		}
	}

	p := 0.5
	if hi > lo {
		p = (window[len(window)-1] - lo) / (hi - lo)
	}

	for _, b := range bands {
		if b.match(p) {
			return Snapshot{Percentile: p, Multiplier: b.multiplier, Label: b.label}
		}
	}
	return Snapshot{Percentile: p, Multiplier: 1.0, Label: "fair"}
}
