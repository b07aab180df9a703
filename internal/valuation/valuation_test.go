package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ramp(n int, from, step float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = from + float64(i)*step
	}
	return closes
}

func TestEvaluateInsufficientHistory(t *testing.T) {
	snap := Evaluate(ramp(119, 10, 0.1))
	assert.Equal(t, "insufficient-history", snap.Label)
	assert.Equal(t, 1.0, snap.Multiplier)
}

func TestEvaluateFlatSeriesDefaultsToFair(t *testing.T) {
	closes := make([]float64, 200)
	for i := range closes {
		closes[i] = 3.0
	}
	snap := Evaluate(closes)
	assert.Equal(t, 0.5, snap.Percentile)
	assert.Equal(t, "fair", snap.Label)
	assert.Equal(t, 1.0, snap.Multiplier)
}

func TestEvaluateBands(t *testing.T) {
	cases := []struct {
		name       string
		closes     []float64
		label      string
		multiplier float64
	}{
		{"close at the top is a bubble", ramp(200, 10, 0.1), "bubble", 0.0},
		{"close at the bottom is deep undervalued", ramp(200, 50, -0.1), "deep-undervalued", 1.6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := Evaluate(tc.closes)
			assert.Equal(t, tc.label, snap.Label)
			assert.Equal(t, tc.multiplier, snap.Multiplier)
		})
	}
}

func TestEvaluateMidBands(t *testing.T) {
	// engineer a final close at a chosen percentile of a 0..100 range
	at := func(p float64) []float64 {
		closes := ramp(199, 0, 100.0/198.0) // spans 0..100
		return append(closes, p*100)
	}

	assert.Equal(t, "overvalued", Evaluate(at(0.90)).Label)
	assert.Equal(t, "undervalued", Evaluate(at(0.20)).Label)
	assert.Equal(t, "slightly-low", Evaluate(at(0.30)).Label)
	assert.Equal(t, "fair", Evaluate(at(0.60)).Label)
	// top-down evaluation: 0.97 is a bubble, never merely overvalued
	assert.Equal(t, "bubble", Evaluate(at(0.97)).Label)
}

func TestEvaluateWindowClampsTo1250(t *testing.T) {
	// an ancient spike outside the window must not stretch the range
	closes := append([]float64{1000}, ramp(1250, 10, 0.01)...)
	snap := Evaluate(closes)
	assert.Equal(t, "bubble", snap.Label)
}

func TestEvaluateMonotoneInFinalClose(t *testing.T) {
	base := ramp(300, 10, 0.05)
	lower := append(append([]float64{}, base...), 17.0)
	higher := append(append([]float64{}, base...), 18.0)
	assert.LessOrEqual(t, Evaluate(lower).Percentile, Evaluate(higher).Percentile)
}
