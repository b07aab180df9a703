package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenwen/etfadvisor/internal/market"
)

func frameFromCloses(closes []float64) market.Frame {
	frame := make(market.Frame, 0, len(closes))
	date := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for _, c := range closes {
		for wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday; wd = date.Weekday() {
			date = date.AddDate(0, 0, 1)
		}
		frame = append(frame, market.Bar{
			Date: date, Open: c, High: c * 1.01, Low: c * 0.99, Close: c, Volume: 1000,
		})
		date = date.AddDate(0, 0, 1)
	}
	return frame
}

func historyFromCloses(closes []float64) *market.History {
	daily := frameFromCloses(closes)
	return &market.History{Symbol: "510300", Daily: daily, Weekly: market.ResampleWeekly(daily)}
}

func TestRSIBounds(t *testing.T) {
	up := make([]float64, 30)
	down := make([]float64, 30)
	for i := range up {
		up[i] = 10 + float64(i)
		down[i] = 100 - float64(i)
	}
	assert.Equal(t, 100.0, RSI(up, 14))
	assert.Equal(t, 0.0, RSI(down, 14))
}

func TestRSIBalancedSeriesNearFifty(t *testing.T) {
	closes := []float64{100}
	for i := 0; i < 60; i++ {
		if i%2 == 0 {
			closes = append(closes, closes[len(closes)-1]+1)
		} else {
			closes = append(closes, closes[len(closes)-1]-1)
		}
	}
	assert.InDelta(t, 50, RSI(closes, 14), 5)
}

func TestRSIShortHistoryClamps(t *testing.T) {
	assert.Equal(t, 50.0, RSI([]float64{10}, 14))
	// two closes still produce a value without panicking
	assert.Equal(t, 100.0, RSI([]float64{10, 11}, 14))
}

func TestSMAClamps(t *testing.T) {
	assert.Equal(t, 2.0, SMA([]float64{1, 2, 3}, 20))
	assert.Equal(t, 3.5, SMA([]float64{1, 2, 3, 4}, 2))
}

func TestATRSeriesShrinksWarmup(t *testing.T) {
	frame := frameFromCloses([]float64{10, 10.2, 10.1, 10.4, 10.3})
	series := ATRSeries(frame, 14)
	require.NotEmpty(t, series)
	for _, v := range series {
		assert.Greater(t, v, 0.0)
	}
	assert.Nil(t, ATRSeries(frame[:1], 14))
}

func TestAnalyzeRejectsUnusableHistory(t *testing.T) {
	assert.Nil(t, Analyze(nil))
	assert.Nil(t, Analyze(historyFromCloses([]float64{1, 2, 3})))
}

func TestAnalyzeDowntrend(t *testing.T) {
	closes := make([]float64, 200)
	for i := range closes {
		closes[i] = 20 - float64(i)*0.05
	}
	snap := Analyze(historyFromCloses(closes))
	require.NotNil(t, snap)

	assert.Equal(t, TrendBear, snap.TrendDaily)
	assert.Equal(t, WeeklyDown, snap.TrendWeekly)
	assert.Less(t, snap.RSI14, 30.0)
	assert.Less(t, snap.Bias20Pct, 0.0)
	assert.Contains(t, snap.QuantReason, "weekly-bear")
	assert.Contains(t, snap.QuantReason, "rsi-deep-oversold")
}

func TestAnalyzeUptrend(t *testing.T) {
	closes := make([]float64, 200)
	for i := range closes {
		closes[i] = 10 + float64(i)*0.05
	}
	snap := Analyze(historyFromCloses(closes))
	require.NotNil(t, snap)

	assert.Equal(t, TrendBull, snap.TrendDaily)
	assert.Equal(t, WeeklyUp, snap.TrendWeekly)
	assert.Contains(t, snap.QuantReason, "weekly-bull")
}

func TestScoreTable(t *testing.T) {
	cases := []struct {
		name    string
		snap    Snapshot
		score   int
		reasons []string
	}{
		{
			name:    "weekly bull with weak rsi",
			snap:    Snapshot{TrendWeekly: WeeklyUp, TrendDaily: TrendBear, RSI14: 33, Bias20Pct: -1},
			score:   40 + 20,
			reasons: []string{"weekly-bull", "rsi-weak"},
		},
		{
			name:    "deep oversold deep bias",
			snap:    Snapshot{TrendWeekly: WeeklyUp, TrendDaily: TrendBear, RSI14: 25, Bias20Pct: -8},
			score:   40 + 40 + 15,
			reasons: []string{"weekly-bull", "rsi-deep-oversold", "bias-deep-negative"},
		},
		{
			name:    "overbought extension",
			snap:    Snapshot{TrendWeekly: WeeklyUp, TrendDaily: TrendBull, RSI14: 75, Bias20Pct: 7},
			score:   40 - 30 - 10,
			reasons: []string{"weekly-bull", "rsi-overbought", "bias-extended"},
		},
		{
			name:    "healthy daily trend",
			snap:    Snapshot{TrendWeekly: WeeklyUp, TrendDaily: TrendBull, RSI14: 55, Bias20Pct: 2},
			score:   40 + 20,
			reasons: []string{"weekly-bull", "daily-healthy"},
		},
		{
			name:    "deadcat bounce in weekly downtrend",
			snap:    Snapshot{TrendWeekly: WeeklyDown, TrendDaily: TrendBull, RSI14: 45, Bias20Pct: 1},
			score:   0, // -20 + 20, then capped at 45 (no-op) with tag
			reasons: []string{"weekly-bear", "daily-healthy", "downtrend-rebound-cap"},
		},
		{
			name:    "rebound capped at 45",
			snap:    Snapshot{TrendWeekly: WeeklyDown, TrendDaily: TrendBull, RSI14: 25, Bias20Pct: -6},
			score:   45, // -20+40+15+20 = 55 -> cap
			reasons: []string{"weekly-bear", "rsi-deep-oversold", "bias-deep-negative", "daily-healthy", "downtrend-rebound-cap"},
		},
		{
			name:    "high volatility penalty floors",
			snap:    Snapshot{TrendWeekly: WeeklyUp, TrendDaily: TrendBull, RSI14: 55, Bias20Pct: 2, HighVol: true},
			score:   48, // 60 * 0.8
			reasons: []string{"weekly-bull", "daily-healthy", "high-vol-penalty"},
		},
		{
			name:    "high volatility penalty on negative score floors down",
			snap:    Snapshot{TrendWeekly: WeeklyDown, TrendDaily: TrendBear, RSI14: 45, Bias20Pct: 0, HighVol: true},
			score:   -24, // (-20 - 10) * 0.8
			reasons: []string{"weekly-bear", "daily-deadcat", "high-vol-penalty"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, reasons := score(&tc.snap)
			assert.Equal(t, tc.score, got)
			assert.Equal(t, tc.reasons, reasons)
		})
	}
}
