package indicators

import (
	"fmt"
	"math"

	"github.com/zenwen/etfadvisor/internal/market"
)

// Daily trend states.
const (
	TrendBull = "BULL"
	TrendBear = "BEAR"
)

// Weekly trend states.
const (
	WeeklyUp      = "UP"
	WeeklyDown    = "DOWN"
	WeeklyUnknown = "UNKNOWN"
)

const (
	rsiPeriod      = 14
	maPeriod       = 20
	atrPeriod      = 14
	atrMeanWindow  = 60
	weeklyMAPeriod = 10
	highVolRatio   = 1.5
)

// Snapshot is the technical state of one fund on its latest bar.
type Snapshot struct {
	Price       float64  `json:"price"`
	RSI14       float64  `json:"rsi14"`
	MA20        float64  `json:"ma20"`
	Bias20Pct   float64  `json:"bias20_pct"`
	ATR14       float64  `json:"atr14"`
	ATRMean60   float64  `json:"atr_mean60"`
	HighVol     bool     `json:"high_vol_flag"`
	TrendDaily  string   `json:"trend_daily"`
	TrendWeekly string   `json:"trend_weekly"`
	QuantScore  int      `json:"quant_score"`
	QuantReason []string `json:"quant_reasons"`
}

// Analyze computes the snapshot for a usable history. It returns nil when
// the history fails the usability gate or a computation cannot proceed;
// short trailing windows are clamped, never treated as errors.
func Analyze(h *market.History) *Snapshot {
	if !h.Usable() {
		return nil
	}

	closes := h.Daily.Closes()
	price := closes[len(closes)-1]

	ma20 := SMA(closes, maPeriod)
	if ma20 == 0 {
		return nil
	}
	rsi := RSI(closes, rsiPeriod)
	bias := (price - ma20) / ma20 * 100

	atrSeries := ATRSeries(h.Daily, atrPeriod)
	if len(atrSeries) == 0 {
		return nil
	}
	atr := atrSeries[len(atrSeries)-1]
	atrMean := tailMean(atrSeries, atrMeanWindow)

	snap := &Snapshot{
		Price:       price,
		RSI14:       rsi,
		MA20:        ma20,
		Bias20Pct:   bias,
		ATR14:       atr,
		ATRMean60:   atrMean,
		HighVol:     atr > highVolRatio*atrMean,
		TrendDaily:  dailyTrend(price, ma20),
		TrendWeekly: weeklyTrend(h.Weekly),
	}
	snap.QuantScore, snap.QuantReason = score(snap)
	return snap
}

func dailyTrend(price, ma20 float64) string {
	if price >= ma20 {
		return TrendBull
	}
	return TrendBear
}

// weeklyTrend compares the latest weekly close against its 10-week simple
// average, clamped to the weeks available.
func weeklyTrend(weekly market.Frame) string {
	if len(weekly) < 5 {
		return WeeklyUnknown
	}
	closes := weekly.Closes()
	period := weeklyMAPeriod
	if len(closes) < period {
		period = len(closes)
	}
	ma := SMA(closes, period)
	if closes[len(closes)-1] >= ma {
		return WeeklyUp
	}
	return WeeklyDown
}

// scoreRule is one additive contribution to the quant score.
type scoreRule struct {
	match  func(*Snapshot) bool
	delta  int
	reason string
}

// The rule order is part of the contract: reasons accumulate in this order.
var scoreRules = []scoreRule{
	{func(s *Snapshot) bool { return s.TrendWeekly == WeeklyUp }, 40, "weekly-bull"},
	{func(s *Snapshot) bool { return s.TrendWeekly == WeeklyDown }, -20, "weekly-bear"},
	{func(s *Snapshot) bool { return s.RSI14 < 30 }, 40, "rsi-deep-oversold"},
	{func(s *Snapshot) bool { return s.RSI14 >= 30 && s.RSI14 < 40 }, 20, "rsi-weak"},
	{func(s *Snapshot) bool { return s.RSI14 > 70 }, -30, "rsi-overbought"},
	{func(s *Snapshot) bool { return s.Bias20Pct < -5 }, 15, "bias-deep-negative"},
	{func(s *Snapshot) bool { return s.Bias20Pct > 5 }, -10, "bias-extended"},
	{func(s *Snapshot) bool { return s.TrendDaily == TrendBull && s.RSI14 < 60 }, 20, "daily-healthy"},
	{func(s *Snapshot) bool { return s.TrendDaily == TrendBear && s.RSI14 > 40 }, -10, "daily-deadcat"},
}

func score(s *Snapshot) (int, []string) {
	total := 0
	var reasons []string
	for _, rule := range scoreRules {
		if rule.match(s) {
			total += rule.delta
			reasons = append(reasons, rule.reason)
		}
	}

	if s.HighVol {
		total = int(math.Floor(float64(total) * 0.8))
		reasons = append(reasons, "high-vol-penalty")
	}
	if s.TrendWeekly == WeeklyDown && s.TrendDaily == TrendBull {
		if total > 45 {
			total = 45
		}
		reasons = append(reasons, "downtrend-rebound-cap")
	}
	return total, reasons
}

// Describe renders a one-line summary for logs.
func (s *Snapshot) Describe() string {
	return fmt.Sprintf("price=%.3f rsi=%.1f bias20=%.2f%% daily=%s weekly=%s score=%d",
		s.Price, s.RSI14, s.Bias20Pct, s.TrendDaily, s.TrendWeekly, s.QuantScore)
}

// SMA is the simple moving average of the trailing period, clamped to the
// data available.
func SMA(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if period > len(values) {
		period = len(values)
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// RSI is Wilder's relative strength index over the trailing closes. It
// clamps the period when history is short and pins to 100 when no losses
// occurred in the window.
func RSI(closes []float64, period int) float64 {
	if len(closes) < 2 {
		return 50
	}
	if len(closes) <= period {
		period = len(closes) - 1
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// ATRSeries computes the Wilder average true range for every bar past the
// warmup. With fewer bars than the period, the warmup shrinks to fit.
func ATRSeries(frame market.Frame, period int) []float64 {
	if len(frame) < 2 {
		return nil
	}

	trs := make([]float64, 0, len(frame)-1)
	for i := 1; i < len(frame); i++ {
		trs = append(trs, trueRange(frame[i], frame[i-1].Close))
	}

	if period > len(trs) {
		period = len(trs)
	}

	warm := 0.0
	for _, tr := range trs[:period] {
		warm += tr
	}
	atr := warm / float64(period)

	series := []float64{atr}
	for _, tr := range trs[period:] {
		atr = (atr*float64(period-1) + tr) / float64(period)
		series = append(series, atr)
	}
	return series
}

func trueRange(bar market.Bar, prevClose float64) float64 {
	tr := bar.High - bar.Low
	if d := math.Abs(bar.High - prevClose); d > tr {
		tr = d
	}
	if d := math.Abs(bar.Low - prevClose); d > tr {
		tr = d
	}
	return tr
}

func tailMean(values []float64, window int) float64 {
	if len(values) == 0 {
		return 0
	}
	if window > len(values) {
		window = len(values)
	}
	sum := 0.0
	for _, v := range values[len(values)-window:] {
		sum += v
	}
	return sum / float64(window)
}
