package market

import (
	"sort"
	"time"
)

// Bar is one canonical OHLCV bar. Date carries no time-of-day and no
// location; every source normalizes into this shape.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Frame is an ordered sequence of bars, strictly ascending by date.
type Frame []Bar

// History is the per-symbol result of a successful fetch.
type History struct {
	Symbol string
	Daily  Frame
	Weekly Frame
}

// Day truncates t to a bare calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Normalize sorts bars ascending by date and drops duplicate dates,
// keeping the last occurrence.
func Normalize(bars []Bar) Frame {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	out := make(Frame, 0, len(bars))
	for _, bar := range bars {
		bar.Date = Day(bar.Date)
		if n := len(out); n > 0 && out[n-1].Date.Equal(bar.Date) {
			out[n-1] = bar
			continue
		}
		out = append(out, bar)
	}
	return out
}

// Closes returns the close column.
func (f Frame) Closes() []float64 {
	closes := make([]float64, len(f))
	for i, bar := range f {
		closes[i] = bar.Close
	}
	return closes
}

// Last returns the most recent bar. The frame must be non-empty.
func (f Frame) Last() Bar {
	return f[len(f)-1]
}

// weekAnchor maps a day to the Friday that closes its week. Saturday and
// Sunday roll into the following week, matching Friday-anchored resampling.
func weekAnchor(day time.Time) time.Time {
	offset := (int(time.Friday) - int(day.Weekday()) + 7) % 7
	return day.AddDate(0, 0, offset)
}

// ResampleWeekly aggregates a daily frame into Friday-anchored weekly bars:
// open=first, close=last, high=max, low=min, volume=sum. Weeks with no
// underlying bars simply do not appear.
func ResampleWeekly(daily Frame) Frame {
	var weekly Frame
	for _, bar := range daily {
		anchor := weekAnchor(bar.Date)
		if n := len(weekly); n > 0 && weekly[n-1].Date.Equal(anchor) {
			prev := &weekly[n-1]
			prev.Close = bar.Close
			if bar.High > prev.High {
				prev.High = bar.High
			}
			if bar.Low < prev.Low {
				prev.Low = bar.Low
			}
			prev.Volume += bar.Volume
			continue
		}
		weekly = append(weekly, Bar{
			Date:   anchor,
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		})
	}
	return weekly
}

// Usable reports whether the frames carry enough history for analysis:
// at least 60 daily bars and 5 weekly bars.
func (h *History) Usable() bool {
	return h != nil && len(h.Daily) >= 60 && len(h.Weekly) >= 5
}
