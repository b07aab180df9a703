package market

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
)

// YahooSource fetches roughly a year of daily bars from Yahoo Finance via
// the chart API. It is the last source in the failover chain and the only
// one that needs an exchange suffix on the symbol.
type YahooSource struct {
	window time.Duration
}

func NewYahooSource() *YahooSource {
	return &YahooSource{window: 365 * 24 * time.Hour}
}

func (s *YahooSource) Name() string { return "yahoo" }

// yahooSymbol appends the exchange suffix: .SS for Shanghai, .SZ for
// Shenzhen, by the same leading-digit rule all sources share.
func yahooSymbol(symbol string) string {
	if ExchangePrefix(symbol) == "sh" {
		return symbol + ".SS"
	}
	return symbol + ".SZ"
}

func (s *YahooSource) Fetch(ctx context.Context, symbol string) ([]Bar, error) {
	end := time.Now()
	start := end.Add(-s.window)

	params := &chart.Params{
		Symbol:   yahooSymbol(symbol),
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)

	var bars []Bar
	for iter.Next() {
		row := iter.Bar()
		// the chart timestamps carry intraday time; keep the calendar day only
		bars = append(bars, Bar{
			Date:   Day(time.Unix(int64(row.Timestamp), 0)),
			Open:   row.Open.InexactFloat64(),
			High:   row.High.InexactFloat64(),
			Low:    row.Low.InexactFloat64(),
			Close:  row.AdjClose.InexactFloat64(),
			Volume: float64(row.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo chart for %s: %w", symbol, err)
	}
	return bars, nil
}
