package market

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"

	"github.com/zenwen/etfadvisor/config"
)

// LongportQuoter overlays the daily history with an intraday price from
// the Longport OpenAPI. It is optional: the pipeline runs on the last
// close when no credentials are configured.
type LongportQuoter struct {
	quoteCtx *quote.QuoteContext
}

func NewLongportQuoter(cfg *config.Config) (*LongportQuoter, error) {
	if !cfg.LongportEnabled() {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(cfg.LongportAppKey, cfg.LongportAppSecret, cfg.LongportAccessToken))
	if err != nil {
		return nil, err
	}
	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}
	return &LongportQuoter{quoteCtx: quoteContext}, nil
}

// LatestPrice returns the close of the most recent daily candle, which
// during a trading session is the live price.
func (q *LongportQuoter) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	if q.quoteCtx == nil {
		return 0, errors.New("quote context is nil")
	}

	sticks, err := q.quoteCtx.Candlesticks(ctx, LongportSymbol(symbol), quote.PeriodDay, 1, quote.AdjustTypeNo)
	if err != nil {
		return 0, fmt.Errorf("longport candlesticks for %s: %w", symbol, err)
	}
	if len(sticks) == 0 {
		return 0, fmt.Errorf("longport returned no candles for %s", symbol)
	}

	price, _ := sticks[len(sticks)-1].Close.Float64()
	return price, nil
}

// LongportSymbol maps a bare fund code to Longport's market-suffixed
// form, e.g. "510300" -> "510300.SH".
func LongportSymbol(symbol string) string {
	if strings.Contains(symbol, ".") {
		return symbol
	}
	if ExchangePrefix(symbol) == "sh" {
		return symbol + ".SH"
	}
	return symbol + ".SZ"
}
