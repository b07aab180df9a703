package market

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const eastmoneyKlineURL = "https://push2his.eastmoney.com/api/qt/stock/kline/get"

// EastmoneySource fetches forward-adjusted daily kline data from the
// Eastmoney push2his API. It is the secondary source in the failover chain.
type EastmoneySource struct {
	client *resty.Client
}

func NewEastmoneySource() *EastmoneySource {
	client := resty.New()
	client.SetTimeout(10 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	client.SetHeader("Referer", "https://quote.eastmoney.com")
	return &EastmoneySource{client: client}
}

func (s *EastmoneySource) Name() string { return "eastmoney" }

// secid prefixes the symbol with the Eastmoney exchange code:
// 1 for Shanghai, 0 for Shenzhen.
func secid(symbol string) string {
	if ExchangePrefix(symbol) == "sh" {
		return "1." + symbol
	}
	return "0." + symbol
}

func (s *EastmoneySource) Fetch(ctx context.Context, symbol string) ([]Bar, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"secid":   secid(symbol),
			"fields1": "f1,f2,f3,f4,f5,f6",
			"fields2": "f51,f52,f53,f54,f55,f56,f57",
			"klt":     "101", // daily bars
			"fqt":     "1",   // forward adjusted
			"end":     "20500101",
			"lmt":     "2000",
		}).
		Get(eastmoneyKlineURL)
	if err != nil {
		return nil, fmt.Errorf("eastmoney request for %s: %w", symbol, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("eastmoney HTTP %d for %s", resp.StatusCode(), symbol)
	}

	var payload struct {
		Data struct {
			Klines []string `json:"klines"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("eastmoney decode for %s: %w", symbol, err)
	}

	bars := make([]Bar, 0, len(payload.Data.Klines))
	for _, line := range payload.Data.Klines {
		bar, err := parseEastmoneyKline(line)
		if err != nil {
			return nil, fmt.Errorf("eastmoney row for %s: %w", symbol, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// parseEastmoneyKline decodes one comma-joined kline row:
// date,open,close,high,low,volume,amount
func parseEastmoneyKline(line string) (Bar, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 6 {
		return Bar{}, fmt.Errorf("short kline row %q", line)
	}

	date, err := time.Parse("2006-01-02", parts[0])
	if err != nil {
		return Bar{}, err
	}
	open, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Bar{}, err
	}
	closePx, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return Bar{}, err
	}
	high, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		return Bar{}, err
	}
	low, err := strconv.ParseFloat(parts[4], 64)
	if err != nil {
		return Bar{}, err
	}
	volume, _ := strconv.ParseFloat(parts[5], 64)

	return Bar{
		Date:   Day(date),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePx,
		Volume: volume,
	}, nil
}
