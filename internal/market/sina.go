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

const sinaKlineURL = "https://quotes.sina.cn/cn/api/jsonp_v2.php/var_%s/CN_MarketDataService.getKLineData"

// sinaBar is the wire shape of one Sina kline row. All numeric fields
// arrive as strings.
type sinaBar struct {
	Day    string `json:"day"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

// SinaSource fetches daily kline data from the Sina quotes JSONP API.
// It is the primary source in the failover chain.
type SinaSource struct {
	client *resty.Client
}

func NewSinaSource() *SinaSource {
	client := resty.New()
	client.SetTimeout(10 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	client.SetHeader("Referer", "https://finance.sina.com.cn")
	return &SinaSource{client: client}
}

func (s *SinaSource) Name() string { return "sina" }

func (s *SinaSource) Fetch(ctx context.Context, symbol string) ([]Bar, error) {
	prefixed := ExchangePrefix(symbol) + symbol

	url := fmt.Sprintf(sinaKlineURL, prefixed)
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":  prefixed,
			"scale":   "240", // daily bars
			"ma":      "no",
			"datalen": "1023",
		}).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("sina request for %s: %w", symbol, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("sina HTTP %d for %s", resp.StatusCode(), symbol)
	}

	body, err := stripJSONP(resp.String())
	if err != nil {
		return nil, fmt.Errorf("sina response for %s: %w", symbol, err)
	}

	var rows []sinaBar
	if err := json.Unmarshal([]byte(body), &rows); err != nil {
		return nil, fmt.Errorf("sina decode for %s: %w", symbol, err)
	}

	bars := make([]Bar, 0, len(rows))
	for _, row := range rows {
		bar, err := row.toBar()
		if err != nil {
			return nil, fmt.Errorf("sina row for %s: %w", symbol, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func (r sinaBar) toBar() (Bar, error) {
	date, err := time.Parse("2006-01-02", r.Day)
	if err != nil {
		return Bar{}, err
	}
	open, err := strconv.ParseFloat(r.Open, 64)
	if err != nil {
		return Bar{}, err
	}
	high, err := strconv.ParseFloat(r.High, 64)
	if err != nil {
		return Bar{}, err
	}
	low, err := strconv.ParseFloat(r.Low, 64)
	if err != nil {
		return Bar{}, err
	}
	closePx, err := strconv.ParseFloat(r.Close, 64)
	if err != nil {
		return Bar{}, err
	}
	// some symbols come back without volume
	volume, _ := strconv.ParseFloat(r.Volume, 64)

	return Bar{
		Date:   Day(date),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePx,
		Volume: volume,
	}, nil
}

// stripJSONP unwraps a var_x(...) JSONP envelope.
func stripJSONP(text string) (string, error) {
	start := strings.Index(text, "(")
	end := strings.LastIndex(text, ")")
	if start < 0 || end <= start {
		return "", fmt.Errorf("malformed JSONP envelope")
	}
	return text[start+1 : end], nil
}

// ExchangePrefix derives the market prefix from a six-digit fund code:
// codes starting with 5 or 6 trade on Shanghai, everything else on Shenzhen.
func ExchangePrefix(symbol string) string {
	if strings.HasPrefix(symbol, "5") || strings.HasPrefix(symbol, "6") {
		return "sh"
	}
	return "sz"
}
