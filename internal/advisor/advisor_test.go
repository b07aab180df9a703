package advisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenwen/etfadvisor/config"
	"github.com/zenwen/etfadvisor/internal/analyst"
	"github.com/zenwen/etfadvisor/internal/market"
	"github.com/zenwen/etfadvisor/internal/news"
	"github.com/zenwen/etfadvisor/internal/strategy"
)

type fakeHistories struct {
	histories map[string]*market.History
	calls     []string
}

func (f *fakeHistories) History(_ context.Context, symbol string) *market.History {
	f.calls = append(f.calls, symbol)
	return f.histories[symbol]
}

type fakeNews struct{}

func (fakeNews) MacroHeadlines() []news.Headline {
	return []news.Headline{{Title: "央行维持利率不变", Source: "新华社"}}
}

func (fakeNews) SectorHeadlines(keyword string) []string {
	return []string{keyword + "板块资金流入"}
}

type fakeOpinion struct {
	verdict analyst.Verdict
	calls   int
	panics  bool
}

func (f *fakeOpinion) Analyze(context.Context, analyst.Request) analyst.Verdict {
	f.calls++
	if f.panics {
		panic("model blew up")
	}
	return f.verdict
}

type fakeQuotes struct {
	price float64
	err   error
}

func (f *fakeQuotes) LatestPrice(context.Context, string) (float64, error) {
	return f.price, f.err
}

// syntheticHistory builds a usable gently rising daily series.
func syntheticHistory(symbol string, days int) *market.History {
	bars := make(market.Frame, 0, days)
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	price := 1.0
	for len(bars) < days {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			price *= 1.001
			bars = append(bars, market.Bar{
				Date: day, Open: price * 0.999, High: price * 1.002,
				Low: price * 0.997, Close: price, Volume: 1e6,
			})
		}
		day = day.AddDate(0, 0, 1)
	}
	h := &market.History{Symbol: symbol, Daily: bars}
	h.Weekly = market.ResampleWeekly(h.Daily)
	return h
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Funds = []config.Fund{
		{Code: "510300", Name: "沪深300ETF", SectorKeyword: "宽基"},
		{Code: "512880", Name: "证券ETF", SectorKeyword: "券商"},
	}
	cfg.CooldownSeconds = 10
	cfg.LLMAPIKey = ""
	return cfg
}

func testAdvisor(cfg *config.Config, histories *fakeHistories, opinion Opinion, quotes QuoteSource, sleeps *[]time.Duration) *Advisor {
	return &Advisor{
		cfg:     cfg,
		markets: histories,
		news:    fakeNews{},
		opinion: opinion,
		quotes:  quotes,
		engine:  strategy.NewEngine(cfg),
		sleep: func(d time.Duration) {
			if sleeps != nil {
				*sleeps = append(*sleeps, d)
			}
		},
	}
}

func TestRunProducesDecisionPerFund(t *testing.T) {
	cfg := testConfig()
	histories := &fakeHistories{histories: map[string]*market.History{
		"510300": syntheticHistory("510300", 200),
		"512880": syntheticHistory("512880", 200),
	}}
	opinion := &fakeOpinion{verdict: analyst.Verdict{
		Thesis: "趋势延续", ActionAdvice: analyst.AdviceBuy, Confidence: 7,
	}}
	var sleeps []time.Duration
	a := testAdvisor(cfg, histories, opinion, nil, &sleeps)

	report := a.Run(context.Background())

	require.Len(t, report.Records, 2)
	for _, rec := range report.Records {
		assert.NotNil(t, rec.Snapshot)
		assert.NotNil(t, rec.Decision)
		assert.NotNil(t, rec.Verdict)
		assert.False(t, rec.DataInsufficient)
		assert.NotEmpty(t, rec.SectorNews)
	}
	assert.Equal(t, 2, opinion.calls)
	assert.NotEmpty(t, report.Macro)
	// one cooldown after each analyst call
	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second}, sleeps)
}

func TestRunMarksInsufficientDataAndContinues(t *testing.T) {
	cfg := testConfig()
	histories := &fakeHistories{histories: map[string]*market.History{
		// first fund has no data at all, second is fine
		"512880": syntheticHistory("512880", 200),
	}}
	a := testAdvisor(cfg, histories, nil, nil, nil)

	report := a.Run(context.Background())

	require.Len(t, report.Records, 2)
	first, second := report.Records[0], report.Records[1]
	assert.True(t, first.DataInsufficient)
	assert.True(t, first.Skipped())
	assert.Nil(t, first.Snapshot)
	assert.False(t, second.DataInsufficient)
	assert.NotNil(t, second.Decision)
}

func TestRunSurvivesAnalystPanic(t *testing.T) {
	cfg := testConfig()
	histories := &fakeHistories{histories: map[string]*market.History{
		"510300": syntheticHistory("510300", 200),
		"512880": syntheticHistory("512880", 200),
	}}
	a := testAdvisor(cfg, histories, &fakeOpinion{panics: true}, nil, nil)

	report := a.Run(context.Background())

	require.Len(t, report.Records, 2)
	for _, rec := range report.Records {
		assert.Contains(t, rec.Err, "panic")
		assert.True(t, rec.Skipped())
	}
}

func TestCooldownSkippedWithoutAnalyst(t *testing.T) {
	cfg := testConfig()
	histories := &fakeHistories{histories: map[string]*market.History{
		"510300": syntheticHistory("510300", 200),
		"512880": syntheticHistory("512880", 200),
	}}
	var sleeps []time.Duration
	a := testAdvisor(cfg, histories, nil, nil, &sleeps)

	a.Run(context.Background())
	assert.Empty(t, sleeps)

	cfg.CooldownAlways = true
	sleeps = nil
	a.Run(context.Background())
	assert.Len(t, sleeps, 2)
}

func TestRealtimeQuoteOverlaysPrice(t *testing.T) {
	cfg := testConfig()
	cfg.Funds = cfg.Funds[:1]
	histories := &fakeHistories{histories: map[string]*market.History{
		"510300": syntheticHistory("510300", 200),
	}}
	a := testAdvisor(cfg, histories, nil, &fakeQuotes{price: 9.99}, nil)

	report := a.Run(context.Background())

	require.Len(t, report.Records, 1)
	require.NotNil(t, report.Records[0].Snapshot)
	assert.Equal(t, 9.99, report.Records[0].Snapshot.Price)
}

func TestBenchmarkContextFiveDayChange(t *testing.T) {
	cfg := testConfig()
	histories := &fakeHistories{histories: map[string]*market.History{
		"510300": syntheticHistory("510300", 200),
	}}
	a := testAdvisor(cfg, histories, nil, nil, nil)

	mc := a.benchmarkContext(context.Background())
	assert.Equal(t, "沪深300近5日", mc.Label)
	assert.Regexp(t, `^[+-]\d+\.\d{2}%$`, mc.Value)

	a.markets = &fakeHistories{histories: map[string]*market.History{}}
	mc = a.benchmarkContext(context.Background())
	assert.Equal(t, "数据暂缺", mc.Value)
}

func TestNeutralVerdictFeedsDefaultSentiment(t *testing.T) {
	cfg := testConfig()
	cfg.Funds = cfg.Funds[:1]
	histories := &fakeHistories{histories: map[string]*market.History{
		"510300": syntheticHistory("510300", 200),
	}}
	degraded := &fakeOpinion{verdict: analyst.NeutralVerdict()}
	a := testAdvisor(cfg, histories, degraded, nil, nil)

	report := a.Run(context.Background())

	rec := report.Records[0]
	require.NotNil(t, rec.Verdict)
	assert.True(t, rec.Verdict.Degraded)
	assert.Nil(t, rec.Verdict.SentimentScore())
	// the engine still decided, treating sentiment as neutral
	require.NotNil(t, rec.Decision)
}
