package advisor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/zenwen/etfadvisor/config"
	"github.com/zenwen/etfadvisor/internal/analyst"
	"github.com/zenwen/etfadvisor/internal/indicators"
	"github.com/zenwen/etfadvisor/internal/market"
	"github.com/zenwen/etfadvisor/internal/news"
	"github.com/zenwen/etfadvisor/internal/strategy"
	"github.com/zenwen/etfadvisor/internal/valuation"
)

// benchmarkSymbol anchors the macro market context handed to the analyst.
const benchmarkSymbol = "510300"

// HistorySource yields normalized candle history for a fund code.
type HistorySource interface {
	History(ctx context.Context, symbol string) *market.History
}

// NewsSource yields macro and sector headlines.
type NewsSource interface {
	MacroHeadlines() []news.Headline
	SectorHeadlines(keyword string) []string
}

// Opinion is the LLM analyst seam. Implementations never return an error:
// a degraded verdict stands in when the model is unreachable.
type Opinion interface {
	Analyze(ctx context.Context, req analyst.Request) analyst.Verdict
}

// QuoteSource supplies an intraday price to overlay on the last close.
type QuoteSource interface {
	LatestPrice(ctx context.Context, symbol string) (float64, error)
}

// FundRecord is the per-fund outcome of one batch run.
type FundRecord struct {
	Fund             config.Fund
	Snapshot         *indicators.Snapshot
	Valuation        valuation.Snapshot
	SectorNews       []string
	Verdict          *analyst.Verdict
	Decision         *strategy.Decision
	DataInsufficient bool
	Err              string
}

// Skipped reports whether the fund produced no decision.
func (r FundRecord) Skipped() bool {
	return r.Decision == nil
}

// Report is the result of one full batch run over the configured funds.
type Report struct {
	Date    time.Time
	Macro   []news.Headline
	Market  analyst.MarketContext
	Records []FundRecord
}

// Advisor drives the daily pipeline: history, indicators, valuation, news,
// analyst verdict, and finally the sized decision, one fund at a time.
type Advisor struct {
	cfg     *config.Config
	markets HistorySource
	news    NewsSource
	opinion Opinion
	quotes  QuoteSource
	engine  *strategy.Engine
	sleep   func(time.Duration)
}

// New wires the production pipeline. The analyst and realtime quotes are
// optional: a missing API key degrades the run instead of failing it.
func New(ctx context.Context, cfg *config.Config) (*Advisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Advisor{
		cfg:     cfg,
		markets: market.NewFetcher(),
		news:    news.NewClient(cfg),
		engine:  strategy.NewEngine(cfg),
		sleep:   time.Sleep,
	}

	if cfg.AnalystEnabled() {
		an, err := analyst.New(ctx, cfg)
		if err != nil {
			log.Printf("[Advisor] analyst unavailable, running rule-only: %v", err)
		} else {
			a.opinion = an
		}
	}
	if cfg.LongportEnabled() {
		q, err := market.NewLongportQuoter(cfg)
		if err != nil {
			log.Printf("[Advisor] longport quotes unavailable: %v", err)
		} else {
			a.quotes = q
		}
	}
	return a, nil
}

// Run processes every configured fund sequentially. One fund's failure
// never aborts the batch.
func (a *Advisor) Run(ctx context.Context) *Report {
	started := time.Now()
	report := &Report{
		Date:   started,
		Macro:  a.news.MacroHeadlines(),
		Market: a.benchmarkContext(ctx),
	}

	log.Printf("[Advisor] batch run started, %d funds", len(a.cfg.Funds))
	for _, fund := range a.cfg.Funds {
		record := a.processFund(ctx, fund, report.Market)
		report.Records = append(report.Records, record)
	}
	log.Printf("[Advisor] batch run finished in %s", time.Since(started).Round(time.Millisecond))
	return report
}

// processFund runs the pipeline for one fund. Panics and errors are
// captured into the record so the batch keeps going.
func (a *Advisor) processFund(ctx context.Context, fund config.Fund, marketCtx analyst.MarketContext) (rec FundRecord) {
	rec.Fund = fund
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Advisor] %s(%s) panicked: %v", fund.Name, fund.Code, r)
			rec.Err = fmt.Sprintf("panic: %v", r)
		}
	}()

	history := a.markets.History(ctx, fund.Code)
	if history == nil {
		log.Printf("[Advisor] %s(%s): no usable history, skipping", fund.Name, fund.Code)
		rec.DataInsufficient = true
		return rec
	}

	snapshot := indicators.Analyze(history)
	if snapshot == nil {
		rec.DataInsufficient = true
		return rec
	}
	if a.quotes != nil {
		if price, err := a.quotes.LatestPrice(ctx, fund.Code); err == nil && price > 0 {
			snapshot.Price = price
		} else if err != nil {
			log.Printf("[Advisor] %s realtime quote failed, using last close: %v", fund.Code, err)
		}
	}
	rec.Snapshot = snapshot
	rec.Valuation = valuation.Evaluate(history.Daily.Closes())
	rec.SectorNews = a.news.SectorHeadlines(fund.SectorKeyword)

	var sentiment *int
	if a.opinion != nil {
		verdict := a.opinion.Analyze(ctx, analyst.Request{
			FundName:      fund.Name,
			SectorKeyword: fund.SectorKeyword,
			Headlines:     rec.SectorNews,
			Market:        marketCtx,
			Snapshot:      snapshot,
		})
		rec.Verdict = &verdict
		sentiment = verdict.SentimentScore()
		a.cooldown()
	} else if a.cfg.CooldownAlways {
		a.cooldown()
	}

	decision := a.engine.Decide(strategy.Inputs{
		Snapshot:  snapshot,
		Sentiment: sentiment,
		Valuation: rec.Valuation,
	})
	rec.Decision = &decision
	log.Printf("[Advisor] %s(%s): %s %d CNY risk=%s", fund.Name, fund.Code,
		decision.Label(), decision.AmountCNY, decision.Risk)
	return rec
}

// cooldown spaces out upstream calls between funds.
func (a *Advisor) cooldown() {
	if a.cfg.CooldownSeconds <= 0 {
		return
	}
	a.sleep(time.Duration(a.cfg.CooldownSeconds) * time.Second)
}

// benchmarkContext summarizes the broad market as a 5-day CSI300 change.
func (a *Advisor) benchmarkContext(ctx context.Context) analyst.MarketContext {
	mc := analyst.MarketContext{Label: "沪深300近5日", Value: "数据暂缺"}
	history := a.markets.History(ctx, benchmarkSymbol)
	if history == nil {
		return mc
	}
	closes := history.Daily.Closes()
	if len(closes) < 6 {
		return mc
	}
	last := closes[len(closes)-1]
	prev := closes[len(closes)-6]
	if prev == 0 {
		return mc
	}
	mc.Value = fmt.Sprintf("%+.2f%%", (last/prev-1)*100)
	return mc
}
