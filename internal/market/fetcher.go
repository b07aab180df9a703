package market

import (
	"context"
	"log"
	"time"

	"github.com/zenwen/etfadvisor/internal/retry"
)

// Source yields raw daily bars for a symbol. Implementations normalize
// their own wire formats into canonical Bars but leave ordering and
// de-duplication to the fetcher.
type Source interface {
	Name() string
	Fetch(ctx context.Context, symbol string) ([]Bar, error)
}

// binding attaches a retry policy to a source, making the retry semantics
// a value on the call site rather than behavior baked into the source.
type binding struct {
	source Source
	policy retry.Policy
}

// Fetcher walks an ordered source chain and returns normalized daily and
// weekly frames. Exhausting the chain is a per-symbol miss, not an error.
type Fetcher struct {
	chain []binding
}

// NewFetcher wires the production chain: Sina, then Eastmoney, then Yahoo.
// The regional sources get one retry each; the fallback gets three attempts.
func NewFetcher() *Fetcher {
	return &Fetcher{chain: []binding{
		{source: NewSinaSource(), policy: retry.Policy{Attempts: 2, Delay: 2 * time.Second}},
		{source: NewEastmoneySource(), policy: retry.Policy{Attempts: 2, Delay: 2 * time.Second}},
		{source: NewYahooSource(), policy: retry.Policy{Attempts: 3, Delay: 2 * time.Second}},
	}}
}

// NewFetcherWithChain builds a fetcher over explicit source/policy pairs.
// Sources are tried in the order given.
func NewFetcherWithChain(sources []Source, policies []retry.Policy) *Fetcher {
	chain := make([]binding, len(sources))
	for i, src := range sources {
		chain[i] = binding{source: src, policy: policies[i]}
	}
	return &Fetcher{chain: chain}
}

// History fetches a symbol through the chain, stopping at the first source
// that produces at least one bar. It returns nil when every source misses
// or the resulting frames are too short to analyze.
func (f *Fetcher) History(ctx context.Context, symbol string) *History {
	for _, b := range f.chain {
		var bars []Bar
		err := b.policy.Do(b.source.Name()+":"+symbol, func() error {
			var fetchErr error
			bars, fetchErr = b.source.Fetch(ctx, symbol)
			return fetchErr
		})
		if err != nil {
			log.Printf("[Fetcher] %s: source %s exhausted: %v", symbol, b.source.Name(), err)
			continue
		}
		if len(bars) == 0 {
			log.Printf("[Fetcher] %s: source %s returned no bars", symbol, b.source.Name())
			continue
		}

		daily := Normalize(bars)
		weekly := ResampleWeekly(daily)
		h := &History{Symbol: symbol, Daily: daily, Weekly: weekly}
		if !h.Usable() {
			log.Printf("[Fetcher] %s: %s history too short (%d daily / %d weekly bars)",
				symbol, b.source.Name(), len(daily), len(weekly))
			return nil
		}
		log.Printf("[Fetcher] %s: %d daily bars via %s", symbol, len(daily), b.source.Name())
		return h
	}

	log.Printf("[Fetcher] %s: all sources exhausted", symbol)
	return nil
}
