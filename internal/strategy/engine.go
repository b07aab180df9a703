package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/zenwen/etfadvisor/config"
	"github.com/zenwen/etfadvisor/internal/indicators"
	"github.com/zenwen/etfadvisor/internal/valuation"
)

// Actions a decision may carry.
const (
	ActionStrongBuy  = "STRONG_BUY"
	ActionBuy        = "BUY"
	ActionHold       = "HOLD"
	ActionTrim       = "TRIM"
	ActionSell       = "SELL"
	ActionSmallProbe = "SMALL_PROBE"
	ActionRegularDCA = "REGULAR_DCA"
)

// Risk labels.
const (
	RiskLow  = "LOW"
	RiskMed  = "MED"
	RiskHigh = "HIGH"
)

// neutralSentiment stands in when the analyst supplied no score.
const neutralSentiment = 5

// Decision is the strategy output for one fund.
type Decision struct {
	Action    string   `json:"action"`
	Tactic    string   `json:"tactic,omitempty"`
	AmountCNY int64    `json:"amount_cny"`
	Risk      string   `json:"risk"`
	Reasons   []string `json:"reasons"`
}

// Label renders the action with its tactic, e.g. "BUY (oversold-bounce)".
func (d Decision) Label() string {
	if d.Tactic == "" {
		return d.Action
	}
	return fmt.Sprintf("%s (%s)", d.Action, d.Tactic)
}

// Inputs collects everything a decision depends on. Sentiment is nil when
// the analyst was disabled or degraded.
type Inputs struct {
	Snapshot  *indicators.Snapshot
	Sentiment *int
	Valuation valuation.Snapshot
}

// draft is a rule's raw verdict before sizing post-processing.
type draft struct {
	action string
	tactic string
	amount decimal.Decimal
	risk   string
	reason string
}

// rule pairs a predicate with a decision producer. produce may decline
// (second return false) to pass control to the next rule.
type rule struct {
	name    string
	applies func(e *Engine, s *indicators.Snapshot, sentiment int) bool
	produce func(e *Engine, s *indicators.Snapshot, sentiment int) (draft, bool)
}

// Engine turns an indicator snapshot plus an optional sentiment score into
// a sized decision. Decide is pure: same inputs, same decision.
type Engine struct {
	base     decimal.Decimal
	maxDaily decimal.Decimal
	rsiBuy   float64
	rsiSell  float64
	rules    []rule
}

func NewEngine(cfg *config.Config) *Engine {
	e := &Engine{
		base:     decimal.NewFromInt(int64(cfg.BaseInvestAmount)),
		maxDaily: decimal.NewFromInt(int64(cfg.MaxDailyInvest)),
		rsiBuy:   cfg.RSIBuyThreshold,
		rsiSell:  cfg.RSISellThreshold,
	}
	e.rules = orderedRules()
	return e
}

// orderedRules is the decision table. Order is part of the contract:
// the first rule whose predicate holds and whose producer decides wins.
func orderedRules() []rule {
	return []rule{
		{
			name: "oversold-left-side",
			applies: func(e *Engine, s *indicators.Snapshot, _ int) bool {
				return s.RSI14 < e.rsiBuy
			},
			produce: func(e *Engine, s *indicators.Snapshot, sentiment int) (draft, bool) {
				if sentiment >= 4 {
					multiplier := 1.0 + (e.rsiBuy-s.RSI14)/e.rsiBuy
					if multiplier > 2.0 {
						multiplier = 2.0
					}
					return draft{
						action: ActionBuy,
						tactic: "oversold-bounce",
						amount: e.base.Mul(decimal.NewFromFloat(multiplier)),
						risk:   RiskMed,
						reason: fmt.Sprintf("RSI %.1f 低于买入阈值 %.0f 且情绪分 %d 未恶化，左侧加码 %.2f 倍", s.RSI14, e.rsiBuy, sentiment, multiplier),
					}, true
				}
				return draft{
					action: ActionSmallProbe,
					amount: e.base.Mul(decimal.NewFromFloat(0.3)),
					risk:   RiskLow,
					reason: fmt.Sprintf("RSI %.1f 超卖但情绪分 %d 偏弱，仅小额试探", s.RSI14, sentiment),
				}, true
			},
		},
		{
			name: "trend-right-side",
			applies: func(e *Engine, s *indicators.Snapshot, _ int) bool {
				return s.TrendDaily == indicators.TrendBull && s.RSI14 < 65
			},
			produce: func(e *Engine, s *indicators.Snapshot, sentiment int) (draft, bool) {
				switch {
				case sentiment >= 7:
					return draft{
						action: ActionBuy,
						tactic: "trend",
						amount: e.base.Mul(decimal.NewFromFloat(1.2)),
						risk:   RiskLow,
						reason: fmt.Sprintf("日线多头且情绪分 %d 强势，右侧顺势买入", sentiment),
					}, true
				case sentiment >= 5:
					return draft{
						action: ActionRegularDCA,
						amount: e.base,
						risk:   RiskLow,
						reason: fmt.Sprintf("日线多头，情绪分 %d 中性，执行常规定投", sentiment),
					}, true
				}
				return draft{}, false
			},
		},
		{
			name: "overbought",
			applies: func(e *Engine, s *indicators.Snapshot, _ int) bool {
				return s.RSI14 > e.rsiSell
			},
			produce: func(e *Engine, s *indicators.Snapshot, _ int) (draft, bool) {
				return draft{
					action: ActionTrim,
					amount: decimal.Zero,
					risk:   RiskHigh,
					reason: fmt.Sprintf("RSI %.1f 高于卖出阈值 %.0f，超买减仓", s.RSI14, e.rsiSell),
				}, true
			},
		},
		{
			name: "range-accumulation",
			applies: func(_ *Engine, s *indicators.Snapshot, _ int) bool {
				return s.TrendDaily == indicators.TrendBear && s.Bias20Pct > -5 && s.Bias20Pct < 5
			},
			produce: func(e *Engine, s *indicators.Snapshot, sentiment int) (draft, bool) {
				if sentiment >= 5 {
					return draft{
						action: ActionRegularDCA,
						amount: e.base,
						risk:   RiskLow,
						reason: fmt.Sprintf("日线空头但乖离率 %.2f%% 处于震荡区间，情绪分 %d 未转差，继续定投", s.Bias20Pct, sentiment),
					}, true
				}
				return draft{
					action: ActionHold,
					amount: decimal.Zero,
					risk:   RiskLow,
					reason: fmt.Sprintf("震荡区间且情绪分 %d 偏弱，观望", sentiment),
				}, true
			},
		},
	}
}

// Decide walks the rule table and sizes the winning draft with the
// valuation multiplier, the daily cap, and the risk escalation.
func (e *Engine) Decide(in Inputs) Decision {
	sentiment := neutralSentiment
	if in.Sentiment != nil {
		sentiment = *in.Sentiment
	}

	d := draft{
		action: ActionHold,
		amount: decimal.Zero,
		risk:   RiskLow,
		reason: "无规则触发，保持持仓不动",
	}
	for _, r := range e.rules {
		if !r.applies(e, in.Snapshot, sentiment) {
			continue
		}
		if produced, decided := r.produce(e, in.Snapshot, sentiment); decided {
			d = produced
			break
		}
	}

	reasons := []string{d.reason}

	amount := d.amount
	if !amount.IsZero() {
		amount = amount.Mul(decimal.NewFromFloat(in.Valuation.Multiplier))
		reasons = append(reasons, fmt.Sprintf("估值分位 %.0f%%（%s），资金系数 %.1f",
			in.Valuation.Percentile*100, in.Valuation.Label, in.Valuation.Multiplier))
	}
	if amount.GreaterThan(e.maxDaily) {
		amount = e.maxDaily
		reasons = append(reasons, fmt.Sprintf("触及单日上限 %s 元", e.maxDaily))
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	amountCNY := amount.Floor().IntPart()

	risk := d.risk
	if threshold := e.base.Mul(decimal.NewFromFloat(1.5)); amount.GreaterThan(threshold) {
		risk = RiskHigh
	} else if amount.GreaterThan(e.base) && risk == RiskLow {
		risk = RiskMed
	}

	return Decision{
		Action:    d.action,
		Tactic:    d.tactic,
		AmountCNY: amountCNY,
		Risk:      risk,
		Reasons:   reasons,
	}
}
