package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenwen/etfadvisor/config"
	"github.com/zenwen/etfadvisor/internal/advisor"
	"github.com/zenwen/etfadvisor/internal/analyst"
	"github.com/zenwen/etfadvisor/internal/indicators"
	"github.com/zenwen/etfadvisor/internal/news"
	"github.com/zenwen/etfadvisor/internal/strategy"
	"github.com/zenwen/etfadvisor/internal/valuation"
)

func sampleReport() *advisor.Report {
	decision := strategy.Decision{
		Action:    strategy.ActionBuy,
		Tactic:    "oversold-bounce",
		AmountCNY: 1371,
		Risk:      strategy.RiskMed,
		Reasons:   []string{"RSI 22.0 低于买入阈值 35，左侧加码"},
	}
	verdict := analyst.Verdict{
		Thesis: "超跌但趋势未破坏", ActionAdvice: analyst.AdviceBuy, Confidence: 7,
	}
	return &advisor.Report{
		Date:   time.Date(2024, 6, 14, 17, 30, 0, 0, time.UTC),
		Macro:  []news.Headline{{Title: "央行维持利率不变", Source: "新华社"}},
		Market: analyst.MarketContext{Label: "沪深300近5日", Value: "-1.20%"},
		Records: []advisor.FundRecord{
			{
				Fund: config.Fund{Code: "510880", Name: "红利ETF", SectorKeyword: "红利"},
				Snapshot: &indicators.Snapshot{
					Price: 3.21, RSI14: 22, MA20: 3.45, Bias20Pct: -6.9, QuantScore: 80,
				},
				Valuation: valuation.Snapshot{Percentile: 0.2, Multiplier: 1.3, Label: "undervalued"},
				Verdict:   &verdict,
				Decision:  &decision,
			},
			{
				Fund:             config.Fund{Code: "159915", Name: "创业板ETF", SectorKeyword: "成长"},
				DataInsufficient: true,
			},
		},
	}
}

func TestRenderDigest(t *testing.T) {
	html, err := Render(sampleReport())
	require.NoError(t, err)

	assert.Contains(t, html, "ETF 每日投资简报 · 2024-06-14")
	assert.Contains(t, html, "红利ETF（510880）")
	assert.Contains(t, html, "BUY (oversold-bounce)")
	assert.Contains(t, html, "<strong>1371</strong>")
	assert.Contains(t, html, "沪深300近5日 -1.20%")
	assert.Contains(t, html, "央行维持利率不变")
	assert.Contains(t, html, "undervalued")
	assert.Contains(t, html, "信心 7/10")
	// the broken fund still gets a card, with its marker
	assert.Contains(t, html, "创业板ETF（159915）")
	assert.Contains(t, html, "历史数据不足")
}

func TestRenderMarksDegradedVerdict(t *testing.T) {
	r := sampleReport()
	neutral := analyst.NeutralVerdict()
	r.Records[0].Verdict = &neutral

	html, err := Render(r)
	require.NoError(t, err)
	assert.Contains(t, html, "AI 分析不可用")
}

func TestSaveWritesDatedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")

	path, err := Save(sampleReport(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "advisory_2024-06-14.html"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "红利ETF")
}

func TestSubject(t *testing.T) {
	subject := Subject(time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "【ETF投顾】每日投资简报 2024-06-14", subject)
}

func TestSendMailRejectsMissingConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SMTPHost = ""
	cfg.MailUser = ""
	cfg.MailPass = ""

	err := SendMail(cfg, "subject", "<p>body</p>")
	assert.Error(t, err)
}

func TestSplitRecipients(t *testing.T) {
	assert.Equal(t, []string{"a@x.com", "b@y.com"}, splitRecipients("a@x.com, b@y.com"))
	assert.Empty(t, splitRecipients(" , "))
}
