package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zenwen/etfadvisor/internal/advisor"
	"github.com/zenwen/etfadvisor/internal/strategy"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2).
			Width(72)

	fundStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	buyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	trimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	holdStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF"))
)

// Summary renders a batch report as a terminal card stack.
func Summary(r *advisor.Report) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("ETF 每日投资简报 %s", r.Date.Format("2006-01-02"))))
	b.WriteString("\n")
	if r.Market.Label != "" {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%s %s", r.Market.Label, r.Market.Value)))
		b.WriteString("\n")
	}
	for _, rec := range r.Records {
		b.WriteString(cardStyle.Render(fundCard(rec)))
		b.WriteString("\n")
	}
	return b.String()
}

func fundCard(rec advisor.FundRecord) string {
	var lines []string
	lines = append(lines, fundStyle.Render(fmt.Sprintf("%s（%s）", rec.Fund.Name, rec.Fund.Code)))

	switch {
	case rec.DataInsufficient:
		lines = append(lines, warnStyle.Render("⚠ 历史数据不足，本日跳过"))
	case rec.Err != "":
		lines = append(lines, warnStyle.Render("⚠ 处理失败: "+rec.Err))
	default:
		d := rec.Decision
		lines = append(lines, fmt.Sprintf("%s  %d 元  风险 %s",
			actionStyle(d.Action).Render(d.Label()), d.AmountCNY, d.Risk))
		if s := rec.Snapshot; s != nil {
			lines = append(lines, dimStyle.Render(fmt.Sprintf(
				"RSI14 %.1f · MA20 %.3f · 乖离 %.2f%% · 量化分 %d · 估值 %s",
				s.RSI14, s.MA20, s.Bias20Pct, s.QuantScore, rec.Valuation.Label)))
		}
		for _, reason := range d.Reasons {
			lines = append(lines, dimStyle.Render("· "+reason))
		}
		if v := rec.Verdict; v != nil {
			if v.Degraded {
				lines = append(lines, warnStyle.Render("⚠ AI 分析不可用，按中性情绪执行"))
			} else {
				lines = append(lines, fmt.Sprintf("AI: %s（信心 %d/10）%s", v.ActionAdvice, v.Confidence, v.Thesis))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func actionStyle(action string) lipgloss.Style {
	switch action {
	case strategy.ActionBuy, strategy.ActionStrongBuy, strategy.ActionRegularDCA, strategy.ActionSmallProbe:
		return buyStyle
	case strategy.ActionTrim, strategy.ActionSell:
		return trimStyle
	default:
		return holdStyle
	}
}

// Error prints a styled error line.
func Error(msg string) string {
	return trimStyle.Render("✗ " + msg)
}

// Info prints a styled info line.
func Info(msg string) string {
	return dimStyle.Render("ℹ " + msg)
}
