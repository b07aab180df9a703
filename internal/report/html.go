package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/zenwen/etfadvisor/internal/advisor"
)

const reportTemplate = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="UTF-8">
<title>ETF 每日投资简报 {{.Date}}</title>
<style>
body { font-family: "PingFang SC", "Microsoft YaHei", Arial, sans-serif; max-width: 720px; margin: 0 auto; padding: 20px; color: #1e293b; }
h1 { font-size: 20px; border-bottom: 2px solid #10b981; padding-bottom: 8px; }
.card { border: 1px solid #e2e8f0; border-radius: 8px; padding: 16px; margin: 12px 0; }
.card h2 { font-size: 16px; margin: 0 0 8px; }
.action { display: inline-block; padding: 2px 10px; border-radius: 12px; color: #fff; font-size: 13px; }
.action.buy { background: #10b981; }
.action.trim { background: #ef4444; }
.action.hold { background: #64748b; }
.metrics { font-size: 13px; color: #475569; }
.metrics td { padding: 2px 12px 2px 0; }
.reasons { font-size: 13px; color: #334155; padding-left: 18px; }
.marker { color: #b45309; font-size: 13px; }
.macro { font-size: 13px; color: #475569; }
.footer { color: #94a3b8; font-size: 11px; margin-top: 24px; }
</style>
</head>
<body>
<h1>ETF 每日投资简报 · {{.Date}}</h1>
<p class="macro">市场环境：{{.Market.Label}} {{.Market.Value}}</p>
{{if .Macro}}<ul class="macro">{{range .Macro}}<li>{{.Title}}{{if .Source}}（{{.Source}}）{{end}}</li>{{end}}</ul>{{end}}
{{range .Records}}
<div class="card">
<h2>{{.Fund.Name}}（{{.Fund.Code}}）</h2>
{{if .DataInsufficient}}
<p class="marker">⚠ 历史数据不足，本日跳过</p>
{{else if .Err}}
<p class="marker">⚠ 处理失败：{{.Err}}</p>
{{else}}
<p><span class="action {{actionClass .Decision.Action}}">{{.Decision.Label}}</span>
&nbsp;金额 <strong>{{.Decision.AmountCNY}}</strong> 元 · 风险 {{.Decision.Risk}}</p>
<table class="metrics"><tr>
<td>RSI14 {{printf "%.1f" .Snapshot.RSI14}}</td>
<td>MA20 {{printf "%.3f" .Snapshot.MA20}}</td>
<td>乖离率 {{printf "%.2f" .Snapshot.Bias20Pct}}%</td>
<td>量化分 {{.Snapshot.QuantScore}}</td>
<td>估值 {{.Valuation.Label}}</td>
</tr></table>
<ul class="reasons">{{range .Decision.Reasons}}<li>{{.}}</li>{{end}}</ul>
{{if .Verdict}}
{{if .Verdict.Degraded}}<p class="marker">⚠ AI 分析不可用，按中性情绪执行</p>
{{else}}<p class="metrics">AI：{{.Verdict.ActionAdvice}}（信心 {{.Verdict.Confidence}}/10）— {{.Verdict.Thesis}}</p>{{end}}
{{end}}
{{end}}
</div>
{{end}}
<p class="footer">本简报由规则引擎自动生成，不构成投资建议。</p>
</body>
</html>`

var digest = template.Must(template.New("digest").Funcs(template.FuncMap{
	"actionClass": actionClass,
}).Parse(reportTemplate))

type view struct {
	Date    string
	Market  struct{ Label, Value string }
	Macro   []headlineView
	Records []advisor.FundRecord
}

type headlineView struct {
	Title  string
	Source string
}

// Render produces the HTML digest for one batch run.
func Render(r *advisor.Report) (string, error) {
	v := view{
		Date:    r.Date.Format("2006-01-02"),
		Records: r.Records,
	}
	v.Market.Label = r.Market.Label
	v.Market.Value = r.Market.Value
	for _, h := range r.Macro {
		v.Macro = append(v.Macro, headlineView{Title: h.Title, Source: h.Source})
	}

	var buf bytes.Buffer
	if err := digest.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// Save writes the digest under dir as advisory_YYYY-MM-DD.html and
// returns the file path.
func Save(r *advisor.Report, dir string) (string, error) {
	html, err := Render(r)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("advisory_%s.html", r.Date.Format("2006-01-02")))
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// actionClass picks the card badge color for an action.
func actionClass(action string) string {
	switch action {
	case "BUY", "STRONG_BUY", "REGULAR_DCA", "SMALL_PROBE":
		return "buy"
	case "TRIM", "SELL":
		return "trim"
	default:
		return "hold"
	}
}

// Subject is the mail subject line for a run.
func Subject(date time.Time) string {
	return fmt.Sprintf("【ETF投顾】每日投资简报 %s", date.Format("2006-01-02"))
}
