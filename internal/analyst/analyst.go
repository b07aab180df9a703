package analyst

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	aclopenai "github.com/cloudwego/eino-ext/libs/acl/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zenwen/etfadvisor/config"
	"github.com/zenwen/etfadvisor/internal/indicators"
)

// low and fixed for reproducible verdicts
const temperature = 0.1

const systemPrompt = `你是一位严格的量化交易员，只依据数据下判断，不讲故事。
你必须只输出合法的JSON对象，不允许任何JSON以外的文字。
硬性规则：
1. 周线趋势为DOWN时，action_advice 不得为 "strong_buy"；除非RSI低于20，confidence 不得超过6。
2. 只有RSI低于25时才允许使用"超卖衰竭"之类的措辞。
3. 给出 "hold" 时 confidence 必须小于4；给出任何买入建议时必须说明止损触发条件（例如"跌破5日均线"）。
输出JSON必须包含全部字段：
{"thesis": "不超过100字的核心论点", "action_advice": "strong_buy|buy|hold|sell|liquidate", "confidence": 0到10的整数, "pros": ["具体理由1", "具体理由2"], "cons": ["具体风险1", "具体风险2"], "glossary": {"术语": "一句话解释"}}`

// MarketContext is one labeled macro observation handed to the model,
// e.g. "沪深300近5日" -> "-2.3%".
type MarketContext struct {
	Label string
	Value string
}

// Request carries everything the analyst needs for one fund.
type Request struct {
	FundName      string
	SectorKeyword string
	Headlines     []string
	Market        MarketContext
	Snapshot      *indicators.Snapshot
}

// Analyst wraps a chat model behind the strict-JSON trading prompt.
type Analyst struct {
	chatModel model.BaseChatModel
	modelName string
}

// New builds the analyst for the configured provider. Callers should only
// construct one when cfg.AnalystEnabled() is true.
func New(ctx context.Context, cfg *config.Config) (*Analyst, error) {
	chatModel, err := newChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	return &Analyst{chatModel: chatModel, modelName: cfg.LLMModel}, nil
}

func newChatModel(ctx context.Context, cfg *config.Config) (model.BaseChatModel, error) {
	if strings.EqualFold(cfg.LLMProvider, "deepseek") {
		return deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			BaseURL:     cfg.LLMBaseURL,
			APIKey:      cfg.LLMAPIKey,
			Model:       cfg.LLMModel,
			MaxTokens:   2048,
			Temperature: temperature,
		})
	}

	temp := float32(temperature)
	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		Temperature: &temp,
		ResponseFormat: &aclopenai.ChatCompletionResponseFormat{
			Type: aclopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
}

// Analyze calls the model and parses its JSON verdict. Every failure mode
// degrades to the neutral verdict; this method never returns an error.
func (a *Analyst) Analyze(ctx context.Context, req Request) Verdict {
	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(buildUserPrompt(req)),
	}

	resp, err := a.chatModel.Generate(ctx, messages)
	if err != nil {
		log.Printf("[Analyst] %s: model call failed: %v", req.FundName, err)
		return NeutralVerdict()
	}

	verdict := ParseVerdict(resp.Content)
	if verdict.Degraded {
		log.Printf("[Analyst] %s: unparseable verdict: %.120s", req.FundName, resp.Content)
	}
	return verdict
}

// buildUserPrompt lays the technical snapshot and headlines out in a fixed
// order so identical inputs produce identical prompts.
func buildUserPrompt(req Request) string {
	snap := req.Snapshot

	var b strings.Builder
	fmt.Fprintf(&b, "标的: %s（板块: %s）\n", req.FundName, req.SectorKeyword)
	fmt.Fprintf(&b, "周线趋势: %s\n", snap.TrendWeekly)
	fmt.Fprintf(&b, "日线趋势: %s\n", snap.TrendDaily)
	fmt.Fprintf(&b, "RSI(14): %.1f\n", snap.RSI14)
	fmt.Fprintf(&b, "20日乖离率: %.2f%%\n", snap.Bias20Pct)
	if req.Market.Label != "" {
		fmt.Fprintf(&b, "市场环境: %s = %s\n", req.Market.Label, req.Market.Value)
	}
	if len(req.Headlines) > 0 {
		fmt.Fprintf(&b, "近期新闻:\n%s\n", strings.Join(req.Headlines, "\n"))
	} else {
		b.WriteString("近期新闻: 无\n")
	}
	b.WriteString("请按系统要求输出JSON判断。")
	return b.String()
}
