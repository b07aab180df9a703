package analyst

import (
	"encoding/json"
	"strings"
)

// Action advice values the model may return.
const (
	AdviceStrongBuy = "strong_buy"
	AdviceBuy       = "buy"
	AdviceHold      = "hold"
	AdviceSell      = "sell"
	AdviceLiquidate = "liquidate"
)

// StringList tolerates both a JSON array and a bare string; the model
// occasionally collapses two bullet points into one sentence.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	if one == "" {
		*l = nil
		return nil
	}
	*l = StringList{one}
	return nil
}

// Verdict is the analyst's parsed JSON output. Degraded marks the neutral
// fallback used when the model was unreachable or returned junk.
type Verdict struct {
	Thesis       string            `json:"thesis"`
	ActionAdvice string            `json:"action_advice"`
	Confidence   int               `json:"confidence"`
	Pros         StringList        `json:"pros"`
	Cons         StringList        `json:"cons"`
	Glossary     map[string]string `json:"glossary"`

	Degraded bool `json:"-"`
}

// NeutralVerdict is the substitute for any analyst failure. It never
// carries a sentiment signal.
func NeutralVerdict() Verdict {
	return Verdict{
		Thesis:       "timeout",
		ActionAdvice: AdviceHold,
		Confidence:   0,
		Glossary:     map[string]string{},
		Degraded:     true,
	}
}

// SentimentScore maps the verdict onto the 0-10 scale the strategy
// consumes: direction from the advice, magnitude from the confidence.
// A degraded verdict yields nil, which the strategy treats as absent.
func (v Verdict) SentimentScore() *int {
	if v.Degraded {
		return nil
	}

	confidence := v.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 10 {
		confidence = 10
	}

	score := 5
	switch v.ActionAdvice {
	case AdviceStrongBuy:
		score = 5 + (confidence+1)/2
	case AdviceBuy:
		score = 5 + (confidence+2)/3
	case AdviceSell:
		score = 5 - (confidence+2)/3
	case AdviceLiquidate:
		score = 5 - (confidence+1)/2
	}
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return &score
}

// ParseVerdict decodes the model output, tolerating Markdown code fences.
// Anything unparseable becomes the neutral verdict; parsing never fails
// out of the analyst.
func ParseVerdict(content string) Verdict {
	cleaned := stripFences(content)

	var v Verdict
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return NeutralVerdict()
	}
	if v.ActionAdvice == "" {
		return NeutralVerdict()
	}
	v.ActionAdvice = strings.ToLower(strings.TrimSpace(v.ActionAdvice))
	if v.Glossary == nil {
		v.Glossary = map[string]string{}
	}
	return v
}

// stripFences removes a surrounding ```json ... ``` (or bare ```) block.
func stripFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
