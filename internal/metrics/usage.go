// Package metrics provides token and cost accounting for LLM calls.
package metrics

import "github.com/jackzampolin/folio/internal/providers"

// Usage is the token and cost usage of one or more calls.
type Usage struct {
	InputTokens  int     `json:"inputTokens"`
	OutputTokens int     `json:"outputTokens"`
	TotalTokens  int     `json:"totalTokens"`
	CostUSD      float64 `json:"costUsd,omitempty"`
}

// Add returns the element-wise sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		TotalTokens:  u.TotalTokens + o.TotalTokens,
		CostUSD:      u.CostUSD + o.CostUSD,
	}
}

// IsZero reports whether no usage was recorded.
func (u Usage) IsZero() bool {
	return u == Usage{}
}

// FromChatResult extracts the usage a provider reported. A nil result
// (the request never reached the provider) contributes zero.
func FromChatResult(r *providers.ChatResult) Usage {
	if r == nil {
		return Usage{}
	}
	total := r.TotalTokens
	if total == 0 {
		total = r.PromptTokens + r.CompletionTokens
	}
	return Usage{
		InputTokens:  r.PromptTokens,
		OutputTokens: r.CompletionTokens,
		TotalTokens:  total,
		CostUSD:      r.CostUSD,
	}
}

// Sum adds up any number of usages.
func Sum(usages ...Usage) Usage {
	var total Usage
	for _, u := range usages {
		total = total.Add(u)
	}
	return total
}

// DebugUsage is the `_usage` block attached to debug responses.
type DebugUsage struct {
	PromptTokens     int    `json:"promptTokens"`
	CompletionTokens int    `json:"completionTokens"`
	TotalTokens      int    `json:"totalTokens"`
	Model            string `json:"model"`
}

// Debug converts u into the `_usage` shape.
func (u Usage) Debug(model string) DebugUsage {
	return DebugUsage{
		PromptTokens:     u.InputTokens,
		CompletionTokens: u.OutputTokens,
		TotalTokens:      u.TotalTokens,
		Model:            model,
	}
}
