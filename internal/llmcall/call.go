// Package llmcall records LLM calls for debugging and traceability.
// Each call keeps the exact prompt that was sent, so a generated section can
// be traced back to its input.
package llmcall

import (
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/folio/internal/prompts"
	"github.com/jackzampolin/folio/internal/providers"
)

// Call represents a recorded LLM API call.
type Call struct {
	ID string `json:"id"`

	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	// Attribution
	BatchID string `json:"batch_id,omitempty"`
	Driver  string `json:"driver,omitempty"`

	// Prompt traceability
	PromptKey  string `json:"prompt_key"`
	Prompt     string `json:"prompt"`
	PromptHash string `json:"prompt_hash"`

	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature,omitempty"`

	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd,omitempty"`

	Response string `json:"response"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RecordOptions provides context for recording an LLM call.
type RecordOptions struct {
	BatchID string
	Driver  string

	// PromptKey names the prompt family, e.g. "section.questions" or "enrich.dissect".
	PromptKey string
	Prompt    string

	Temperature *float64
}

// FromChatResult creates a Call from a ChatResult. A nil result still
// yields a failed call so the prompt is never lost.
func FromChatResult(result *providers.ChatResult, opts RecordOptions) *Call {
	call := &Call{
		ID:          uuid.New().String(),
		Timestamp:   time.Now(),
		BatchID:     opts.BatchID,
		Driver:      opts.Driver,
		PromptKey:   opts.PromptKey,
		Prompt:      opts.Prompt,
		PromptHash:  prompts.HashText(opts.Prompt),
		Temperature: opts.Temperature,
	}
	if result == nil {
		call.Error = "no result"
		return call
	}

	call.LatencyMs = int(result.ExecutionTime.Milliseconds())
	call.Provider = result.Provider
	call.Model = result.ModelUsed
	call.InputTokens = result.PromptTokens
	call.OutputTokens = result.CompletionTokens
	call.CostUSD = result.CostUSD
	call.Response = result.Content
	call.Success = result.Success
	if !result.Success {
		call.Error = result.ErrorMessage
	}
	return call
}
