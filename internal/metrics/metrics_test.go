package metrics

import (
	"math"
	"testing"

	"github.com/jackzampolin/folio/internal/llmcall"
	"github.com/jackzampolin/folio/internal/providers"
)

func TestUsageAdditivity(t *testing.T) {
	// Three drivers: (10,20), (5,5), and one failed call contributing zero.
	got := Sum(
		Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30},
		Usage{InputTokens: 5, OutputTokens: 5, TotalTokens: 10},
		FromChatResult(nil),
	)
	want := Usage{InputTokens: 15, OutputTokens: 25, TotalTokens: 40}
	if got != want {
		t.Errorf("Sum() = %+v, want %+v", got, want)
	}
}

func TestFromChatResult(t *testing.T) {
	u := FromChatResult(&providers.ChatResult{PromptTokens: 3, CompletionTokens: 4, CostUSD: 0.5})
	if u.TotalTokens != 7 {
		t.Errorf("TotalTokens fallback = %d, want 7", u.TotalTokens)
	}
	if !FromChatResult(nil).IsZero() {
		t.Error("nil result should be zero usage")
	}
	d := u.Debug("m")
	if d.PromptTokens != 3 || d.CompletionTokens != 4 || d.TotalTokens != 7 || d.Model != "m" {
		t.Errorf("Debug() = %+v", d)
	}
}

func TestSummarize(t *testing.T) {
	calls := []llmcall.Call{
		{Driver: "A", Model: "m1", InputTokens: 10, OutputTokens: 10, CostUSD: 0.1, LatencyMs: 1000, Success: true},
		{Driver: "B", Model: "m1", InputTokens: 20, OutputTokens: 0, LatencyMs: 3000, Success: false},
		{Driver: "A", Model: "m2", InputTokens: 5, OutputTokens: 5, CostUSD: 0.2, LatencyMs: 2000, Success: true},
	}
	s := Summarize(calls)

	if s.Count != 3 || s.SuccessCount != 2 || s.ErrorCount != 1 {
		t.Errorf("counts = %d/%d/%d", s.Count, s.SuccessCount, s.ErrorCount)
	}
	if s.TotalTokens != 50 || s.TotalInputTokens != 35 || s.TotalOutputTokens != 15 {
		t.Errorf("tokens = %d/%d/%d", s.TotalTokens, s.TotalInputTokens, s.TotalOutputTokens)
	}
	if math.Abs(s.TotalCostUSD-0.3) > 1e-9 {
		t.Errorf("TotalCostUSD = %v", s.TotalCostUSD)
	}
	if s.LatencyP50 != 2 || s.LatencyMax != 3 || s.LatencyAvg != 2 {
		t.Errorf("latency p50=%v max=%v avg=%v", s.LatencyP50, s.LatencyMax, s.LatencyAvg)
	}
	if s.ByDriver["A"].TotalTokens != 30 || s.ByModel["m1"].TotalTokens != 40 {
		t.Errorf("breakdowns = %+v / %+v", s.ByDriver, s.ByModel)
	}

	if empty := Summarize(nil); empty.Count != 0 || empty.AvgTokens != 0 {
		t.Errorf("empty summary = %+v", empty)
	}
}
