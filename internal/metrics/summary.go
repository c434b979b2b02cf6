package metrics

import (
	"sort"

	"github.com/jackzampolin/folio/internal/llmcall"
)

// Summary aggregates recorded LLM calls.
type Summary struct {
	Count        int     `json:"count"`
	SuccessCount int     `json:"success_count"`
	ErrorCount   int     `json:"error_count"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	AvgCostUSD   float64 `json:"avg_cost_usd"`

	TotalInputTokens  int     `json:"total_input_tokens"`
	TotalOutputTokens int     `json:"total_output_tokens"`
	TotalTokens       int     `json:"total_tokens"`
	AvgTokens         float64 `json:"avg_tokens"`

	// Latency in seconds
	LatencyP50 float64 `json:"latency_p50"`
	LatencyP95 float64 `json:"latency_p95"`
	LatencyAvg float64 `json:"latency_avg"`
	LatencyMax float64 `json:"latency_max"`

	ByDriver map[string]Usage `json:"by_driver,omitempty"`
	ByModel  map[string]Usage `json:"by_model,omitempty"`
}

// Summarize computes totals, averages, latency percentiles and per-driver
// and per-model breakdowns.
func Summarize(calls []llmcall.Call) *Summary {
	s := &Summary{
		Count:    len(calls),
		ByDriver: make(map[string]Usage),
		ByModel:  make(map[string]Usage),
	}
	if len(calls) == 0 {
		return s
	}

	latencies := make([]float64, 0, len(calls))
	for _, c := range calls {
		if c.Success {
			s.SuccessCount++
		} else {
			s.ErrorCount++
		}
		u := Usage{
			InputTokens:  c.InputTokens,
			OutputTokens: c.OutputTokens,
			TotalTokens:  c.InputTokens + c.OutputTokens,
			CostUSD:      c.CostUSD,
		}
		s.TotalCostUSD += u.CostUSD
		s.TotalInputTokens += u.InputTokens
		s.TotalOutputTokens += u.OutputTokens
		s.TotalTokens += u.TotalTokens
		if c.Driver != "" {
			s.ByDriver[c.Driver] = s.ByDriver[c.Driver].Add(u)
		}
		if c.Model != "" {
			s.ByModel[c.Model] = s.ByModel[c.Model].Add(u)
		}
		if c.LatencyMs > 0 {
			latencies = append(latencies, float64(c.LatencyMs)/1000)
		}
	}

	n := float64(s.Count)
	s.AvgCostUSD = s.TotalCostUSD / n
	s.AvgTokens = float64(s.TotalTokens) / n

	if len(latencies) > 0 {
		sort.Float64s(latencies)
		var sum float64
		for _, l := range latencies {
			sum += l
		}
		s.LatencyAvg = sum / float64(len(latencies))
		s.LatencyMax = latencies[len(latencies)-1]
		s.LatencyP50 = percentile(latencies, 50)
		s.LatencyP95 = percentile(latencies, 95)
	}
	return s
}

// percentile interpolates the p-th percentile of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := (p / 100.0) * float64(len(sorted)-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
