package endpoints

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/llmcall"
	"github.com/jackzampolin/folio/internal/metrics"
	"github.com/jackzampolin/folio/internal/prompts"
)

// ListCallsResponse is the filtered debug log, newest first.
type ListCallsResponse struct {
	Calls []llmcall.Call `json:"calls"`
	Total int            `json:"total"`
}

// filterFromQuery parses the debug log filters.
func filterFromQuery(q url.Values) (llmcall.Filter, error) {
	f := llmcall.Filter{
		BatchID:  q.Get("batch_id"),
		Driver:   q.Get("driver"),
		Provider: q.Get("provider"),
	}
	var problems []string
	if v := q.Get("success"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("success must be a boolean, got %q", v))
		} else {
			f.Success = &b
		}
	}
	if v := q.Get("after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("after must be RFC3339, got %q", v))
		} else {
			f.After = &t
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			problems = append(problems, fmt.Sprintf("limit must be a non-negative integer, got %q", v))
		} else {
			f.Limit = n
		}
	}
	if len(problems) > 0 {
		return f, &prompts.ValidationError{Problems: problems}
	}
	return f, nil
}

// ListCallsEndpoint handles GET /api/debug/calls.
type ListCallsEndpoint struct{}

func (e *ListCallsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/debug/calls", e.handler
}

func (e *ListCallsEndpoint) RequiresInit() bool { return true }

func (e *ListCallsEndpoint) Group() string { return "debug" }

// handler godoc
//
//	@Summary		List recorded LLM calls
//	@Description	Calls are recorded only while generation.debug is on
//	@Tags			debug
//	@Produce		json
//	@Param			batch_id	query		string	false	"Filter by batch"
//	@Param			driver		query		string	false	"Filter by driver"
//	@Param			provider	query		string	false	"Filter by provider"
//	@Param			success		query		bool	false	"Filter by outcome"
//	@Param			after		query		string	false	"Only calls after this RFC3339 time"
//	@Param			limit		query		int		false	"Maximum calls returned"
//	@Success		200			{object}	ListCallsResponse
//	@Failure		400			{object}	ErrorResponse
//	@Router			/api/debug/calls [get]
func (e *ListCallsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		writeErr(w, err)
		return
	}
	st := storeOrFail(w, r)
	if st == nil {
		return
	}
	calls, err := st.DebugLogs.List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	out := f.Apply(calls)
	writeJSON(w, http.StatusOK, ListCallsResponse{Calls: out, Total: len(out)})
}

func (e *ListCallsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var batchID, driver, provider, after string
	var limit int
	var failed bool
	cmd := &cobra.Command{
		Use:   "calls",
		Short: "List recorded LLM calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			for k, v := range map[string]string{"batch_id": batchID, "driver": driver, "provider": provider, "after": after} {
				if v != "" {
					q.Set(k, v)
				}
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			if failed {
				q.Set("success", "false")
			}
			path := "/api/debug/calls"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			client := api.NewClient(getServerURL())
			var resp ListCallsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			if api.GetOutputFormat() == api.OutputFormatJSON {
				return api.Output(resp)
			}
			for _, c := range resp.Calls {
				status := "ok"
				if !c.Success {
					status = "FAILED: " + c.Error
				}
				fmt.Printf("%s  %-20s %-24s %5dms %6d tok  %s\n",
					c.Timestamp.Format(time.RFC3339), c.PromptKey, c.Driver, c.LatencyMs,
					c.InputTokens+c.OutputTokens, status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&batchID, "batch", "", "Filter by batch id")
	cmd.Flags().StringVar(&driver, "driver", "", "Filter by driver")
	cmd.Flags().StringVar(&provider, "provider", "", "Filter by provider")
	cmd.Flags().StringVar(&after, "after", "", "Only calls after this RFC3339 time")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum calls returned")
	cmd.Flags().BoolVar(&failed, "failed", false, "Only failed calls")
	return cmd
}

// ClearCallsEndpoint handles DELETE /api/debug/calls.
type ClearCallsEndpoint struct{}

func (e *ClearCallsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/debug/calls", e.handler
}

func (e *ClearCallsEndpoint) RequiresInit() bool { return true }

func (e *ClearCallsEndpoint) Group() string { return "debug" }

// handler godoc
//
//	@Summary	Clear the debug log
//	@Tags		debug
//	@Success	204	"No Content"
//	@Router		/api/debug/calls [delete]
func (e *ClearCallsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := storeOrFail(w, r)
	if st == nil {
		return
	}
	if err := st.DebugLogs.Clear(r.Context()); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *ClearCallsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the debug log",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/debug/calls", nil); err != nil {
				return err
			}
			fmt.Println("Debug log cleared")
			return nil
		},
	}
}

// MetricsSummaryEndpoint handles GET /api/metrics/summary.
type MetricsSummaryEndpoint struct{}

func (e *MetricsSummaryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/metrics/summary", e.handler
}

func (e *MetricsSummaryEndpoint) RequiresInit() bool { return true }

func (e *MetricsSummaryEndpoint) Group() string { return "debug" }

// handler godoc
//
//	@Summary		Summarize recorded LLM calls
//	@Description	Totals, averages, latency percentiles and per-driver and per-model usage
//	@Tags			debug
//	@Produce		json
//	@Param			batch_id	query		string	false	"Only calls from this batch"
//	@Param			driver		query		string	false	"Only calls for this driver"
//	@Success		200			{object}	metrics.Summary
//	@Router			/api/metrics/summary [get]
func (e *MetricsSummaryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		writeErr(w, err)
		return
	}
	st := storeOrFail(w, r)
	if st == nil {
		return
	}
	calls, err := st.DebugLogs.List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics.Summarize(f.Apply(calls)))
}

func (e *MetricsSummaryEndpoint) Command(getServerURL func() string) *cobra.Command {
	var batchID string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize recorded LLM calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/metrics/summary"
			if batchID != "" {
				path += "?batch_id=" + url.QueryEscape(batchID)
			}
			client := api.NewClient(getServerURL())
			var resp metrics.Summary
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			if api.GetOutputFormat() == api.OutputFormatJSON {
				return api.Output(resp)
			}
			fmt.Printf("Calls:    %d (%d ok, %d failed)\n", resp.Count, resp.SuccessCount, resp.ErrorCount)
			fmt.Printf("Tokens:   %d in, %d out, %d total\n", resp.TotalInputTokens, resp.TotalOutputTokens, resp.TotalTokens)
			fmt.Printf("Cost:     $%.4f\n", resp.TotalCostUSD)
			fmt.Printf("Latency:  p50 %.2fs, p95 %.2fs, max %.2fs\n", resp.LatencyP50, resp.LatencyP95, resp.LatencyMax)
			return nil
		},
	}
	cmd.Flags().StringVar(&batchID, "batch", "", "Only calls from this batch")
	return cmd
}
