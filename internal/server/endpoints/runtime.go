package endpoints

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackzampolin/folio/internal/config"
	"github.com/jackzampolin/folio/internal/llmcall"
	"github.com/jackzampolin/folio/internal/metrics"
	"github.com/jackzampolin/folio/internal/section"
	"github.com/jackzampolin/folio/internal/store"
	"github.com/jackzampolin/folio/internal/svcctx"
)

func storeFrom(r *http.Request) *store.Store {
	return svcctx.StoreFrom(r.Context())
}

// runner is the per-request generation setup: effective settings, the
// generator bound to the selected provider, and the debug log when enabled.
type runner struct {
	rt      config.Runtime
	gen     *section.Generator
	buf     *llmcall.Buffer
	timeout time.Duration
	logger  *slog.Logger
}

func newRunner(ctx context.Context) (*runner, error) {
	cfg := svcctx.ConfigFrom(ctx)
	rt, err := config.Effective(ctx, svcctx.SettingsFrom(ctx), cfg)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	registry := svcctx.RegistryFrom(ctx)
	if registry == nil {
		return nil, errProviderUnavailable
	}
	client, err := registry.GetLLM(rt.LLMProvider)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errProviderUnavailable, rt.LLMProvider)
	}

	logger := svcctx.LoggerFrom(ctx)
	run := &runner{
		rt:      rt,
		timeout: cfg.Generation.BatchTimeout,
		logger:  logger,
	}
	gen := section.NewGenerator(section.Config{
		Client:      client,
		Model:       rt.Model,
		Temperature: rt.Temperature,
		MaxTokens:   rt.MaxTokens,
		Cache:       svcctx.SchemasFrom(ctx),
		Logger:      logger,
	})
	if rt.Debug {
		run.buf = llmcall.NewBuffer()
		var sink llmcall.Log
		if st := svcctx.StoreFrom(ctx); st != nil {
			sink = llmcall.NewSink(st.DebugLogs, logger)
		}
		gen = gen.WithLog(llmcall.Tee(run.buf, sink))
	}
	run.gen = gen
	return run, nil
}

// withBudget applies the batch wall-clock budget.
func (run *runner) withBudget(ctx context.Context) (context.Context, context.CancelFunc) {
	if run.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, run.timeout)
}

// DebugMeta is the `_meta` block attached when debug is on.
type DebugMeta struct {
	Prompts []string `json:"prompts"`
	Model   string   `json:"model"`
	BatchID string   `json:"batchId,omitempty"`
	Drivers any      `json:"drivers,omitempty"`
}

// debug returns the `_meta` and `_usage` blocks, or nils when debug is off.
func (run *runner) debug(prompts []string, model string, usage metrics.Usage) (*DebugMeta, *metrics.DebugUsage) {
	if !run.rt.Debug {
		return nil, nil
	}
	if prompts == nil && run.buf != nil {
		prompts = run.buf.Prompts()
	}
	if prompts == nil {
		prompts = []string{}
	}
	u := usage.Debug(model)
	return &DebugMeta{Prompts: prompts, Model: model}, &u
}
