// Package batch fans one generation request out to every driver and joins
// the results.
//
// Each driver runs as its own goroutine; Run blocks at a single barrier until
// all of them finish. A failed driver never fails the batch: it is logged,
// replaced by an empty placeholder, and then dropped along with every other
// empty section. Only a batch that yields no sections at all is an error,
// reported through Response.Err.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/folio/internal/metrics"
	"github.com/jackzampolin/folio/internal/prompts"
	"github.com/jackzampolin/folio/internal/section"
)

// ErrNoContent is returned when every driver came back empty or failed.
var ErrNoContent = errors.New("no content generated")

// Generator runs one unit. *section.Generator satisfies it.
type Generator interface {
	Generate(ctx context.Context, unit section.Unit) section.Outcome
	Model() string
}

// Request is one batch.
type Request struct {
	Kind          *prompts.Kind
	Context       map[string]string
	Drivers       []prompts.Driver
	SectionLabel  string
	Directives    []prompts.InstructionDirective
	DefaultFields []prompts.FieldSpec

	// Strategy overrides field resolution. Nil selects StrategyFor(Drivers).
	Strategy FieldStrategy

	// BatchID tags debug records. Empty generates one.
	BatchID string
}

// Status classifies how a driver finished.
type Status string

const (
	StatusOK     Status = "ok"
	StatusEmpty  Status = "empty"
	StatusFailed Status = "failed"
)

// DriverResult is the per-driver diagnostic for a batch.
type DriverResult struct {
	Driver    string        `json:"driver"`
	Status    Status        `json:"status"`
	Elements  int           `json:"elements"`
	Usage     metrics.Usage `json:"usage"`
	Error     string        `json:"error,omitempty"`
	ErrorKind string        `json:"errorKind,omitempty"`
}

// Response is the joined result of a batch.
type Response struct {
	BatchID         string            `json:"batchId"`
	Sections        []section.Section `json:"sections"`
	Usage           metrics.Usage     `json:"usage"`
	Drivers         []DriverResult    `json:"drivers"`
	Prompts         []string          `json:"prompts"`
	PerDriverFields bool              `json:"perDriverFields,omitempty"`
	Model           string            `json:"model"`
}

// Err returns ErrNoContent when the batch produced no sections.
func (r *Response) Err() error {
	if len(r.Sections) == 0 {
		return ErrNoContent
	}
	return nil
}

// Summary is the human-readable outcome, e.g. "2/5 relevant sections generated".
func (r *Response) Summary() string {
	return fmt.Sprintf("%d/%d relevant sections generated", len(r.Sections), len(r.Drivers))
}

// Failed counts drivers that errored.
func (r *Response) Failed() int {
	n := 0
	for _, d := range r.Drivers {
		if d.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Orchestrator runs batches against one Generator.
type Orchestrator struct {
	gen            Generator
	logger         *slog.Logger
	maxConcurrency int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMaxConcurrency caps in-flight drivers. Zero or less runs every driver
// at once.
func WithMaxConcurrency(n int) Option {
	return func(o *Orchestrator) { o.maxConcurrency = n }
}

// New creates an Orchestrator.
func New(gen Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{gen: gen, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run dispatches every driver concurrently and waits for all of them.
// Sections come back in driver order with empty ones removed. Run never
// returns early on a driver failure; cancellation comes only from ctx.
func (o *Orchestrator) Run(ctx context.Context, req Request) *Response {
	batchID := req.BatchID
	if batchID == "" {
		batchID = uuid.New().String()
	}
	strategy, perDriver := StrategyFor(req.Drivers)
	if req.Strategy != nil {
		strategy = req.Strategy
	}
	kindName := ""
	if req.Kind != nil {
		kindName = req.Kind.Name
	}

	n := len(req.Drivers)
	fields := make([][]prompts.FieldSpec, n)
	promptsOut := make([]string, n)
	results := make([]section.Outcome, n)

	// Plain Group: a failed driver must not cancel its siblings.
	var g errgroup.Group
	if o.maxConcurrency > 0 {
		g.SetLimit(o.maxConcurrency)
	}

	for i, d := range req.Drivers {
		fields[i] = strategy(d, req.DefaultFields)
		var overrides []prompts.FieldSpec
		if perDriver {
			overrides = fields[i]
		}
		prompt, err := prompts.Assemble(req.Kind, prompts.Request{
			Context:        req.Context,
			Driver:         d,
			SectionLabel:   req.SectionLabel,
			Directives:     req.Directives,
			FieldOverrides: overrides,
		})
		if err != nil {
			results[i] = section.Outcome{
				Driver: d.Name,
				Err:    &section.GenerationError{Driver: d.Name, Kind: section.KindPrompt, Err: err},
			}
			continue
		}
		promptsOut[i] = prompt

		unit := section.Unit{
			Driver:  d,
			Prompt:  prompt,
			Fields:  fields[i],
			BatchID: batchID,
			Kind:    kindName,
		}
		g.Go(func() error {
			results[i] = o.gen.Generate(ctx, unit)
			return nil
		})
	}
	_ = g.Wait()

	resp := &Response{
		BatchID:         batchID,
		Sections:        make([]section.Section, 0, n),
		Drivers:         make([]DriverResult, n),
		Prompts:         make([]string, 0, n),
		PerDriverFields: perDriver,
		Model:           o.gen.Model(),
	}
	for _, p := range promptsOut {
		if p != "" {
			resp.Prompts = append(resp.Prompts, p)
		}
	}

	empty := 0
	for i, d := range req.Drivers {
		out := results[i]
		// Failed calls stay on the driver diagnostics but not in the total.
		if out.Err == nil {
			resp.Usage = resp.Usage.Add(out.Usage)
		}
		if out.Model != "" {
			resp.Model = out.Model
		}

		dr := DriverResult{Driver: d.Name, Usage: out.Usage}
		sec := section.Placeholder(d)
		switch {
		case out.Err != nil:
			dr.Status = StatusFailed
			dr.Error = out.Err.Error()
			dr.ErrorKind = string(out.Err.Kind)
			o.logger.Warn("driver generation failed",
				"batch_id", batchID, "driver", d.Name, "error", out.Err.Err, "error_type", out.Err.Kind)
		case out.Section == nil:
			dr.Status = StatusFailed
			dr.Error = "no section returned"
		default:
			sec = *out.Section
			dr.Elements = len(sec.Elements)
			dr.Status = StatusOK
			if sec.Empty() {
				dr.Status = StatusEmpty
			}
		}
		resp.Drivers[i] = dr

		if sec.Empty() {
			if dr.Status == StatusEmpty {
				empty++
			}
			continue
		}
		sec.ResolvedFields = fields[i]
		resp.Sections = append(resp.Sections, sec)
	}

	o.logger.Info("batch complete",
		"batch_id", batchID,
		"kind", kindName,
		"drivers", n,
		"sections", len(resp.Sections),
		"failed", resp.Failed(),
		"empty", empty,
		"total_tokens", resp.Usage.TotalTokens)
	return resp
}
