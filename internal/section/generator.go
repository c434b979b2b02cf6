package section

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackzampolin/folio/internal/llmcall"
	"github.com/jackzampolin/folio/internal/metrics"
	"github.com/jackzampolin/folio/internal/providers"
)

// Config configures a Generator.
type Config struct {
	Client      providers.LLMClient
	Model       string // empty uses the client default
	Temperature float64
	MaxTokens   int
	Cache       *SchemaCache
	Logger      *slog.Logger
}

// Generator issues structured LLM calls.
type Generator struct {
	client      providers.LLMClient
	model       string
	temperature float64
	maxTokens   int
	cache       *SchemaCache
	log         llmcall.Log
	logger      *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(cfg Config) *Generator {
	if cfg.Cache == nil {
		cfg.Cache = NewSchemaCache(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Generator{
		client:      cfg.Client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		cache:       cfg.Cache,
		logger:      cfg.Logger,
	}
}

// WithLog returns a copy of g that records every call to log. A nil log
// turns recording off.
func (g *Generator) WithLog(log llmcall.Log) *Generator {
	cp := *g
	cp.log = log
	return &cp
}

// Model returns the model calls are sent to.
func (g *Generator) Model() string {
	if g.model != "" {
		return g.model
	}
	return providers.ModelOf(g.client)
}

// Request is one structured call.
type Request struct {
	Name      string // driver or perspective, for errors and the debug log
	Prompt    string
	Schema    json.RawMessage
	PromptKey string
	BatchID   string
}

// Result is the validated JSON of a structured call.
type Result struct {
	JSON  json.RawMessage
	Usage metrics.Usage
	Model string
}

// Structured sends exactly one request and returns the parsed, validated
// JSON or a GenerationError.
func (g *Generator) Structured(ctx context.Context, req Request) (Result, *GenerationError) {
	fail := func(kind ErrorKind, err error) *GenerationError {
		return &GenerationError{Driver: req.Name, Kind: kind, Err: err}
	}

	schema, err := g.cache.Get(req.Schema)
	if err != nil {
		return Result{}, fail(KindSchema, err)
	}

	chat := providers.UserPrompt(req.Prompt)
	chat.Model = g.model
	chat.Temperature = g.temperature
	chat.MaxTokens = g.maxTokens
	chat.ResponseFormat = providers.JSONSchemaFormat(req.Schema)

	result, chatErr := g.client.Chat(ctx, chat)
	out := Result{Usage: metrics.FromChatResult(result), Model: g.Model()}
	if result != nil && result.ModelUsed != "" {
		out.Model = result.ModelUsed
	}

	var gerr *GenerationError
	switch {
	case chatErr != nil:
		kind := KindProvider
		if errors.Is(chatErr, context.DeadlineExceeded) || errors.Is(chatErr, context.Canceled) {
			kind = KindTimeout
		} else if result == nil || result.ErrorType == "http_error" {
			kind = KindTransport
		}
		gerr = fail(kind, chatErr)
	case result == nil:
		gerr = fail(KindTransport, errors.New("no result from provider"))
	case len(result.ParsedJSON) == 0:
		msg := result.ErrorMessage
		if msg == "" {
			msg = "empty response"
		}
		gerr = fail(KindParse, errors.New(msg))
	default:
		if err := providers.ValidateStructuredJSON(schema, result.ParsedJSON); err != nil {
			gerr = fail(KindSchema, err)
		} else {
			out.JSON = result.ParsedJSON
		}
	}

	g.record(req, result, gerr)
	if gerr != nil {
		return out, gerr
	}
	return out, nil
}

func (g *Generator) record(req Request, result *providers.ChatResult, gerr *GenerationError) {
	if g.log == nil {
		return
	}
	temp := g.temperature
	call := llmcall.FromChatResult(result, llmcall.RecordOptions{
		BatchID:     req.BatchID,
		Driver:      req.Name,
		PromptKey:   req.PromptKey,
		Prompt:      req.Prompt,
		Temperature: &temp,
	})
	if gerr != nil {
		call.Success = false
		call.Error = gerr.Error()
	}
	g.log.Record(call)
}

// Generate runs one unit. An element count of zero is a valid outcome.
func (g *Generator) Generate(ctx context.Context, unit Unit) Outcome {
	name := unit.Driver.Name
	res, gerr := g.Structured(ctx, Request{
		Name:      name,
		Prompt:    unit.Prompt,
		Schema:    BuildSchema(unit.Fields),
		PromptKey: "section." + unit.Kind,
		BatchID:   unit.BatchID,
	})
	outcome := Outcome{Driver: name, Usage: res.Usage, Model: res.Model}
	if gerr != nil {
		g.logger.Debug("section generation failed", "driver", name, "kind", gerr.Kind, "error", gerr.Err)
		outcome.Err = gerr
		return outcome
	}

	sec, err := decodeSection(res.JSON, unit)
	if err != nil {
		outcome.Err = &GenerationError{Driver: name, Kind: KindSchema, Err: err}
		return outcome
	}
	g.logger.Debug("section generated", "driver", name, "elements", len(sec.Elements), "tokens", res.Usage.TotalTokens)
	outcome.Section = sec
	return outcome
}

type rawSection struct {
	SectionName        string                       `json:"sectionName"`
	SectionDescription string                       `json:"sectionDescription"`
	Elements           []map[string]json.RawMessage `json:"elements"`
}

// decodeSection converts validated JSON into a Section, flattening table
// fields to compact JSON strings.
func decodeSection(data json.RawMessage, unit Unit) (*Section, error) {
	var raw rawSection
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode section: %w", err)
	}

	sec := &Section{
		SectionName:        raw.SectionName,
		SectionDescription: raw.SectionDescription,
		Elements:           make([]Element, 0, len(raw.Elements)),
	}
	if sec.SectionName == "" {
		sec.SectionName = unit.Driver.Name
	}
	if sec.SectionDescription == "" {
		sec.SectionDescription = unit.Driver.Description
	}

	for i, rawEl := range raw.Elements {
		el := make(Element, len(unit.Fields))
		for _, f := range unit.Fields {
			v, ok := rawEl[f.Key]
			if !ok {
				return nil, fmt.Errorf("element %d: missing field %q", i, f.Key)
			}
			s, err := fieldString(v)
			if err != nil {
				return nil, fmt.Errorf("element %d field %q: %w", i, f.Key, err)
			}
			el[f.Key] = s
		}
		sec.Elements = append(sec.Elements, el)
	}
	return sec, nil
}

func fieldString(v json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
