// Package enrich generates the per-element extras attached to a product
// after the main batch: dissections and deeper follow-up questions.
// Each is one structured call through the same generator the batch uses.
package enrich

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/jackzampolin/folio/internal/content"
	"github.com/jackzampolin/folio/internal/metrics"
	"github.com/jackzampolin/folio/internal/prompts"
	"github.com/jackzampolin/folio/internal/section"
)

var (
	//go:embed templates/dissect.tmpl
	dissectText string
	//go:embed templates/deeper.tmpl
	deeperText string

	dissectTemplate = template.Must(template.New("dissect").Option("missingkey=error").Parse(dissectText))
	deeperTemplate  = template.Must(template.New("deeper").Option("missingkey=error").Parse(deeperText))
)

// ErrEmptyItem is returned when the item text is blank.
var ErrEmptyItem = errors.New("item text is required")

// Caller issues one structured call. *section.Generator satisfies it.
type Caller interface {
	Structured(ctx context.Context, req section.Request) (section.Result, *section.GenerationError)
}

// Item is the single element being enriched.
type Item struct {
	Text        string            `json:"text"`
	Context     map[string]string `json:"context"`
	Perspective string            `json:"perspective"`
	Kind        string            `json:"kind,omitempty"` // output type; defaults to questions
	BatchID     string            `json:"-"`
}

type templateData struct {
	KindTitle    string
	Context      string
	LabelHeading string
	Perspective  string
	Text         string
}

func (it Item) data() (templateData, error) {
	text := strings.TrimSpace(it.Text)
	if text == "" {
		return templateData{}, ErrEmptyItem
	}
	kindName := it.Kind
	if kindName == "" {
		kindName = "questions"
	}
	kind, err := prompts.LookupKind(kindName)
	if err != nil {
		return templateData{}, err
	}
	perspective := prompts.CollapseWhitespace(it.Perspective)
	if perspective == "" {
		perspective = "General"
	}
	return templateData{
		KindTitle:    strings.ToLower(kind.Title),
		Context:      prompts.RenderContext(it.Context),
		LabelHeading: strings.ToUpper(kind.SectionLabel),
		Perspective:  perspective,
		Text:         text,
	}, nil
}

func render(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Dissector produces DissectionData.
type Dissector struct {
	caller Caller
}

// NewDissector creates a Dissector.
func NewDissector(c Caller) *Dissector {
	return &Dissector{caller: c}
}

// Prompt assembles the dissection prompt for it.
func (d *Dissector) Prompt(it Item) (string, error) {
	data, err := it.data()
	if err != nil {
		return "", err
	}
	return render(dissectTemplate, data)
}

// Dissect runs one dissection. Usage is returned even on failure when the
// provider reported it.
func (d *Dissector) Dissect(ctx context.Context, it Item) (*content.DissectionData, metrics.Usage, error) {
	var out content.DissectionData
	usage, err := run(ctx, d.caller, it, dissectTemplate, DissectionSchema, "enrich.dissect", &out)
	if err != nil {
		return nil, usage, err
	}
	return &out, usage, nil
}

// Deepener produces DeeperData.
type Deepener struct {
	caller Caller
}

// NewDeepener creates a Deepener.
func NewDeepener(c Caller) *Deepener {
	return &Deepener{caller: c}
}

// Prompt assembles the follow-up prompt for it.
func (d *Deepener) Prompt(it Item) (string, error) {
	data, err := it.data()
	if err != nil {
		return "", err
	}
	return render(deeperTemplate, data)
}

// Deepen generates second- and third-order follow-ups.
func (d *Deepener) Deepen(ctx context.Context, it Item) (*content.DeeperData, metrics.Usage, error) {
	var out content.DeeperData
	usage, err := run(ctx, d.caller, it, deeperTemplate, DeeperSchema, "enrich.deeper", &out)
	if err != nil {
		return nil, usage, err
	}
	return &out, usage, nil
}

func run(ctx context.Context, c Caller, it Item, t *template.Template, schema json.RawMessage, key string, out any) (metrics.Usage, error) {
	data, err := it.data()
	if err != nil {
		return metrics.Usage{}, err
	}
	prompt, err := render(t, data)
	if err != nil {
		return metrics.Usage{}, &section.GenerationError{Driver: data.Perspective, Kind: section.KindPrompt, Err: err}
	}

	res, gerr := c.Structured(ctx, section.Request{
		Name:      data.Perspective,
		Prompt:    prompt,
		Schema:    schema,
		PromptKey: key,
		BatchID:   it.BatchID,
	})
	if gerr != nil {
		return res.Usage, gerr
	}
	if err := json.Unmarshal(res.JSON, out); err != nil {
		return res.Usage, &section.GenerationError{Driver: data.Perspective, Kind: section.KindSchema, Err: err}
	}
	return res.Usage, nil
}
