package section

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/folio/internal/llmcall"
	"github.com/jackzampolin/folio/internal/prompts"
	"github.com/jackzampolin/folio/internal/providers"
)

var questionFields = []prompts.FieldSpec{
	{Key: "question", Label: "Question", Primary: true},
	{Key: "rationale", Label: "Rationale"},
}

func testUnit() Unit {
	return Unit{
		Driver:  prompts.Driver{Name: "Strategic", Description: "Long-range direction"},
		Prompt:  "ask about strategy",
		Fields:  questionFields,
		BatchID: "batch-1",
		Kind:    "questions",
	}
}

func scripted(content string) *providers.MockClient {
	mock := providers.NewMockClient()
	mock.Respond = func(*providers.ChatRequest) providers.MockResponse {
		return providers.MockResponse{Content: content, PromptTokens: 10, CompletionTokens: 20}
	}
	return mock
}

func TestGenerate_Success(t *testing.T) {
	mock := scripted(`{"sectionName":"Strategic","sectionDescription":"d","elements":[{"question":"Q1","rationale":"R1"},{"question":"Q2","rationale":"R2"}]}`)
	gen := NewGenerator(Config{Client: mock})

	out := gen.Generate(context.Background(), testUnit())
	if !out.OK() {
		t.Fatalf("Generate() err = %v", out.Err)
	}
	if len(out.Section.Elements) != 2 || out.Section.Elements[1]["question"] != "Q2" {
		t.Errorf("elements = %+v", out.Section.Elements)
	}
	if out.Usage.InputTokens != 10 || out.Usage.OutputTokens != 20 || out.Usage.TotalTokens != 30 {
		t.Errorf("usage = %+v", out.Usage)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("requests = %d, want exactly 1", mock.RequestCount())
	}

	req := mock.Requests()[0]
	if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_schema" {
		t.Fatalf("response format = %+v", req.ResponseFormat)
	}
	var wrapper struct {
		Name   string `json:"name"`
		Strict bool   `json:"strict"`
	}
	if err := json.Unmarshal(req.ResponseFormat.JSONSchema, &wrapper); err != nil {
		t.Fatal(err)
	}
	if wrapper.Name != SchemaName || !wrapper.Strict {
		t.Errorf("wrapper = %+v", wrapper)
	}
}

func TestGenerate_ZeroElementsIsValid(t *testing.T) {
	gen := NewGenerator(Config{Client: scripted(`{"sectionName":"Strategic","sectionDescription":"d","elements":[]}`)})

	out := gen.Generate(context.Background(), testUnit())
	if !out.OK() {
		t.Fatalf("Generate() err = %v", out.Err)
	}
	if !out.Section.Empty() {
		t.Errorf("expected empty section, got %d elements", len(out.Section.Elements))
	}
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mock    func() *providers.MockClient
		want    ErrorKind
		wantUse bool
	}{
		{
			name: "missing required field",
			mock: func() *providers.MockClient {
				return scripted(`{"sectionName":"S","sectionDescription":"d","elements":[{"question":"Q1"}]}`)
			},
			want:    KindSchema,
			wantUse: true,
		},
		{
			name: "not json",
			mock: func() *providers.MockClient {
				return scripted("I'm sorry, I can't do that.")
			},
			want:    KindParse,
			wantUse: true,
		},
		{
			name: "provider error",
			mock: func() *providers.MockClient {
				m := providers.NewMockClient()
				m.ShouldFail = true
				return m
			},
			want: KindProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := tt.mock()
			gen := NewGenerator(Config{Client: mock})

			out := gen.Generate(context.Background(), testUnit())
			if out.OK() || out.Err == nil {
				t.Fatal("expected failure")
			}
			if out.Err.Kind != tt.want {
				t.Errorf("kind = %s, want %s (%v)", out.Err.Kind, tt.want, out.Err)
			}
			if out.Err.Driver != "Strategic" {
				t.Errorf("driver = %q", out.Err.Driver)
			}
			if !strings.Contains(out.Err.Error(), "Strategic") {
				t.Errorf("error text %q does not name the driver", out.Err.Error())
			}
			if tt.wantUse && out.Usage.TotalTokens != 30 {
				t.Errorf("usage = %+v, want reported tokens kept", out.Usage)
			}
			if mock.RequestCount() != 1 {
				t.Errorf("requests = %d, want exactly 1", mock.RequestCount())
			}
		})
	}
}

func TestGenerate_Timeout(t *testing.T) {
	mock := providers.NewMockClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mock.Respond = func(*providers.ChatRequest) providers.MockResponse {
		return providers.MockResponse{Content: "{}", Latency: 50 * time.Millisecond}
	}

	out := NewGenerator(Config{Client: mock}).Generate(ctx, testUnit())
	if out.Err == nil || out.Err.Kind != KindTimeout {
		t.Fatalf("err = %v, want timeout", out.Err)
	}
	if !errors.Is(out.Err, context.Canceled) {
		t.Errorf("err does not wrap context.Canceled: %v", out.Err)
	}
}

func TestGenerate_TableFieldFlattened(t *testing.T) {
	fields := []prompts.FieldSpec{
		{Key: "item", Label: "Item", Primary: true},
		{Key: "owners", Label: "Owners", Type: prompts.FieldTable, Columns: []string{"name", "role"}},
	}
	unit := testUnit()
	unit.Fields = fields
	gen := NewGenerator(Config{Client: scripted(`{"sectionName":"S","sectionDescription":"d","elements":[{"item":"Audit","owners":[{"name":"Ana","role":"CISO"}]}]}`)})

	out := gen.Generate(context.Background(), unit)
	if !out.OK() {
		t.Fatalf("Generate() err = %v", out.Err)
	}
	got := out.Section.Elements[0]["owners"]
	if got != `[{"name":"Ana","role":"CISO"}]` {
		t.Errorf("owners = %s", got)
	}
}

func TestGenerate_RecordsCalls(t *testing.T) {
	buf := llmcall.NewBuffer()
	gen := NewGenerator(Config{Client: scripted(`{"sectionName":"S","sectionDescription":"d","elements":[]}`)}).WithLog(buf)

	gen.Generate(context.Background(), testUnit())

	calls := buf.Calls()
	if len(calls) != 1 {
		t.Fatalf("recorded %d calls, want 1", len(calls))
	}
	c := calls[0]
	if c.Prompt != "ask about strategy" || c.PromptKey != "section.questions" || c.BatchID != "batch-1" || c.Driver != "Strategic" {
		t.Errorf("call = %+v", c)
	}
	if !c.Success || c.PromptHash != prompts.HashText("ask about strategy") {
		t.Errorf("success=%v hash=%s", c.Success, c.PromptHash)
	}
}

func TestGenerate_RecordsFailure(t *testing.T) {
	buf := llmcall.NewBuffer()
	gen := NewGenerator(Config{Client: scripted(`{"elements":[]}`)}).WithLog(buf)

	gen.Generate(context.Background(), testUnit())

	calls := buf.Calls()
	if len(calls) != 1 || calls[0].Success || calls[0].Error == "" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestSchemaCache_Reuse(t *testing.T) {
	cache := NewSchemaCache(4)
	gen := NewGenerator(Config{Client: scripted(`{"sectionName":"S","sectionDescription":"d","elements":[]}`), Cache: cache})

	for _, name := range []string{"A", "B", "C"} {
		unit := testUnit()
		unit.Driver.Name = name
		gen.Generate(context.Background(), unit)
	}
	if cache.Len() != 1 {
		t.Errorf("cache len = %d, want 1", cache.Len())
	}
}

func TestBuildSchema_Deterministic(t *testing.T) {
	a := BuildSchema(questionFields)
	b := BuildSchema(questionFields)
	if string(a) != string(b) {
		t.Error("schemas differ for equal field lists")
	}
	if _, err := providers.CompileSchema(a); err != nil {
		t.Fatalf("CompileSchema() error = %v", err)
	}
}
