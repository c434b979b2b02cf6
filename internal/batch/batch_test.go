package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jackzampolin/folio/internal/llmcall"
	"github.com/jackzampolin/folio/internal/prompts"
	"github.com/jackzampolin/folio/internal/providers"
	"github.com/jackzampolin/folio/internal/section"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var testFields = []prompts.FieldSpec{
	{Key: "question", Label: "Question", Primary: true},
	{Key: "rationale", Label: "Rationale"},
}

func drivers(names ...string) []prompts.Driver {
	out := make([]prompts.Driver, len(names))
	for i, n := range names {
		out[i] = prompts.Driver{Name: n, Description: n + " description"}
	}
	return out
}

// script describes how the mock answers for one driver.
type script struct {
	elements int
	fail     bool
	invalid  bool // answers with JSON that misses the schema
	latency  time.Duration
	in, out  int
}

// driverOf finds which driver a prompt was assembled for by its definition line.
func driverOf(req *providers.ChatRequest, names []string) string {
	prompt := req.Messages[len(req.Messages)-1].Content
	for _, n := range names {
		if strings.Contains(prompt, "\n"+n+":") {
			return n
		}
	}
	return ""
}

func sectionJSON(name string, n int) string {
	els := make([]string, n)
	for i := range els {
		els[i] = fmt.Sprintf(`{"question":"%s Q%d","rationale":"R%d"}`, name, i+1, i+1)
	}
	return fmt.Sprintf(`{"sectionName":%q,"sectionDescription":"generated","elements":[%s]}`, name, strings.Join(els, ","))
}

func scriptedMock(scripts map[string]script) *providers.MockClient {
	names := make([]string, 0, len(scripts))
	for n := range scripts {
		names = append(names, n)
	}
	mock := providers.NewMockClient()
	mock.Respond = func(req *providers.ChatRequest) providers.MockResponse {
		name := driverOf(req, names)
		s := scripts[name]
		resp := providers.MockResponse{Latency: s.latency, PromptTokens: s.in, CompletionTokens: s.out}
		if s.fail {
			resp.Err = fmt.Errorf("upstream 500 for %s", name)
			resp.PromptTokens, resp.CompletionTokens = 0, 0
			return resp
		}
		if s.invalid {
			resp.Content = `{"oops":true}`
			return resp
		}
		resp.Content = sectionJSON(name, s.elements)
		return resp
	}
	return mock
}

func newOrchestrator(mock *providers.MockClient, opts ...Option) *Orchestrator {
	gen := section.NewGenerator(section.Config{Client: mock, Logger: quietLogger})
	return New(gen, append([]Option{WithLogger(quietLogger)}, opts...)...)
}

func questionsKind(t *testing.T) *prompts.Kind {
	t.Helper()
	k, err := prompts.LookupKind("questions")
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func sectionNames(secs []section.Section) []string {
	out := make([]string, len(secs))
	for i, s := range secs {
		out[i] = s.SectionName
	}
	return out
}

func TestRun_PreservesDriverOrder(t *testing.T) {
	// The first driver finishes last.
	mock := scriptedMock(map[string]script{
		"Alpha": {elements: 1, latency: 60 * time.Millisecond},
		"Beta":  {elements: 2, latency: 30 * time.Millisecond},
		"Gamma": {elements: 3, latency: time.Millisecond},
	})
	resp := newOrchestrator(mock).Run(context.Background(), Request{
		Kind:          questionsKind(t),
		Context:       map[string]string{"industry": "Fintech"},
		Drivers:       drivers("Alpha", "Beta", "Gamma"),
		DefaultFields: testFields,
	})

	if err := resp.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	got := strings.Join(sectionNames(resp.Sections), ",")
	if got != "Alpha,Beta,Gamma" {
		t.Errorf("section order = %s", got)
	}
	for i, s := range resp.Sections {
		if len(s.Elements) != i+1 {
			t.Errorf("section %d has %d elements, want %d", i, len(s.Elements), i+1)
		}
	}
	if len(resp.Prompts) != 3 || !strings.Contains(resp.Prompts[0], "\nAlpha:") {
		t.Errorf("prompts not in driver order: %d", len(resp.Prompts))
	}
}

func TestRun_DispatchesConcurrently(t *testing.T) {
	const n = 4
	var arrived atomic.Int32
	release := make(chan struct{})

	mock := providers.NewMockClient()
	mock.Respond = func(req *providers.ChatRequest) providers.MockResponse {
		if arrived.Add(1) == n {
			close(release)
		}
		select {
		case <-release:
		case <-time.After(2 * time.Second):
			return providers.MockResponse{Err: errors.New("drivers were not in flight together")}
		}
		return providers.MockResponse{Content: sectionJSON("D", 1)}
	}

	resp := newOrchestrator(mock).Run(context.Background(), Request{
		Kind:          questionsKind(t),
		Drivers:       drivers("A", "B", "C", "D"),
		DefaultFields: testFields,
	})
	if resp.Failed() != 0 || len(resp.Sections) != n {
		t.Errorf("failed=%d sections=%d: %+v", resp.Failed(), len(resp.Sections), resp.Drivers)
	}
}

func TestRun_FailureIsolation(t *testing.T) {
	names := []string{"Alpha", "Beta", "Gamma", "Delta", "Epsilon"}
	for failing := range names {
		t.Run("fail "+names[failing], func(t *testing.T) {
			scripts := make(map[string]script, len(names))
			var want []string
			for i, n := range names {
				if i == failing {
					scripts[n] = script{fail: true}
					continue
				}
				scripts[n] = script{elements: i + 1, in: 10, out: 20}
				want = append(want, n)
			}
			mock := scriptedMock(scripts)
			resp := newOrchestrator(mock).Run(context.Background(), Request{
				Kind:          questionsKind(t),
				Drivers:       drivers(names...),
				DefaultFields: testFields,
			})

			if got, w := strings.Join(sectionNames(resp.Sections), ","), strings.Join(want, ","); got != w {
				t.Errorf("sections = %s, want %s", got, w)
			}
			for _, sec := range resp.Sections {
				idx := indexOf(names, sec.SectionName)
				if len(sec.Elements) != idx+1 {
					t.Errorf("%s elements = %d, want %d", sec.SectionName, len(sec.Elements), idx+1)
				}
			}
			d := resp.Drivers[failing]
			if d.Status != StatusFailed || d.ErrorKind != string(section.KindProvider) {
				t.Errorf("%s diagnostic = %+v", names[failing], d)
			}
			if !strings.Contains(d.Error, names[failing]) {
				t.Errorf("error %q does not name the driver", d.Error)
			}
			if resp.Failed() != 1 {
				t.Errorf("Failed() = %d, want 1", resp.Failed())
			}
			if resp.Usage.InputTokens != 40 || resp.Usage.OutputTokens != 80 {
				t.Errorf("usage = %+v", resp.Usage)
			}
			if mock.RequestCount() != int64(len(names)) {
				t.Errorf("requests = %d, want one per driver with no retries", mock.RequestCount())
			}
		})
	}
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func TestRun_FailedDriverUsageExcluded(t *testing.T) {
	mock := scriptedMock(map[string]script{
		"Alpha": {elements: 2, in: 10, out: 20},
		"Beta":  {elements: 1, in: 5, out: 5},
		"Gamma": {invalid: true, in: 7, out: 9},
	})
	resp := newOrchestrator(mock).Run(context.Background(), Request{
		Kind:          questionsKind(t),
		Drivers:       drivers("Alpha", "Beta", "Gamma"),
		DefaultFields: testFields,
	})

	if resp.Usage.InputTokens != 15 || resp.Usage.OutputTokens != 25 || resp.Usage.TotalTokens != 40 {
		t.Errorf("usage = %+v, want (15,25)", resp.Usage)
	}
	g := resp.Drivers[2]
	if g.Status != StatusFailed || g.ErrorKind != string(section.KindSchema) {
		t.Errorf("Gamma diagnostic = %+v", g)
	}
	// Billed tokens are still reported for the driver itself.
	if g.Usage.InputTokens != 7 || g.Usage.OutputTokens != 9 {
		t.Errorf("Gamma usage = %+v", g.Usage)
	}
}

func TestRun_AllEmptyIsNoContent(t *testing.T) {
	mock := scriptedMock(map[string]script{
		"Alpha": {elements: 0},
		"Beta":  {fail: true},
		"Gamma": {elements: 0},
	})
	resp := newOrchestrator(mock).Run(context.Background(), Request{
		Kind:          questionsKind(t),
		Drivers:       drivers("Alpha", "Beta", "Gamma"),
		DefaultFields: testFields,
	})

	if len(resp.Sections) != 0 {
		t.Fatalf("sections = %d, want 0", len(resp.Sections))
	}
	if !errors.Is(resp.Err(), ErrNoContent) {
		t.Errorf("Err() = %v, want ErrNoContent", resp.Err())
	}
	if resp.Summary() != "0/3 relevant sections generated" {
		t.Errorf("Summary() = %q", resp.Summary())
	}
	want := []Status{StatusEmpty, StatusFailed, StatusEmpty}
	for i, d := range resp.Drivers {
		if d.Status != want[i] {
			t.Errorf("driver %d status = %s, want %s", i, d.Status, want[i])
		}
	}
}

func TestRun_SingleDriverEmpty(t *testing.T) {
	mock := scriptedMock(map[string]script{"Only": {elements: 0}})
	resp := newOrchestrator(mock).Run(context.Background(), Request{
		Kind:          questionsKind(t),
		Drivers:       drivers("Only"),
		DefaultFields: testFields,
	})
	if !errors.Is(resp.Err(), ErrNoContent) {
		t.Errorf("Err() = %v", resp.Err())
	}
}

func TestRun_CISOQuestionBook(t *testing.T) {
	kind := questionsKind(t)
	scripts := map[string]script{}
	for _, d := range kind.DefaultDrivers {
		scripts[d.Name] = script{}
	}
	scripts["Strategic"] = script{elements: 3}
	scripts["Risk & Compliance"] = script{elements: 3}

	buf := llmcall.NewBuffer()
	mock := scriptedMock(scripts)
	gen := section.NewGenerator(section.Config{Client: mock, Logger: quietLogger}).WithLog(buf)
	resp := New(gen, WithLogger(quietLogger)).Run(context.Background(), Request{
		Kind: kind,
		Context: map[string]string{
			"role":     "CISO",
			"industry": "Manufacturing",
		},
		Drivers:       kind.DefaultDrivers,
		DefaultFields: testFields,
	})

	if got := strings.Join(sectionNames(resp.Sections), ","); got != "Strategic,Risk & Compliance" {
		t.Errorf("sections = %s", got)
	}
	total := 0
	for _, s := range resp.Sections {
		total += len(s.Elements)
	}
	if total != 6 {
		t.Errorf("elements = %d, want 6", total)
	}
	if resp.Summary() != "2/5 relevant sections generated" {
		t.Errorf("Summary() = %q", resp.Summary())
	}
	if len(buf.Calls()) != 5 {
		t.Errorf("debug log has %d calls, want 5", len(buf.Calls()))
	}
	for _, p := range resp.Prompts {
		if !strings.Contains(p, "- Role: CISO") {
			t.Errorf("prompt missing context:\n%s", p)
			break
		}
	}
	if resp.PerDriverFields {
		t.Error("default drivers should use uniform fields")
	}
}

func TestRun_PerDriverFields(t *testing.T) {
	ds := drivers("Alpha", "Beta")
	ds[1].Fields = []prompts.FieldSpec{
		{Key: "question", Label: "Question", Primary: true},
		{Key: "rationale", Label: "Why it matters"},
	}
	mock := scriptedMock(map[string]script{"Alpha": {elements: 1}, "Beta": {elements: 1}})
	resp := newOrchestrator(mock).Run(context.Background(), Request{
		Kind:          questionsKind(t),
		Drivers:       ds,
		DefaultFields: testFields,
	})

	if !resp.PerDriverFields {
		t.Fatal("expected per-driver mode")
	}
	if len(resp.Sections) != 2 {
		t.Fatalf("sections = %d", len(resp.Sections))
	}
	if resp.Sections[1].ResolvedFields[1].Label != "Why it matters" {
		t.Errorf("Beta resolved fields = %+v", resp.Sections[1].ResolvedFields)
	}
	if resp.Sections[0].ResolvedFields[1].Label != "Rationale" {
		t.Errorf("Alpha should fall back to defaults: %+v", resp.Sections[0].ResolvedFields)
	}
	for _, p := range resp.Prompts {
		if !strings.Contains(p, "OUTPUT FIELDS:") {
			t.Errorf("per-driver prompt missing field block")
		}
	}
}

func TestRun_AssemblyFailureSkipsRequest(t *testing.T) {
	mock := scriptedMock(map[string]script{"Alpha": {elements: 1}})
	resp := newOrchestrator(mock).Run(context.Background(), Request{
		Kind:          questionsKind(t),
		Drivers:       []prompts.Driver{{Name: "Alpha"}, {Name: "   "}},
		DefaultFields: testFields,
	})

	if mock.RequestCount() != 1 {
		t.Errorf("requests = %d, want 1", mock.RequestCount())
	}
	if resp.Drivers[1].Status != StatusFailed || resp.Drivers[1].ErrorKind != string(section.KindPrompt) {
		t.Errorf("blank driver diagnostic = %+v", resp.Drivers[1])
	}
	if len(resp.Sections) != 1 {
		t.Errorf("sections = %d", len(resp.Sections))
	}
}

func TestRun_Cancelled(t *testing.T) {
	mock := scriptedMock(map[string]script{
		"Alpha": {elements: 1, latency: time.Second},
		"Beta":  {elements: 1, latency: time.Second},
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	resp := newOrchestrator(mock).Run(ctx, Request{
		Kind:          questionsKind(t),
		Drivers:       drivers("Alpha", "Beta"),
		DefaultFields: testFields,
	})
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("Run did not stop at the deadline")
	}
	if !errors.Is(resp.Err(), ErrNoContent) {
		t.Errorf("Err() = %v", resp.Err())
	}
	for _, d := range resp.Drivers {
		if d.ErrorKind != string(section.KindTimeout) {
			t.Errorf("driver %s kind = %q, want timeout", d.Driver, d.ErrorKind)
		}
	}
}

func TestRun_MaxConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	mock := providers.NewMockClient()
	mock.Respond = func(*providers.ChatRequest) providers.MockResponse {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return providers.MockResponse{Content: sectionJSON("X", 1)}
	}

	resp := newOrchestrator(mock, WithMaxConcurrency(2)).Run(context.Background(), Request{
		Kind:          questionsKind(t),
		Drivers:       drivers("A", "B", "C", "D", "E"),
		DefaultFields: testFields,
	})
	if len(resp.Sections) != 5 {
		t.Errorf("sections = %d", len(resp.Sections))
	}
	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}
}

func TestStrategyFor(t *testing.T) {
	tests := []struct {
		name      string
		drivers   []prompts.Driver
		perDriver bool
	}{
		{"none define fields", drivers("A", "B"), false},
		{"one defines fields", []prompts.Driver{{Name: "A"}, {Name: "B", Fields: testFields[:1]}}, true},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy, per := StrategyFor(tt.drivers)
			if per != tt.perDriver {
				t.Errorf("perDriver = %v, want %v", per, tt.perDriver)
			}
			for _, d := range tt.drivers {
				got := strategy(d, testFields)
				want := testFields
				if per && len(d.Fields) > 0 {
					want = d.Fields
				}
				if len(got) != len(want) {
					t.Errorf("%s: fields = %v, want %v", d.Name, got, want)
				}
			}
		})
	}
}
