package llmcall

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackzampolin/folio/internal/providers"
)

func TestFromChatResult(t *testing.T) {
	temp := 0.7
	result := &providers.ChatResult{
		Content:          `{"a":1}`,
		PromptTokens:     12,
		CompletionTokens: 8,
		CostUSD:          0.01,
		ExecutionTime:    250 * time.Millisecond,
		Provider:         "openrouter",
		ModelUsed:        "openai/gpt-4o-mini",
		Success:          true,
	}
	call := FromChatResult(result, RecordOptions{
		BatchID:     "b1",
		Driver:      "Strategic",
		PromptKey:   "section.questions",
		Prompt:      "the prompt",
		Temperature: &temp,
	})

	if call.ID == "" || call.PromptHash == "" {
		t.Fatalf("missing id or hash: %+v", call)
	}
	if call.Driver != "Strategic" || call.Prompt != "the prompt" || call.LatencyMs != 250 {
		t.Errorf("call = %+v", call)
	}
	if call.InputTokens != 12 || call.OutputTokens != 8 || !call.Success || call.Error != "" {
		t.Errorf("usage/status = %+v", call)
	}

	failed := FromChatResult(&providers.ChatResult{ErrorMessage: "boom"}, RecordOptions{Prompt: "p"})
	if failed.Success || failed.Error != "boom" {
		t.Errorf("failed call = %+v", failed)
	}
	if nilCall := FromChatResult(nil, RecordOptions{Prompt: "p"}); nilCall.Prompt != "p" || nilCall.Error == "" {
		t.Errorf("nil result call = %+v", nilCall)
	}
}

func TestBuffer_ConcurrentAppend(t *testing.T) {
	b := NewBuffer()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			b.Record(&Call{Prompt: fmt.Sprintf("p%d", n)})
		}(i)
	}
	wg.Wait()
	b.Record(nil)

	if got := len(b.Calls()); got != 50 {
		t.Errorf("len(Calls()) = %d, want 50", got)
	}
	if got := len(b.Prompts()); got != 50 {
		t.Errorf("len(Prompts()) = %d, want 50", got)
	}
}

type fakeAppender struct {
	mu    sync.Mutex
	calls []Call
	err   error
}

func (f *fakeAppender) Put(_ context.Context, c Call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, c)
	return nil
}

func TestTeeAndSink(t *testing.T) {
	store := &fakeAppender{}
	buf := NewBuffer()
	var nilBuf *Buffer

	log := Tee(buf, NewSink(store, nil), nilBuf, nil)
	log.Record(&Call{ID: "1", Prompt: "p"})

	if len(buf.Calls()) != 1 || len(store.calls) != 1 {
		t.Errorf("buffer=%d store=%d, want 1 each", len(buf.Calls()), len(store.calls))
	}
	if Tee(nil, nilBuf) != nil {
		t.Error("Tee of nothing should be nil")
	}
	if Tee(buf) != buf {
		t.Error("Tee of one log should return it unchanged")
	}

	failing := NewSink(&fakeAppender{err: errors.New("disk full")}, nil)
	failing.Record(&Call{ID: "2"}) // must not panic or surface
}

func TestFilterApply(t *testing.T) {
	now := time.Now()
	ok, bad := true, false
	calls := []Call{
		{ID: "1", Driver: "A", Success: true, Timestamp: now.Add(-3 * time.Minute)},
		{ID: "2", Driver: "B", Success: false, Timestamp: now.Add(-2 * time.Minute)},
		{ID: "3", Driver: "A", Success: true, Timestamp: now.Add(-1 * time.Minute), BatchID: "x"},
	}

	tests := []struct {
		name string
		f    Filter
		want []string
	}{
		{name: "all newest first", f: Filter{}, want: []string{"3", "2", "1"}},
		{name: "by driver", f: Filter{Driver: "A"}, want: []string{"3", "1"}},
		{name: "failures", f: Filter{Success: &bad}, want: []string{"2"}},
		{name: "successes limited", f: Filter{Success: &ok, Limit: 1}, want: []string{"3"}},
		{name: "batch", f: Filter{BatchID: "x"}, want: []string{"3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.f.Apply(calls)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d calls, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("got[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}
