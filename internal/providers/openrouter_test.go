package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestOpenRouter(t *testing.T, handler http.HandlerFunc, retries int) (*OpenRouterClient, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewOpenRouterClient(OpenRouterConfig{
		APIKey:       "test-key",
		BaseURL:      srv.URL,
		DefaultModel: "openai/gpt-4o-mini",
		MaxRetries:   retries,
		RetryDelay:   time.Millisecond,
	}), &calls
}

const okBody = `{
	"id": "gen-1",
	"model": "openai/gpt-4o-mini",
	"choices": [{"message": {"role": "assistant", "content": "{\"sectionName\":\"A\"}"}}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30, "cost": 0.002}
}`

func TestOpenRouterChat_Success(t *testing.T) {
	var got openRouterRequest
	client, calls := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(okBody))
	}, 0)

	req := UserPrompt("hello")
	req.ResponseFormat = JSONSchemaFormat(json.RawMessage(`{"name":"x","strict":true,"schema":{"type":"object"}}`))
	result, err := client.Chat(context.Background(), req)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("requests = %d, want 1", calls.Load())
	}
	if !result.Success {
		t.Errorf("Success = false: %s", result.ErrorMessage)
	}
	if result.PromptTokens != 10 || result.CompletionTokens != 20 || result.TotalTokens != 30 {
		t.Errorf("usage = %d/%d/%d", result.PromptTokens, result.CompletionTokens, result.TotalTokens)
	}
	if result.CostUSD != 0.002 {
		t.Errorf("CostUSD = %v", result.CostUSD)
	}
	if string(result.ParsedJSON) != `{"sectionName":"A"}` {
		t.Errorf("ParsedJSON = %s", result.ParsedJSON)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_schema" {
		t.Errorf("response_format not forwarded: %+v", got.ResponseFormat)
	}
	if got.Usage == nil || !got.Usage.Include {
		t.Error("usage accounting not requested")
	}
}

func TestOpenRouterChat_SingleAttemptByDefault(t *testing.T) {
	client, calls := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("overloaded"))
	}, 0)

	result, err := client.Chat(context.Background(), UserPrompt("hello"))
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("requests = %d, want exactly 1", calls.Load())
	}
	if result.Success || result.ErrorType != "http_error" {
		t.Errorf("result = %+v", result)
	}
	if result.TotalTokens != 0 {
		t.Errorf("failed call reported %d tokens", result.TotalTokens)
	}
}

func TestOpenRouterChat_RetriesWhenConfigured(t *testing.T) {
	var n atomic.Int32
	client, calls := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if n.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(okBody))
	}, 3)

	result, err := client.Chat(context.Background(), UserPrompt("hello"))
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if calls.Load() != 2 || result.Attempts != 2 {
		t.Errorf("requests = %d, attempts = %d; want 2", calls.Load(), result.Attempts)
	}
}

func TestOpenRouterChat_NonRetryableStatus(t *testing.T) {
	client, calls := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}, 3)

	if _, err := client.Chat(context.Background(), UserPrompt("hello")); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("requests = %d, want 1", calls.Load())
	}
}

func TestOpenRouterChat_AnthropicSchemaInPrompt(t *testing.T) {
	var got openRouterRequest
	client, _ := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Write([]byte(okBody))
	}, 0)

	req := UserPrompt("hello")
	req.Model = "anthropic/claude-sonnet-4"
	req.ResponseFormat = JSONSchemaFormat(json.RawMessage(`{"name":"x","schema":{"type":"object"}}`))
	if _, err := client.Chat(context.Background(), req); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if got.ResponseFormat != nil {
		t.Error("anthropic models should not receive response_format")
	}
	if len(got.Messages) != 2 || got.Messages[1].Role != "system" {
		t.Fatalf("expected appended system schema message, got %+v", got.Messages)
	}
}

func TestOpenRouterChat_InvalidJSONKeepsUsage(t *testing.T) {
	client, _ := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"not json at all"}}],"usage":{"prompt_tokens":4,"completion_tokens":2,"total_tokens":6}}`))
	}, 0)

	req := UserPrompt("hello")
	req.ResponseFormat = JSONSchemaFormat(json.RawMessage(`{"type":"object"}`))
	result, err := client.Chat(context.Background(), req)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if result.Success || result.ErrorType != "json_parse" {
		t.Errorf("result = %+v, want json_parse failure", result)
	}
	if result.TotalTokens != 6 {
		t.Errorf("TotalTokens = %d, want 6", result.TotalTokens)
	}
}
