package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockResponse is one scripted answer.
type MockResponse struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
	Latency          time.Duration
	Err              error
}

// MockClient is an LLMClient for testing.
type MockClient struct {
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // fail after N requests (0 = never)
	ResponseText string
	ResponseJSON json.RawMessage
	Model        string

	// Respond, when set, scripts the answer per request. It may be called
	// concurrently.
	Respond func(req *ChatRequest) MockResponse

	requestCount atomic.Int64
	mu           sync.Mutex
	requests     []ChatRequest
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:      time.Millisecond,
		ResponseText: "mock response",
		Model:        "mock-model",
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat answers from the script, the fixed response, or fails as configured.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)
	c.mu.Lock()
	c.requests = append(c.requests, *req)
	c.mu.Unlock()

	model := req.Model
	if model == "" {
		model = c.Model
	}
	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: model,
		Attempts:  1,
	}

	if c.ShouldFail {
		return result, result.fail("mock_failure", errors.New("mock client configured to fail"), start)
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		return result, result.fail("mock_failure", fmt.Errorf("mock client failed after %d requests", c.FailAfter), start)
	}

	resp := MockResponse{Content: c.ResponseText, Latency: c.Latency}
	if len(c.ResponseJSON) > 0 && req.ResponseFormat != nil {
		resp.Content = string(c.ResponseJSON)
	}
	if c.Respond != nil {
		resp = c.Respond(req)
	}

	if resp.Latency > 0 {
		select {
		case <-time.After(resp.Latency):
		case <-ctx.Done():
			return result, result.fail("context_cancelled", ctx.Err(), start)
		}
	}
	if resp.Err != nil {
		return result, result.fail("mock_failure", resp.Err, start)
	}

	result.Success = true
	result.Content = resp.Content
	result.PromptTokens = resp.PromptTokens
	result.CompletionTokens = resp.CompletionTokens
	if resp.PromptTokens == 0 && resp.CompletionTokens == 0 && c.Respond == nil {
		for _, m := range req.Messages {
			result.PromptTokens += len(m.Content) / 4
		}
		result.CompletionTokens = len(resp.Content) / 4
	}
	result.TotalTokens = result.PromptTokens + result.CompletionTokens
	result.CostUSD = resp.CostUSD
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime

	if req.ResponseFormat != nil {
		attachParsedJSON(result)
	}
	return result, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Requests returns a copy of every request received.
func (c *MockClient) Requests() []ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChatRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// Reset clears the request counter and history.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
	c.mu.Lock()
	c.requests = nil
	c.mu.Unlock()
}

var _ LLMClient = (*MockClient)(nil)
