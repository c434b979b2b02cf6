package providers

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRegistry(t *testing.T) {
	t.Run("register and get LLM", func(t *testing.T) {
		r := NewRegistry()
		mock := NewMockClient()
		r.RegisterLLM("test-llm", mock)

		client, err := r.GetLLM("test-llm")
		if err != nil {
			t.Fatalf("GetLLM() error = %v", err)
		}
		if client != mock {
			t.Error("got different client than registered")
		}
	})

	t.Run("get nonexistent LLM", func(t *testing.T) {
		if _, err := NewRegistry().GetLLM("nonexistent"); err == nil {
			t.Error("expected error for nonexistent LLM")
		}
	})

	t.Run("list is sorted", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterLLM("b", NewMockClient())
		r.RegisterLLM("a", NewMockClient())
		got := r.ListLLM()
		if len(got) != 2 || got[0] != "a" || got[1] != "b" {
			t.Errorf("ListLLM() = %v", got)
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		r := NewRegistry()
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				r.RegisterLLM("concurrent-llm", NewMockClient())
			}()
			go func() {
				defer wg.Done()
				r.GetLLM("concurrent-llm")
			}()
		}
		wg.Wait()
	})
}

func TestRegistryReload(t *testing.T) {
	cfg := RegistryConfig{LLMProviders: map[string]LLMProviderConfig{
		"openrouter": {Type: "openrouter", Model: "openai/gpt-4o-mini", APIKey: "k1", Enabled: true},
		"openai":     {Type: "openai", Model: "gpt-4o-mini", APIKey: "k2", Enabled: true, RateLimit: 60},
		"disabled":   {Type: "openrouter", APIKey: "k3", Enabled: false},
		"no-key":     {Type: "openrouter", Enabled: true},
		"bogus":      {Type: "carrier-pigeon", APIKey: "k4", Enabled: true},
	}}
	r := NewRegistryFromConfig(cfg)
	r.RegisterLLM("mock", NewMockClient())

	for _, name := range []string{"openrouter", "openai"} {
		if !r.HasLLM(name) {
			t.Errorf("expected %s to be registered", name)
		}
	}
	for _, name := range []string{"disabled", "no-key", "bogus"} {
		if r.HasLLM(name) {
			t.Errorf("%s should not be registered", name)
		}
	}

	limited, _ := r.GetLLM("openai")
	if _, ok := limited.(*LimitedClient); !ok {
		t.Errorf("rate-limited provider should be wrapped, got %T", limited)
	}
	if ModelOf(limited) != "gpt-4o-mini" {
		t.Errorf("ModelOf() = %q", ModelOf(limited))
	}

	before, _ := r.GetLLM("openrouter")
	r.Reload(cfg)
	after, _ := r.GetLLM("openrouter")
	if before != after {
		t.Error("unchanged config should keep the same client")
	}

	changed := RegistryConfig{LLMProviders: map[string]LLMProviderConfig{
		"openrouter": {Type: "openrouter", Model: "openai/gpt-4o", APIKey: "k1", Enabled: true},
	}}
	r.Reload(changed)
	updated, _ := r.GetLLM("openrouter")
	if updated == before {
		t.Error("changed config should rebuild the client")
	}
	if r.HasLLM("openai") {
		t.Error("removed provider should be unregistered")
	}
	if !r.HasLLM("mock") {
		t.Error("hand-registered client should survive reload")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2)
	if !rl.TryConsume() || !rl.TryConsume() {
		t.Fatal("full bucket should allow two requests")
	}
	if rl.TryConsume() {
		t.Error("empty bucket should refuse")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Error("Wait should time out on an empty slow bucket")
	}
	if st := rl.Status(); st.TotalConsumed != 2 || st.TokensLimit != 2 {
		t.Errorf("Status() = %+v", st)
	}
}

func TestMockClient_Script(t *testing.T) {
	mock := NewMockClient()
	mock.Respond = func(req *ChatRequest) MockResponse {
		if req.Messages[0].Content == "fail" {
			return MockResponse{Err: context.DeadlineExceeded}
		}
		return MockResponse{Content: `{"ok":true}`, PromptTokens: 3, CompletionTokens: 4}
	}

	req := UserPrompt("hi")
	req.ResponseFormat = JSONSchemaFormat([]byte(`{}`))
	res, err := mock.Chat(context.Background(), req)
	if err != nil || !res.Success || res.TotalTokens != 7 || string(res.ParsedJSON) != `{"ok":true}` {
		t.Errorf("Chat() = %+v, %v", res, err)
	}
	res, err = mock.Chat(context.Background(), UserPrompt("fail"))
	if err == nil || res.Success || res.TotalTokens != 0 {
		t.Errorf("scripted failure = %+v, %v", res, err)
	}
	if mock.RequestCount() != 2 || len(mock.Requests()) != 2 {
		t.Errorf("RequestCount() = %d", mock.RequestCount())
	}
}
