package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Registry holds the configured LLM clients. It supports config-driven
// instantiation and hot reload, with thread-safe access.
type Registry struct {
	mu         sync.RWMutex
	llmClients map[string]registered
	logger     *slog.Logger
}

type registered struct {
	client LLMClient
	cfg    LLMProviderConfig // zero for clients registered by hand
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	LLMProviders map[string]LLMProviderConfig
}

// LLMProviderConfig matches config.LLMProviderCfg with a resolved API key.
type LLMProviderConfig struct {
	Type       string  // "openrouter", "openai", "gemini"
	Model      string  // default model name
	APIKey     string  // resolved API key
	BaseURL    string  // optional endpoint override
	RateLimit  int     // requests per minute (0 = unlimited)
	MaxRetries int     // total attempts per call (default 1)
	Timeout    float64 // seconds
	Enabled    bool
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llmClients: make(map[string]registered),
		logger:     slog.Default(),
	}
}

// NewRegistryFromConfig creates a registry with the enabled providers from cfg.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client by name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = registered{client: client}
	r.logger.Info("registered LLM client", "name", name)
}

// UnregisterLLM removes an LLM client by name.
func (r *Registry) UnregisterLLM(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.llmClients, name)
	r.logger.Info("unregistered LLM client", "name", name)
}

// GetLLM returns an LLM client by name.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.llmClients[name]
	if !ok {
		return nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return entry.client, nil
}

// HasLLM checks if an LLM client is registered.
func (r *Registry) HasLLM(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.llmClients[name]
	return ok
}

// ListLLM returns all registered LLM client names, sorted.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llmClients))
	for name := range r.llmClients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reload reconciles the registry with cfg. Providers no longer configured
// are removed and providers with changed settings are rebuilt.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)
	for name, provCfg := range cfg.LLMProviders {
		if !provCfg.Enabled || provCfg.APIKey == "" {
			continue
		}
		want[name] = true

		existing, hasExisting := r.llmClients[name]
		if hasExisting && existing.cfg == provCfg {
			continue
		}
		client, err := createLLMClient(provCfg)
		if err != nil {
			r.logger.Warn("failed to create LLM client", "name", name, "type", provCfg.Type, "error", err)
			continue
		}
		r.llmClients[name] = registered{client: client, cfg: provCfg}
		if hasExisting {
			r.logger.Info("updated LLM client", "name", name, "type", provCfg.Type)
		} else {
			r.logger.Info("registered LLM client", "name", name, "type", provCfg.Type)
		}
	}

	for name, entry := range r.llmClients {
		// Hand-registered clients (tests, mock) are left alone.
		if entry.cfg.Type == "" {
			continue
		}
		if !want[name] {
			delete(r.llmClients, name)
			r.logger.Info("unregistered LLM client", "name", name)
		}
	}
}

// createLLMClient creates an LLM client based on provider type, wrapped in
// a rate limiter when one is configured.
func createLLMClient(cfg LLMProviderConfig) (LLMClient, error) {
	timeout := secondsToDuration(cfg.Timeout)
	var client LLMClient
	switch cfg.Type {
	case OpenRouterName:
		client = NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      timeout,
			MaxRetries:   cfg.MaxRetries,
		})
	case OpenAIName:
		client = NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      timeout,
			MaxRetries:   cfg.MaxRetries - 1,
		})
	case GeminiName:
		gc, err := NewGeminiClient(context.Background(), GeminiConfig{
			APIKey:       cfg.APIKey,
			DefaultModel: cfg.Model,
		})
		if err != nil {
			return nil, err
		}
		client = gc
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
	if cfg.RateLimit > 0 {
		client = WithRateLimit(client, NewRateLimiter(cfg.RateLimit))
	}
	return client, nil
}

// ModelOf returns the default model of a client when it exposes one.
func ModelOf(client LLMClient) string {
	if lc, ok := client.(*LimitedClient); ok {
		client = lc.LLMClient
	}
	if m, ok := client.(interface{ Model() string }); ok {
		return m.Model()
	}
	if mc, ok := client.(*MockClient); ok {
		return mc.Model
	}
	return ""
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
