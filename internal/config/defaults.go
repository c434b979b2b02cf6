package config

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoDefault is returned for keys that cannot be overridden at runtime.
	ErrNoDefault = errors.New("no default exists")
	// ErrInvalidValue is returned when a value has the wrong type for its key.
	ErrInvalidValue = errors.New("invalid config value")
)

// Runtime setting keys.
const (
	KeyTemperature    = "generation.temperature"
	KeyMaxTokens      = "generation.max_tokens"
	KeyMaxConcurrency = "generation.max_concurrency"
	KeyDebug          = "generation.debug"
	KeyLLMProvider    = "defaults.llm_provider"
	KeyModel          = "defaults.model"
)

// DefaultEntries returns the settings that can be overridden at runtime,
// with their values taken from cfg. A nil cfg uses DefaultConfig.
func DefaultEntries(cfg *Config) []Entry {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return []Entry{
		{
			Key:         KeyTemperature,
			Value:       cfg.Generation.Temperature,
			Description: "Sampling temperature for generation calls",
		},
		{
			Key:         KeyMaxTokens,
			Value:       cfg.Generation.MaxTokens,
			Description: "Maximum output tokens per generation call",
		},
		{
			Key:         KeyMaxConcurrency,
			Value:       cfg.Generation.MaxConcurrency,
			Description: "Maximum drivers in flight per batch (0 = all at once)",
		},
		{
			Key:         KeyDebug,
			Value:       cfg.Generation.Debug,
			Description: "Attach _meta/_usage to responses and persist call logs",
		},
		{
			Key:         KeyLLMProvider,
			Value:       cfg.Defaults.LLMProvider,
			Description: "Provider used for generation",
		},
		{
			Key:         KeyModel,
			Value:       "",
			Description: "Model override; empty uses the provider's configured model",
		},
	}
}

// GetDefault returns the default entry for key, or nil when the key is
// not a runtime setting.
func GetDefault(key string, cfg *Config) *Entry {
	for _, entry := range DefaultEntries(cfg) {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

// ResetToDefault drops the override for key so the file config applies.
// Returns ErrNoDefault if the key is not a runtime setting.
func ResetToDefault(ctx context.Context, s Store, key string) error {
	if GetDefault(key, nil) == nil {
		return fmt.Errorf("%w for key %q", ErrNoDefault, key)
	}
	return s.Delete(ctx, key)
}

// Runtime is the effective generation settings for one request.
type Runtime struct {
	Temperature    float64 `json:"temperature"`
	MaxTokens      int     `json:"maxTokens"`
	MaxConcurrency int     `json:"maxConcurrency"`
	Debug          bool    `json:"debug"`
	LLMProvider    string  `json:"llmProvider"`
	Model          string  `json:"model,omitempty"`
}

// Effective overlays the overrides in s onto cfg. A nil store returns the
// file values.
func Effective(ctx context.Context, s Store, cfg *Config) (Runtime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	rt := Runtime{
		Temperature:    cfg.Generation.Temperature,
		MaxTokens:      cfg.Generation.MaxTokens,
		MaxConcurrency: cfg.Generation.MaxConcurrency,
		Debug:          cfg.Generation.Debug,
		LLMProvider:    cfg.Defaults.LLMProvider,
	}
	if s == nil {
		return rt, nil
	}
	overrides, err := s.GetAll(ctx)
	if err != nil {
		return rt, err
	}
	for key, e := range overrides {
		switch key {
		case KeyTemperature:
			if f, ok := asFloat(e.Value); ok {
				rt.Temperature = f
			}
		case KeyMaxTokens:
			if f, ok := asFloat(e.Value); ok {
				rt.MaxTokens = int(f)
			}
		case KeyMaxConcurrency:
			if f, ok := asFloat(e.Value); ok {
				rt.MaxConcurrency = int(f)
			}
		case KeyDebug:
			if b, ok := e.Value.(bool); ok {
				rt.Debug = b
			}
		case KeyLLMProvider:
			if v, ok := e.Value.(string); ok && v != "" {
				rt.LLMProvider = v
			}
		case KeyModel:
			if v, ok := e.Value.(string); ok {
				rt.Model = v
			}
		}
	}
	return rt, nil
}
