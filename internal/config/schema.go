package config

import "time"

// Config holds folio configuration.
// Read from config.yaml in ., ~/.folio, or --config.
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Generation   GenerationCfg             `mapstructure:"generation" yaml:"generation"`
	Storage      StorageCfg                `mapstructure:"storage" yaml:"storage"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server"`
	LogLevel     string                    `mapstructure:"log_level" yaml:"log_level"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type       string  `mapstructure:"type" yaml:"type"`                   // "openrouter", "openai", "gemini"
	Model      string  `mapstructure:"model" yaml:"model"`                 // Model name
	APIKey     string  `mapstructure:"api_key" yaml:"api_key"`             // API key (supports ${ENV_VAR} syntax)
	BaseURL    string  `mapstructure:"base_url" yaml:"base_url,omitempty"` // Optional endpoint override
	RateLimit  int     `mapstructure:"rate_limit" yaml:"rate_limit"`       // Requests per minute
	Timeout    float64 `mapstructure:"timeout" yaml:"timeout"`             // Seconds
	MaxRetries int     `mapstructure:"max_retries" yaml:"max_retries"`     // Total attempts; 1 means no retry
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default provider selections.
type DefaultsCfg struct {
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider"`
}

// GenerationCfg tunes batches.
type GenerationCfg struct {
	// BatchTimeout is the wall-clock budget for one generation request.
	BatchTimeout   time.Duration `mapstructure:"batch_timeout" yaml:"batch_timeout"`
	Temperature    float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxConcurrency int           `mapstructure:"max_concurrency" yaml:"max_concurrency"` // 0 runs every driver at once
	Debug          bool          `mapstructure:"debug" yaml:"debug"`                     // adds _meta/_usage and persists call logs
}

// StorageCfg configures the sqlite store.
type StorageCfg struct {
	Database          string `mapstructure:"database" yaml:"database"` // empty uses ~/.folio/folio.db
	MaxProducts       int    `mapstructure:"max_products" yaml:"max_products"`
	MaxConfigurations int    `mapstructure:"max_configurations" yaml:"max_configurations"`
	MaxDebugLogs      int    `mapstructure:"max_debug_logs" yaml:"max_debug_logs"`
}

// ServerCfg configures the HTTP listener.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:       "openrouter",
				Model:      "anthropic/claude-sonnet-4",
				APIKey:     "${OPENROUTER_API_KEY}",
				Timeout:    90,
				MaxRetries: 1,
				Enabled:    true,
			},
			"openai": {
				Type:       "openai",
				Model:      "gpt-4o-mini",
				APIKey:     "${OPENAI_API_KEY}",
				Timeout:    90,
				MaxRetries: 1,
				Enabled:    false,
			},
			"gemini": {
				Type:       "gemini",
				Model:      "gemini-2.5-flash",
				APIKey:     "${GEMINI_API_KEY}",
				MaxRetries: 1,
				Enabled:    false,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider: "openrouter",
		},
		Generation: GenerationCfg{
			BatchTimeout: 120 * time.Second,
			Temperature:  0.7,
			MaxTokens:    4096,
		},
		Storage: StorageCfg{
			MaxProducts:       50,
			MaxConfigurations: 50,
			MaxDebugLogs:      100,
		},
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: "8080",
		},
		LogLevel: "info",
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
