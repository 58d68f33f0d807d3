package llm

import (
	"fmt"
	"os"
	"time"
)

// Provider names accepted by Config.Provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
	ProviderMock       = "mock"
)

// Config holds model provider configuration.
type Config struct {
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Ollama     OllamaConfig
	Retry      RetryConfig

	// Timeout bounds a single Generate call including retries.
	Timeout time.Duration

	// MaxTokens is the default reply cap for pipeline calls.
	MaxTokens int
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string // optional, for OpenAI-compatible gateways
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OllamaConfig targets a local OpenAI-compatible server (Ollama, LM Studio).
type OllamaConfig struct {
	BaseURL string
	Model   string
}

type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

func DefaultConfig() Config {
	return Config{
		Provider:   ProviderAnthropic,
		Anthropic:  AnthropicConfig{Model: "claude-sonnet"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o"},
		Gemini:     GeminiConfig{Model: "gemini-pro"},
		OpenRouter: OpenRouterConfig{Model: "anthropic/claude-sonnet-4"},
		Ollama:     OllamaConfig{BaseURL: "http://localhost:11434/v1", Model: "qwen2.5-math"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout:   90 * time.Second,
		MaxTokens: 4096,
	}
}

// ConfigFromEnv reads MATHSTUTOR_* variables over the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	setString(&cfg.Provider, "MATHSTUTOR_LLM_PROVIDER")

	setString(&cfg.Anthropic.APIKey, "MATHSTUTOR_ANTHROPIC_API_KEY")
	setString(&cfg.Anthropic.Model, "MATHSTUTOR_ANTHROPIC_MODEL")

	setString(&cfg.OpenAI.APIKey, "MATHSTUTOR_OPENAI_API_KEY")
	setString(&cfg.OpenAI.Model, "MATHSTUTOR_OPENAI_MODEL")
	setString(&cfg.OpenAI.BaseURL, "MATHSTUTOR_OPENAI_BASE_URL")

	setString(&cfg.Gemini.APIKey, "MATHSTUTOR_GEMINI_API_KEY")
	setString(&cfg.Gemini.Model, "MATHSTUTOR_GEMINI_MODEL")

	setString(&cfg.OpenRouter.APIKey, "MATHSTUTOR_OPENROUTER_API_KEY")
	setString(&cfg.OpenRouter.Model, "MATHSTUTOR_OPENROUTER_MODEL")

	setString(&cfg.Ollama.BaseURL, "MATHSTUTOR_OLLAMA_URL")
	setString(&cfg.Ollama.Model, "MATHSTUTOR_OLLAMA_MODEL")

	if v := os.Getenv("MATHSTUTOR_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	return cfg
}

// DiscoverConfig falls back to the vendors' standard key variables
// (Anthropic, OpenAI, Gemini, OpenRouter in that order).
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()
	switch {
	case os.Getenv("ANTHROPIC_API_KEY") != "":
		cfg.Provider, cfg.Anthropic.APIKey = ProviderAnthropic, os.Getenv("ANTHROPIC_API_KEY")
	case os.Getenv("OPENAI_API_KEY") != "":
		cfg.Provider, cfg.OpenAI.APIKey = ProviderOpenAI, os.Getenv("OPENAI_API_KEY")
	case os.Getenv("GEMINI_API_KEY") != "":
		cfg.Provider, cfg.Gemini.APIKey = ProviderGemini, os.Getenv("GEMINI_API_KEY")
	case os.Getenv("OPENROUTER_API_KEY") != "":
		cfg.Provider, cfg.OpenRouter.APIKey = ProviderOpenRouter, os.Getenv("OPENROUTER_API_KEY")
	default:
		return Config{}, false
	}
	return cfg, true
}

// Validate checks that the selected provider has what it needs.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("MATHSTUTOR_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("MATHSTUTOR_OPENAI_API_KEY is required for the openai provider")
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("MATHSTUTOR_GEMINI_API_KEY is required for the gemini provider")
		}
	case ProviderOpenRouter:
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("MATHSTUTOR_OPENROUTER_API_KEY is required for the openrouter provider")
		}
	case ProviderOllama:
		if c.Ollama.BaseURL == "" {
			return fmt.Errorf("MATHSTUTOR_OLLAMA_URL is required for the ollama provider")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}

// HasCredentials reports whether the selected provider could be built
// without further configuration.
func (c Config) HasCredentials() bool {
	return c.Validate() == nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
