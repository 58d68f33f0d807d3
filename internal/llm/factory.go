package llm

import (
	"context"
	"fmt"

	"github.com/denimozh/mathstutor-sub000/internal/logger"
	"github.com/denimozh/mathstutor-sub000/internal/store"
)

// NewProvider builds the configured backend wrapped as
// caller → timeout → retry → logging → backend.
// eventRepo may be nil.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo, log *logger.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderOpenRouter:
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderOllama:
		base, err = NewOllamaProvider(cfg.Ollama)
	case ProviderMock:
		base = NewMockProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	logged := WithLogging(base, cfg.Provider, eventRepo, log)
	retried := WithRetry(logged, cfg.Retry)
	return WithTimeout(retried, cfg.Timeout), nil
}
