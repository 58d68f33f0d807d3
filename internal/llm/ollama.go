package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OllamaProvider drives a local OpenAI-compatible server through
// langchaingo. Local models have no native schema support, so JSON mode is
// requested and the schema is appended to the system prompt.
type OllamaProvider struct {
	model llms.Model
	name  string
}

func NewOllamaProvider(cfg OllamaConfig) (*OllamaProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ollama base URL is required")
	}
	m, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		// Local servers ignore the key but the client insists on one.
		openai.WithToken("ollama"),
	)
	if err != nil {
		return nil, fmt.Errorf("create langchaingo client: %w", err)
	}
	return &OllamaProvider{model: m, name: cfg.Model}, nil
}

func (p *OllamaProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	system := req.System
	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.Schema != nil {
		def, err := json.Marshal(req.Schema.Definition)
		if err != nil {
			return nil, fmt.Errorf("marshal schema: %w", err)
		}
		system += "\n\nRespond with a single JSON object matching this JSON Schema:\n" + string(def)
		opts = append(opts, llms.WithJSONMode())
	}

	msgs := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if system != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	for _, m := range req.Messages {
		role := llms.ChatMessageTypeHuman
		if m.Role == RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		msgs = append(msgs, llms.TextParts(role, m.Content))
	}

	out, err := p.model.GenerateContent(ctx, msgs, opts...)
	if err != nil {
		return nil, &ErrProviderUnavailable{Err: err}
	}
	if len(out.Choices) == 0 {
		return nil, &ErrInvalidResponse{Err: fmt.Errorf("no choices in local model response")}
	}

	choice := out.Choices[0]
	content := json.RawMessage(choice.Content)
	if choice.StopReason == "length" {
		return nil, &ErrMaxTokensExceeded{Content: content}
	}
	if err := checkResponse(req, content); err != nil {
		return nil, err
	}

	usage := Usage{
		InputTokens:  intInfo(choice.GenerationInfo, "PromptTokens"),
		OutputTokens: intInfo(choice.GenerationInfo, "CompletionTokens"),
	}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens

	return &Response{Content: content, Usage: usage, Model: p.name, StopReason: "end"}, nil
}

func (p *OllamaProvider) ModelID() string { return p.name }

func intInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
