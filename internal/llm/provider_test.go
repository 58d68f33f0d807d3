package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/denimozh/mathstutor-sub000/internal/store"
)

func TestMockProvider_ReplaysInOrder(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"final_answer":{"x":2}}`), Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockText("not json at all"),
	)

	first, err := mock.Generate(context.Background(), Request{Messages: UserMessage("solve 2x = 4")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Usage.InputTokens != 10 || first.StopReason != "end" {
		t.Fatalf("unexpected first response: %+v", first)
	}

	second, err := mock.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Text() != "not json at all" {
		t.Fatalf("expected raw text, got %q", second.Text())
	}
	if mock.LastCall().Messages != nil {
		t.Fatal("expected last call to be the empty request")
	}
}

func TestMockProvider_EmptyQueue(t *testing.T) {
	_, err := NewMockProvider().Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got %T", err)
	}
	if !IsTransient(err) {
		t.Fatal("unavailable should be transient")
	}
}

func TestMockProvider_SchemaValidation(t *testing.T) {
	schema := &Schema{
		Name: "mock-answer",
		Definition: map[string]any{
			"type":       "object",
			"properties": map[string]any{"answer": map[string]any{"type": "number"}},
			"required":   []any{"answer"},
		},
	}

	mock := NewMockProvider(MockText(`{"wrong":1}`), MockText(`{"wrong":1}`))

	_, err := mock.Generate(context.Background(), Request{Schema: schema})
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}

	if _, err := mock.Generate(context.Background(), Request{Schema: schema, SkipSchemaValidation: true}); err != nil {
		t.Fatalf("validation should be skipped: %v", err)
	}
}

func TestContextLabels(t *testing.T) {
	ctx := context.Background()
	if PurposeFrom(ctx) != "unknown" {
		t.Fatal("expected default purpose")
	}
	ctx = WithPurpose(ctx, PurposeMarking)
	ctx = WithQuestionID(ctx, "q-1")
	if PurposeFrom(ctx) != PurposeMarking || QuestionIDFrom(ctx) != "q-1" {
		t.Fatalf("labels lost: %q %q", PurposeFrom(ctx), QuestionIDFrom(ctx))
	}
	if WithQuestionID(ctx, "") != ctx {
		t.Fatal("empty question id should not wrap the context")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"anthropic without key", Config{Provider: ProviderAnthropic}, true},
		{"anthropic with key", Config{Provider: ProviderAnthropic, Anthropic: AnthropicConfig{APIKey: "sk"}}, false},
		{"openrouter without key", Config{Provider: ProviderOpenRouter}, true},
		{"ollama with url", Config{Provider: ProviderOllama, Ollama: OllamaConfig{BaseURL: "http://localhost:11434/v1"}}, false},
		{"ollama without url", Config{Provider: ProviderOllama}, true},
		{"mock", Config{Provider: ProviderMock}, false},
		{"unknown", Config{Provider: "llama.cpp"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("MATHSTUTOR_LLM_PROVIDER", "gemini")
	t.Setenv("MATHSTUTOR_GEMINI_API_KEY", "g-key")
	t.Setenv("MATHSTUTOR_LLM_TIMEOUT", "15s")

	cfg := ConfigFromEnv()
	if cfg.Provider != "gemini" || cfg.Gemini.APIKey != "g-key" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Timeout != 15*time.Second {
		t.Fatalf("timeout = %s", cfg.Timeout)
	}
}

func TestDiscoverConfig(t *testing.T) {
	for _, k := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}
	if _, ok := DiscoverConfig(); ok {
		t.Fatal("expected no config without keys")
	}

	t.Setenv("OPENAI_API_KEY", "sk-openai")
	cfg, ok := DiscoverConfig()
	if !ok || cfg.Provider != ProviderOpenAI || cfg.OpenAI.APIKey != "sk-openai" {
		t.Fatalf("unexpected discovery: %+v %v", cfg, ok)
	}
}

func TestNewProvider_Mock(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: ProviderMock}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "mock" {
		t.Fatalf("model = %q", p.ModelID())
	}
}

func TestLookupCost(t *testing.T) {
	c := LookupCost("gpt-4o-mini")
	if c == nil {
		t.Fatal("expected pricing for gpt-4o-mini")
	}
	if got := c.Cost(1_000_000, 1_000_000); math.Abs(got-0.75) > 1e-9 {
		t.Fatalf("cost = %v, want 0.75", got)
	}
	if LookupCost("anthropic/claude-sonnet-4") == nil {
		t.Fatal("expected vendor-prefixed lookup to resolve")
	}
	if LookupCost("some-local-model") != nil {
		t.Fatal("expected unknown model")
	}
}

type recordingEventRepo struct {
	store.EventRepo
	events []store.LLMRequestEventData
	err    error
}

func (r *recordingEventRepo) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	r.events = append(r.events, data)
	return r.err
}

func TestLoggingProvider_RecordsEvents(t *testing.T) {
	repo := &recordingEventRepo{}
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"ok":true}`), Usage: Usage{InputTokens: 7, OutputTokens: 3}},
		MockResponse{Err: errors.New("boom")},
	)
	p := WithLogging(mock, "mock", repo, nil)

	ctx := WithQuestionID(WithPurpose(context.Background(), PurposeSolution), "q-7")
	if _, err := p.Generate(ctx, Request{System: "sys", Messages: UserMessage("hi")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Generate(ctx, Request{}); err == nil {
		t.Fatal("expected error to pass through")
	}

	if len(repo.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(repo.events))
	}
	ok := repo.events[0]
	if !ok.Success || ok.Purpose != PurposeSolution || ok.QuestionID != "q-7" || ok.InputTokens != 7 {
		t.Fatalf("unexpected event: %+v", ok)
	}
	if ok.RequestBody == "" || ok.ResponseBody != `{"ok":true}` {
		t.Fatalf("bodies not captured: %+v", ok)
	}
	if repo.events[1].Success || repo.events[1].ErrorMessage != "boom" {
		t.Fatalf("unexpected failure event: %+v", repo.events[1])
	}
}

func TestLoggingProvider_RepoFailureDoesNotFailCall(t *testing.T) {
	repo := &recordingEventRepo{err: errors.New("disk full")}
	p := WithLogging(NewMockProvider(MockText(`{}`)), "mock", repo, nil)
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

type slowProvider struct{}

func (slowProvider) Generate(ctx context.Context, _ Request) (*Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowProvider) ModelID() string { return "slow" }

func TestWithTimeout(t *testing.T) {
	p := WithTimeout(slowProvider{}, 5*time.Millisecond)
	_, err := p.Generate(context.Background(), Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if WithTimeout(slowProvider{}, 0).ModelID() != "slow" {
		t.Fatal("zero timeout should return the provider unchanged")
	}
}
