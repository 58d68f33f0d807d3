package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const stationaryReply = `{"steps":[{"step_number":1,"title":"Differentiate","working":"dy/dx = 3x^2 - 3"}],"final_answer":{"x":[1,-1]}}`

func solutionRequest() Request {
	return Request{
		System:               "You are an A-Level maths examiner.",
		Messages:             UserMessage("Find the stationary points of y = x^3 - 3x."),
		MaxTokens:            512,
		SkipSchemaValidation: true,
	}
}

func newTestAnthropicProvider(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := anthropic.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(server.URL),
		option.WithMaxRetries(0),
	)
	return &AnthropicProvider{client: &client, model: "claude-sonnet-4-5-20250929"}
}

func anthropicMessage(text, stop string) map[string]any {
	return map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"model":       "claude-sonnet-4-5-20250929",
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 120, "output_tokens": 80},
	}
}

func TestAnthropicProvider_HappyPath(t *testing.T) {
	var gotBody map[string]any
	p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(anthropicMessage(stationaryReply, "end_turn"))
	})

	resp, err := p.Generate(context.Background(), solutionRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Usage.TotalTokens != 200 || resp.StopReason != "end" {
		t.Fatalf("unexpected response meta: %+v", resp)
	}
	if resp.Text() != stationaryReply {
		t.Fatalf("unexpected content %s", resp.Content)
	}
	if gotBody["system"] == nil {
		t.Fatal("system prompt was not sent")
	}
}

func TestAnthropicProvider_MaxTokens(t *testing.T) {
	p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(anthropicMessage(`{"steps":[`, "max_tokens"))
	})

	_, err := p.Generate(context.Background(), solutionRequest())
	var maxTok *ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Fatalf("expected ErrMaxTokensExceeded, got %v", err)
	}
}

func TestAnthropicProvider_ErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusTooManyRequests, func(err error) bool { var e *ErrRateLimit; return errors.As(err, &e) }},
		{http.StatusInternalServerError, func(err error) bool { var e *ErrProviderUnavailable; return errors.As(err, &e) }},
	}
	for _, tt := range tests {
		p := newTestAnthropicProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tt.status)
			json.NewEncoder(w).Encode(map[string]any{
				"type":  "error",
				"error": map[string]any{"type": "api_error", "message": "nope"},
			})
		})
		_, err := p.Generate(context.Background(), solutionRequest())
		if err == nil || !tt.check(err) {
			t.Fatalf("status %d: unexpected error %T (%v)", tt.status, err, err)
		}
	}
}

func openAIServer(t *testing.T, content, finish string, seen *map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-4o",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": finish,
			}},
			"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 60, "total_tokens": 100},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOpenAIProvider_SendsSchemaAndParsesReply(t *testing.T) {
	var seen map[string]any
	server := openAIServer(t, stationaryReply, "stop", &seen)

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o", BaseURL: server.URL + "/v1"})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	req := solutionRequest()
	req.Schema = &Schema{Name: "single-part-solution", Definition: map[string]any{"type": "object"}}
	resp, err := p.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Usage.TotalTokens != 100 || resp.Model != "gpt-4o" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	msgs, _ := seen["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(msgs))
	}
	format, _ := seen["response_format"].(map[string]any)
	if format["type"] != "json_schema" {
		t.Fatalf("expected json_schema response format, got %v", format)
	}
}

func TestOpenAIProvider_LengthFinish(t *testing.T) {
	server := openAIServer(t, `{"steps":[`, "length", nil)
	p, _ := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1"})

	_, err := p.Generate(context.Background(), solutionRequest())
	var maxTok *ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Fatalf("expected ErrMaxTokensExceeded, got %v", err)
	}
}

func TestOpenRouterProvider_DefaultsBaseURL(t *testing.T) {
	if _, err := NewOpenRouterProvider(OpenRouterConfig{}); err == nil {
		t.Fatal("expected error without key")
	}

	server := openAIServer(t, stationaryReply, "stop", nil)
	p, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "or-key", Model: "anthropic/claude-sonnet-4", BaseURL: server.URL + "/v1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "anthropic/claude-sonnet-4" {
		t.Fatalf("model = %q", p.ModelID())
	}
	if _, err := p.Generate(context.Background(), solutionRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOllamaProvider_JSONModeWithSchemaInPrompt(t *testing.T) {
	var seen map[string]any
	server := openAIServer(t, stationaryReply, "stop", &seen)

	p, err := NewOllamaProvider(OllamaConfig{BaseURL: server.URL + "/v1", Model: "qwen2.5-math"})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	req := solutionRequest()
	req.Schema = &Schema{Name: "single-part-solution", Definition: map[string]any{"type": "object"}}
	resp, err := p.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != stationaryReply || resp.Model != "qwen2.5-math" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	msgs, _ := seen["messages"].([]any)
	if len(msgs) == 0 {
		t.Fatal("no messages sent")
	}
	first, _ := msgs[0].(map[string]any)
	if !strings.Contains(fmtContent(first["content"]), "JSON Schema") {
		t.Fatalf("schema not appended to system prompt: %v", first["content"])
	}
}

// fmtContent flattens either a plain string or a list of content parts.
func fmtContent(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case []any:
		var b strings.Builder
		for _, part := range c {
			if m, ok := part.(map[string]any); ok {
				if s, ok := m["text"].(string); ok {
					b.WriteString(s)
				}
			}
		}
		return b.String()
	}
	return ""
}

func TestGeminiSchemaConversion(t *testing.T) {
	def := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"steps": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "object", "properties": map[string]any{"step_number": map[string]any{"type": "integer"}}},
			},
			"status":     map[string]any{"type": "string", "enum": []string{"correct", "incorrect"}},
			"confidence": map[string]any{"type": "number"},
		},
		"required": []any{"steps"},
	}

	s := geminiSchema(def)
	if s.Type != "OBJECT" || len(s.Properties) != 3 {
		t.Fatalf("unexpected root: %+v", s)
	}
	if s.Properties["steps"].Items.Properties["step_number"].Type != "INTEGER" {
		t.Fatal("nested item type lost")
	}
	if len(s.Properties["status"].Enum) != 2 || len(s.Required) != 1 {
		t.Fatal("enum or required lost")
	}
	if resolveModel("gemini-flash", geminiModels) != "gemini-2.5-flash" || resolveModel("gemini-1.5-pro", geminiModels) != "gemini-1.5-pro" {
		t.Fatal("model mapping broken")
	}
}

func TestValidateJSON(t *testing.T) {
	schema := &Schema{
		Name: "validate-marks",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"marks_awarded": map[string]any{"type": "integer", "minimum": 0},
			},
			"required": []any{"marks_awarded"},
		},
	}
	if err := ValidateJSON(schema, json.RawMessage(`{"marks_awarded":3}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, raw := range []string{`{"marks_awarded":-1}`, `{}`, `not json`} {
		var inv *ErrInvalidResponse
		if err := ValidateJSON(schema, json.RawMessage(raw)); !errors.As(err, &inv) {
			t.Fatalf("%s: expected ErrInvalidResponse, got %v", raw, err)
		}
	}
	if err := ValidateJSON(nil, json.RawMessage(`anything`)); err != nil {
		t.Fatal("nil schema should pass")
	}
}
