package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// Provider generates a model completion for a prompt. Every backend (hosted
// APIs, local OpenAI-compatible servers, the test mock) implements it.
type Provider interface {
	// Generate sends req to the model. When req.Schema is set the provider
	// asks for JSON through its native structured-output mechanism and,
	// unless req.SkipSchemaValidation is true, validates the reply against
	// the schema before returning it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes a single model call.
type Request struct {
	// System is the system prompt.
	System string

	// Messages is the conversation. Solving and marking send one user turn.
	Messages []Message

	// Schema is the JSON Schema the reply should conform to.
	Schema *Schema

	// SkipSchemaValidation leaves the reply unvalidated so the caller can
	// run its own parsing and typed error reporting. Providers still pass
	// Schema to the backend as a generation hint.
	SkipSchemaValidation bool

	// MaxTokens caps the reply length. Zero means the provider default.
	MaxTokens int

	// Temperature in [0, 1]. Zero is deterministic.
	Temperature float64
}

// Message is one conversation turn.
type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// UserMessage is shorthand for a single-turn conversation.
func UserMessage(content string) []Message {
	return []Message{{Role: RoleUser, Content: content}}
}

// Schema names a JSON Schema for structured output.
type Schema struct {
	// Name is used as the schema name for OpenAI and the cache key for
	// compiled validators, e.g. "single-part-solution".
	Name string

	Description string

	// Definition is the JSON Schema document.
	Definition map[string]any
}

// Response holds the model output.
type Response struct {
	// Content is the raw reply. It is JSON when a schema was requested and
	// the backend honoured it, but callers that set SkipSchemaValidation
	// must be prepared for arbitrary text.
	Content json.RawMessage

	Usage Usage

	// Model is the model that actually served the request.
	Model string

	// StopReason is normalised to "end", "max_tokens" or "error".
	StopReason string
}

// Text returns the reply as a trimmed string.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(string(r.Content))
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// checkResponse runs schema validation unless the request opted out.
func checkResponse(req Request, content json.RawMessage) error {
	if req.Schema == nil || req.SkipSchemaValidation {
		return nil
	}
	return validateResponse(req.Schema, content)
}
