package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/denimozh/mathstutor-sub000/internal/logger"
	"github.com/denimozh/mathstutor-sub000/internal/store"
)

// LoggingProvider records every model call as a request event and emits a
// structured log line.
type LoggingProvider struct {
	inner     Provider
	name      string
	eventRepo store.EventRepo
	log       *logger.Logger
}

// WithLogging wraps p. repo may be nil when persistence is disabled.
func WithLogging(p Provider, providerName string, repo store.EventRepo, log *logger.Logger) Provider {
	return &LoggingProvider{inner: p, name: providerName, eventRepo: repo, log: logger.OrNop(log)}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	data := store.LLMRequestEventData{
		Provider:    l.name,
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		QuestionID:  QuestionIDFrom(ctx),
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}
	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			data.Model = resp.Model
		}
		data.ResponseBody = string(resp.Content)
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}

	fields := []any{
		"provider", data.Provider, "model", data.Model, "purpose", data.Purpose,
		"latency_ms", data.LatencyMs, "input_tokens", data.InputTokens, "output_tokens", data.OutputTokens,
	}
	if err != nil {
		l.log.Warn("model call failed", append(fields, "error", err)...)
	} else {
		l.log.Debug("model call", fields...)
	}

	if l.eventRepo != nil {
		if logErr := l.eventRepo.AppendLLMRequest(ctx, data); logErr != nil {
			l.log.Warn("failed to record model request event", "error", logErr)
		}
	}
	return resp, err
}

func (l *LoggingProvider) ModelID() string { return l.inner.ModelID() }

// serializeRequest renders a request for `mathstutor llm view`.
func serializeRequest(req Request) string {
	var b strings.Builder
	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}
	return b.String()
}
