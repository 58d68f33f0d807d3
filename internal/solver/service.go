// Package solver generates step-by-step solutions: it classifies the
// question, picks worked examples, composes the prompt, calls the model and
// validates the reply with at most one self-correction round.
package solver

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/denimozh/mathstutor-sub000/internal/corpus"
	"github.com/denimozh/mathstutor-sub000/internal/llm"
	"github.com/denimozh/mathstutor-sub000/internal/logger"
	"github.com/denimozh/mathstutor-sub000/internal/prompt"
	"github.com/denimozh/mathstutor-sub000/internal/selector"
)

const tracerName = "github.com/denimozh/mathstutor-sub000/internal/solver"

// Config controls prompt size and reply length.
type Config struct {
	ExampleCount int
	MaxTokens    int
}

// DefaultConfig returns the default solver settings.
func DefaultConfig() Config {
	return Config{ExampleCount: selector.DefaultK, MaxTokens: 4096}
}

// Request is one question to solve.
type Request struct {
	QuestionText string
	Topic        string

	// QuestionID labels model request events; optional.
	QuestionID string
}

// Service solves questions. It holds no per-request state and is safe for
// concurrent use.
type Service struct {
	provider llm.Provider
	corpus   *corpus.Corpus
	selector *selector.Selector
	cfg      Config
	log      *logger.Logger
	tracer   trace.Tracer
}

// NewService creates a solver. A nil selector uses the heuristic scorer.
func NewService(provider llm.Provider, c *corpus.Corpus, sel *selector.Selector, cfg Config, log *logger.Logger) *Service {
	if sel == nil {
		sel = selector.New(nil)
	}
	if cfg.ExampleCount <= 0 {
		cfg.ExampleCount = selector.DefaultK
	}
	return &Service{
		provider: provider,
		corpus:   c,
		selector: sel,
		cfg:      cfg,
		log:      logger.OrNop(log),
		tracer:   otel.Tracer(tracerName),
	}
}

// Compose runs the classify, select and compose stages without calling the
// model.
func (s *Service) Compose(req Request) prompt.Payload {
	q := selector.NewQuery(req.Topic, req.QuestionText)
	examples := s.selector.Select(q, s.corpus.Examples(), s.cfg.ExampleCount)
	return prompt.Compose(req.QuestionText, req.Topic, q.Shape, examples)
}

// Solve produces a validated solution for req.
func (s *Service) Solve(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.QuestionText) == "" {
		return nil, ErrEmptyQuestion
	}

	ctx, span := s.tracer.Start(ctx, "solver.Solve")
	defer span.End()

	ctx = llm.WithQuestionID(ctx, req.QuestionID)
	payload := s.Compose(req)
	span.SetAttributes(
		attribute.String("question.kind", payload.Kind.String()),
		attribute.Bool("question.geometry", payload.Shape.IsGeometry),
		attribute.StringSlice("solver.examples", payload.ExampleIDs),
	)

	raw, model, err := s.call(llm.WithPurpose(ctx, llm.PurposeSolution), payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate solution")
		return nil, &UpstreamError{Op: "generate solution", Err: err}
	}

	repaired := false
	callModel := func(ctx context.Context, p prompt.Payload) (string, error) {
		repaired = true
		out, _, err := s.call(llm.WithPurpose(ctx, llm.PurposeSolutionRepair), p)
		return out, err
	}

	res, err := ValidateAndRepair(ctx, raw, Context{
		QuestionText: req.QuestionText,
		Topic:        req.Topic,
		Payload:      payload,
	}, callModel)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validate solution")
		s.log.Warn("solution rejected", "question_id", req.QuestionID, "kind", payload.Kind.String(), "error", err)
		return nil, err
	}

	res.Meta = &Meta{Model: model, ExampleIDs: payload.ExampleIDs, Repaired: repaired}
	span.SetAttributes(
		attribute.Float64("solution.confidence", res.Confidence),
		attribute.Bool("solution.corrected", res.WasCorrected),
		attribute.Bool("solution.needs_review", res.NeedsReview),
	)
	if res.HasWarnings() {
		s.log.Info("solution needs review", "question_id", req.QuestionID, "warnings", len(res.Warnings), "corrected", res.WasCorrected)
	}
	return res, nil
}

func (s *Service) call(ctx context.Context, p prompt.Payload) (string, string, error) {
	if s.provider == nil {
		return "", "", ErrNoProvider
	}
	resp, err := s.provider.Generate(ctx, p.Request(s.cfg.MaxTokens))
	if err != nil {
		return "", "", err
	}
	return resp.Text(), resp.Model, nil
}
