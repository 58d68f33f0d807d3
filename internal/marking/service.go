package marking

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/denimozh/mathstutor-sub000/internal/llm"
	"github.com/denimozh/mathstutor-sub000/internal/logger"
	"github.com/denimozh/mathstutor-sub000/internal/solver"
)

const tracerName = "github.com/denimozh/mathstutor-sub000/internal/marking"

// MarkRequest is one piece of student work to mark. When MarkScheme is
// empty the scheme is looked up or generated for QuestionID.
type MarkRequest struct {
	QuestionID   string
	StudentWork  string
	MarkScheme   string
	QuestionText string
	Topic        string
}

// AnalyzeRequest is student work to check without a mark scheme.
// Reference is an optional model solution to compare against.
type AnalyzeRequest struct {
	QuestionID   string
	StudentWork  string
	QuestionText string
	Topic        string
	Reference    string
}

// Service marks and analyses student work. Marking output is trusted after
// structural validation; there is no numeric verification loop.
type Service struct {
	provider  llm.Provider
	schemes   *MarkSchemes
	log       *logger.Logger
	maxTokens int
	tracer    trace.Tracer
}

// NewService creates a marking service. schemes may be nil, in which case
// requests without a mark scheme use GenericMarkScheme.
func NewService(provider llm.Provider, schemes *MarkSchemes, log *logger.Logger) *Service {
	return &Service{
		provider:  provider,
		schemes:   schemes,
		log:       logger.OrNop(log),
		maxTokens: 4096,
		tracer:    otel.Tracer(tracerName),
	}
}

// Mark grades req.StudentWork step by step.
func (s *Service) Mark(ctx context.Context, req MarkRequest) (*Result, error) {
	if strings.TrimSpace(req.StudentWork) == "" {
		return nil, ErrEmptyWork
	}

	ctx, span := s.tracer.Start(ctx, "marking.Mark")
	defer span.End()
	ctx = llm.WithQuestionID(ctx, req.QuestionID)

	source := SourceProvided
	if strings.TrimSpace(req.MarkScheme) == "" {
		ms, err := s.markScheme(ctx, req)
		if err != nil {
			span.RecordError(err)
			return nil, &solver.UpstreamError{Op: "get mark scheme", Err: err}
		}
		req.MarkScheme, source = ms.Content, ms.Source
	}
	span.SetAttributes(attribute.String("marking.scheme_source", source))

	raw, err := s.generate(llm.WithPurpose(ctx, llm.PurposeMarking), markingSystemPrompt, buildMarkingMessage(req), MarkingSchema)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate marking")
		return nil, &solver.UpstreamError{Op: "mark student work", Err: err}
	}

	res, err := ParseMarking(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validate marking")
		s.log.Warn("marking rejected", "question_id", req.QuestionID, "error", err)
		return nil, err
	}
	res.MarkSchemeSource = source
	if source == SourceFallback {
		res.Warnings = append(res.Warnings, "marked against a generic mark scheme")
	}

	span.SetAttributes(
		attribute.Int("marking.awarded", res.MarksAwarded),
		attribute.Int("marking.available", res.MarksAvailable),
	)
	return res, nil
}

// Analyze checks req.StudentWork without awarding marks.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	if strings.TrimSpace(req.StudentWork) == "" {
		return nil, ErrEmptyWork
	}

	ctx, span := s.tracer.Start(ctx, "marking.Analyze")
	defer span.End()
	ctx = llm.WithQuestionID(ctx, req.QuestionID)

	raw, err := s.generate(llm.WithPurpose(ctx, llm.PurposeWorkAnalysis), analysisSystemPrompt, buildAnalysisMessage(req), AnalysisSchema)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate analysis")
		return nil, &solver.UpstreamError{Op: "analyse student work", Err: err}
	}

	a, err := ParseAnalysis(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validate analysis")
		return nil, err
	}
	return a, nil
}

func (s *Service) markScheme(ctx context.Context, req MarkRequest) (MarkScheme, error) {
	if s.schemes == nil {
		return MarkScheme{QuestionID: req.QuestionID, Content: GenericMarkScheme, Source: SourceFallback}, nil
	}
	return s.schemes.GetOrGenerate(ctx, req.QuestionID, req.QuestionText, req.Topic)
}

func (s *Service) generate(ctx context.Context, system, user string, schema *llm.Schema) (string, error) {
	if s.provider == nil {
		return "", solver.ErrNoProvider
	}
	resp, err := s.provider.Generate(ctx, llm.Request{
		System:               system,
		Messages:             llm.UserMessage(user),
		Schema:               schema,
		SkipSchemaValidation: true,
		MaxTokens:            s.maxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
