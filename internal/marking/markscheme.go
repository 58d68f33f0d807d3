package marking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/denimozh/mathstutor-sub000/internal/llm"
	"github.com/denimozh/mathstutor-sub000/internal/logger"
	"github.com/denimozh/mathstutor-sub000/internal/solver"
	"github.com/denimozh/mathstutor-sub000/internal/store"
)

// Mark scheme sources.
const (
	SourceProvided  = "provided"
	SourceStored    = "stored"
	SourceGenerated = "generated"
	SourceFallback  = "fallback"
)

// GenericMarkScheme is used when no scheme can be found or generated, so
// marking can still proceed.
const GenericMarkScheme = `M1: Correct method chosen and set up for the question.
A1: Accurate working carried through with no algebraic or arithmetic errors.
A1: Correct final answer clearly stated with units or exact form where required.`

// MarkScheme is the scheme used for a marking request.
type MarkScheme struct {
	QuestionID string
	Content    string
	Source     string

	// Generated is set when the scheme came from the model in this call.
	Generated *GeneratedScheme
}

// MarkSchemes looks up stored mark schemes and generates missing ones.
type MarkSchemes struct {
	repo      store.MarkSchemeRepo
	provider  llm.Provider
	log       *logger.Logger
	maxTokens int
}

// NewMarkSchemes creates a mark scheme cache. repo and provider may be nil;
// with neither, every lookup returns the generic scheme.
func NewMarkSchemes(repo store.MarkSchemeRepo, provider llm.Provider, log *logger.Logger) *MarkSchemes {
	return &MarkSchemes{repo: repo, provider: provider, log: logger.OrNop(log), maxTokens: 2048}
}

// GetOrGenerate returns the stored scheme for questionID or, on a miss,
// generates one and stores it. A failed write is logged and the generated
// scheme is still returned. When generation fails too the generic scheme
// comes back with Source "fallback". The only error is a cancelled context.
func (m *MarkSchemes) GetOrGenerate(ctx context.Context, questionID, questionText, topic string) (MarkScheme, error) {
	if questionID != "" && m.repo != nil {
		stored, err := m.repo.Get(ctx, questionID)
		switch {
		case err == nil:
			return MarkScheme{QuestionID: questionID, Content: stored.Content, Source: SourceStored}, nil
		case errors.Is(err, store.ErrNotFound):
		default:
			m.log.Warn("mark scheme lookup failed", "question_id", questionID, "error", err)
		}
	}

	gen, err := m.generate(ctx, questionID, questionText, topic)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return MarkScheme{}, ctxErr
		}
		m.log.Warn("mark scheme generation failed, using generic scheme", "question_id", questionID, "error", err)
		return MarkScheme{QuestionID: questionID, Content: GenericMarkScheme, Source: SourceFallback}, nil
	}

	ms := MarkScheme{
		QuestionID: questionID,
		Content:    RenderScheme(gen),
		Source:     SourceGenerated,
		Generated:  gen,
	}
	if questionID != "" && m.repo != nil {
		if err := m.repo.Put(ctx, store.MarkScheme{QuestionID: questionID, Content: ms.Content, Source: SourceGenerated}); err != nil {
			m.log.Warn("mark scheme write-back failed", "question_id", questionID, "error", err)
		}
	}
	return ms, nil
}

func (m *MarkSchemes) generate(ctx context.Context, questionID, questionText, topic string) (*GeneratedScheme, error) {
	if m.provider == nil {
		return nil, errors.New("no model provider configured")
	}
	if strings.TrimSpace(questionText) == "" {
		return nil, errors.New("question text is required to generate a mark scheme")
	}

	ctx = llm.WithQuestionID(llm.WithPurpose(ctx, llm.PurposeMarkScheme), questionID)
	resp, err := m.provider.Generate(ctx, llm.Request{
		System:    markSchemeSystemPrompt,
		Messages:  llm.UserMessage(buildMarkSchemeMessage(questionText, topic)),
		Schema:    MarkSchemeSchema,
		MaxTokens: m.maxTokens,
	})
	if err != nil {
		return nil, err
	}

	var gen GeneratedScheme
	if err := solver.DecodeObject(resp.Text(), &gen); err != nil {
		return nil, err
	}
	if len(gen.Points) == 0 {
		return nil, errors.New("generated mark scheme has no points")
	}
	total := 0
	for _, p := range gen.Points {
		total += p.Marks
	}
	gen.TotalMarks = total
	return &gen, nil
}

// RenderScheme formats a generated scheme as examiner-style text.
func RenderScheme(g *GeneratedScheme) string {
	var b strings.Builder
	for _, p := range g.Points {
		fmt.Fprintf(&b, "Step %d (%s%d): %s\n", p.Step, p.MarkType, p.Marks, strings.TrimSpace(p.Requirement))
	}
	fmt.Fprintf(&b, "Total: %d marks", g.TotalMarks)
	return b.String()
}
