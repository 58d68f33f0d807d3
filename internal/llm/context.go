package llm

import "context"

type contextKey string

const (
	purposeKey    contextKey = "llm_purpose"
	questionIDKey contextKey = "llm_question_id"
)

// Purposes recorded on request events.
const (
	PurposeSolution       = "solution"
	PurposeSolutionRepair = "solution-repair"
	PurposeMarking        = "marking"
	PurposeWorkAnalysis   = "work-analysis"
	PurposeMarkScheme     = "mark-scheme"
)

// WithPurpose labels the context so request events can be grouped.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom returns the purpose label, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// WithQuestionID ties a model call to a stored question.
func WithQuestionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, questionIDKey, id)
}

// QuestionIDFrom returns the question ID, or "".
func QuestionIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(questionIDKey).(string)
	return v
}
