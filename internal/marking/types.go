// Package marking grades student working against a mark scheme, analyses
// working without one, and manages generated mark schemes.
package marking

import (
	"slices"

	"github.com/denimozh/mathstutor-sub000/internal/corpus"
)

// Status is the grade of one step of student work.
type Status string

const (
	StatusCorrect   Status = "correct"
	StatusPartial   Status = "partially_correct"
	StatusIncorrect Status = "incorrect"
	StatusMissing   Status = "missing"
)

var statuses = []Status{StatusCorrect, StatusPartial, StatusIncorrect, StatusMissing}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool { return slices.Contains(statuses, s) }

// ErrorType classifies what went wrong in a step.
type ErrorType string

const (
	ErrorConceptual  ErrorType = "conceptual"
	ErrorProcedural  ErrorType = "procedural"
	ErrorArithmetic  ErrorType = "arithmetic"
	ErrorAlgebraic   ErrorType = "algebraic"
	ErrorNotation    ErrorType = "notation"
	ErrorIncomplete  ErrorType = "incomplete"
	ErrorMisreadData ErrorType = "misread"
)

var errorTypes = []ErrorType{
	ErrorConceptual, ErrorProcedural, ErrorArithmetic, ErrorAlgebraic,
	ErrorNotation, ErrorIncomplete, ErrorMisreadData,
}

// Valid reports whether e is empty or a known error type.
func (e ErrorType) Valid() bool { return e == "" || slices.Contains(errorTypes, e) }

// StepFeedback grades one line of student working.
type StepFeedback struct {
	StepNumber            int       `json:"step_number"`
	StudentWork           string    `json:"student_work"`
	MarkSchemeRequirement string    `json:"mark_scheme_requirement"`
	Status                Status    `json:"status"`
	MarksAwarded          int       `json:"marks_awarded"`
	MarksAvailable        int       `json:"marks_available"`
	Feedback              string    `json:"feedback"`
	ErrorType             ErrorType `json:"error_type,omitempty"`
}

// Continuation is a correct solution picking up from the first error.
type Continuation struct {
	FromStep    int           `json:"from_step"`
	Explanation string        `json:"explanation"`
	Steps       []corpus.Step `json:"steps"`
}

// Result is a validated marking of student work.
type Result struct {
	MarksAwarded          int            `json:"marks_awarded"`
	MarksAvailable        int            `json:"marks_available"`
	OverallFeedback       string         `json:"overall_feedback"`
	StepFeedback          []StepFeedback `json:"step_feedback"`
	FirstErrorAtStep      *int           `json:"first_error_at_step,omitempty"`
	CorrectedContinuation *Continuation  `json:"corrected_continuation,omitempty"`
	ExamTechniqueAdvice   string         `json:"exam_technique_advice"`

	// MarkSchemeSource is "stored", "generated", "fallback" or "provided".
	MarkSchemeSource string   `json:"mark_scheme_source,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

// StepCheck is one step of a work analysis.
type StepCheck struct {
	StepNumber  int       `json:"step_number"`
	StudentWork string    `json:"student_work"`
	Status      Status    `json:"status"`
	Feedback    string    `json:"feedback"`
	ErrorType   ErrorType `json:"error_type,omitempty"`
}

// Analysis is a step-by-step check of student working without marks.
type Analysis struct {
	Steps                 []StepCheck   `json:"steps"`
	FirstErrorAtStep      *int          `json:"first_error_at_step,omitempty"`
	CorrectedContinuation *Continuation `json:"corrected_continuation,omitempty"`
	Summary               string        `json:"summary"`
	Strengths             []string      `json:"strengths,omitempty"`
	Improvements          []string      `json:"improvements,omitempty"`
}

// IsFullMarks reports whether every available mark was awarded.
func (r *Result) IsFullMarks() bool {
	return r.MarksAvailable > 0 && r.MarksAwarded == r.MarksAvailable
}
