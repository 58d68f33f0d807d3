package marking

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/denimozh/mathstutor-sub000/internal/llm"
)

// JSONSchema restricts Status to its enum in reflected schemas.
func (Status) JSONSchema() *jsonschema.Schema {
	enum := make([]any, len(statuses))
	for i, s := range statuses {
		enum[i] = string(s)
	}
	return &jsonschema.Schema{Type: "string", Enum: enum}
}

// JSONSchema restricts ErrorType to its enum in reflected schemas.
func (ErrorType) JSONSchema() *jsonschema.Schema {
	enum := make([]any, len(errorTypes))
	for i, e := range errorTypes {
		enum[i] = string(e)
	}
	return &jsonschema.Schema{Type: "string", Enum: enum}
}

// markingReply is the model's marking output.
type markingReply struct {
	MarksAwarded          int            `json:"marks_awarded" jsonschema:"minimum=0"`
	MarksAvailable        int            `json:"marks_available" jsonschema:"minimum=0"`
	OverallFeedback       string         `json:"overall_feedback"`
	StepFeedback          []StepFeedback `json:"step_feedback" jsonschema:"minItems=1"`
	FirstErrorAtStep      *int           `json:"first_error_at_step,omitempty"`
	CorrectedContinuation *Continuation  `json:"corrected_continuation,omitempty"`
	ExamTechniqueAdvice   string         `json:"exam_technique_advice"`
}

// analysisReply is the model's work analysis output.
type analysisReply struct {
	Steps                 []StepCheck   `json:"steps" jsonschema:"minItems=1"`
	FirstErrorAtStep      *int          `json:"first_error_at_step,omitempty"`
	CorrectedContinuation *Continuation `json:"corrected_continuation,omitempty"`
	Summary               string        `json:"summary"`
	Strengths             []string      `json:"strengths,omitempty"`
	Improvements          []string      `json:"improvements,omitempty"`
}

// GeneratedScheme is a model-written mark scheme.
type GeneratedScheme struct {
	TotalMarks int           `json:"total_marks" jsonschema:"minimum=1"`
	Points     []SchemePoint `json:"points" jsonschema:"minItems=1"`
}

// SchemePoint is one creditable step. MarkType follows exam board
// convention: M method, A accuracy, B independent.
type SchemePoint struct {
	Step        int    `json:"step" jsonschema:"minimum=1"`
	MarkType    string `json:"mark_type" jsonschema:"enum=M,enum=A,enum=B"`
	Marks       int    `json:"marks" jsonschema:"minimum=1"`
	Requirement string `json:"requirement" jsonschema:"description=What the student must write to earn the mark"`
}

var (
	MarkingSchema    = reflectSchema("step-marking", "Step-aligned marking of student work against a mark scheme", &markingReply{})
	AnalysisSchema   = reflectSchema("work-analysis", "Step-by-step analysis of student working", &analysisReply{})
	MarkSchemeSchema = reflectSchema("mark-scheme", "An exam-style mark scheme for one question", &GeneratedScheme{})
)

// reflectSchema derives an llm.Schema from a Go type.
func reflectSchema(name, description string, v any) *llm.Schema {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	data, err := json.Marshal(r.Reflect(v))
	if err != nil {
		panic(fmt.Sprintf("marking: reflect %s schema: %v", name, err))
	}
	var def map[string]any
	if err := json.Unmarshal(data, &def); err != nil {
		panic(fmt.Sprintf("marking: decode %s schema: %v", name, err))
	}
	delete(def, "$schema")
	delete(def, "$id")
	return &llm.Schema{Name: name, Description: description, Definition: def}
}
