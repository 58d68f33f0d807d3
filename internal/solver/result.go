package solver

import (
	"github.com/denimozh/mathstutor-sub000/internal/classify"
	"github.com/denimozh/mathstutor-sub000/internal/corpus"
)

// Confidence bounds.
const (
	DefaultConfidence = 0.85
	ReviewConfidence  = 0.6
)

// Result is a validated solution.
type Result struct {
	Kind classify.Kind `json:"kind"`

	// Single-part.
	Steps []corpus.Step `json:"steps,omitempty"`

	// Multi-part, keyed by lower-case part label.
	PartSteps   map[string][]corpus.Step `json:"part_steps,omitempty"`
	PartAnswers map[string]any           `json:"part_answers,omitempty"`

	FinalAnswer  any           `json:"final_answer"`
	Verification *Verification `json:"verification,omitempty"`

	Confidence   float64  `json:"confidence"`
	WasCorrected bool     `json:"was_corrected"`
	NeedsReview  bool     `json:"needs_review"`
	Warnings     []string `json:"warnings,omitempty"`

	Meta *Meta `json:"meta,omitempty"`
}

// Verification is the model's self-check of its own answer. Passes is nil
// when the model did not say.
type Verification struct {
	Method          string  `json:"method,omitempty"`
	Working         string  `json:"working,omitempty"`
	Result          string  `json:"result,omitempty"`
	ErrorPercentage float64 `json:"error_percentage,omitempty"`
	Passes          *bool   `json:"passes,omitempty"`
	Interpretation  string  `json:"interpretation,omitempty"`
}

// Failed reports whether the verification explicitly did not pass.
func (v *Verification) Failed() bool {
	return v != nil && v.Passes != nil && !*v.Passes
}

// Passed reports whether the verification explicitly passed.
func (v *Verification) Passed() bool {
	return v != nil && v.Passes != nil && *v.Passes
}

// Meta records how a result was produced.
type Meta struct {
	Model      string   `json:"model,omitempty"`
	ExampleIDs []string `json:"example_ids,omitempty"`
	Repaired   bool     `json:"repaired"`
}

// HasWarnings is true when the caller should show a caution alongside the
// solution.
func (r *Result) HasWarnings() bool {
	return r.NeedsReview || len(r.Warnings) > 0
}

func (r *Result) capConfidence(limit float64) {
	if r.Confidence > limit {
		r.Confidence = limit
	}
}
