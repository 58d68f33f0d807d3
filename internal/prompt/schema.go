package prompt

import (
	"github.com/denimozh/mathstutor-sub000/internal/classify"
	"github.com/denimozh/mathstutor-sub000/internal/llm"
)

// StepSchema is one numbered solution step.
var StepSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"step_number": map[string]any{
			"type":        "integer",
			"minimum":     1,
			"description": "1-based step number; restarts at 1 in every part",
		},
		"title": map[string]any{
			"type":        "string",
			"description": "Short name for the step, e.g. \"Differentiate\"",
		},
		"explanation": map[string]any{
			"type":        "string",
			"description": "Why this step is taken",
		},
		"working": map[string]any{
			"type":        "string",
			"description": "The algebra or arithmetic for the step, plain text",
		},
		"formula": map[string]any{
			"type":        "string",
			"description": "The expression or value the step produces",
		},
		"exam_tip": map[string]any{
			"type":        "string",
			"description": "Optional advice about how marks are earned at this step",
		},
	},
	"required": []any{"step_number", "title", "working"},
}

var stepsArray = map[string]any{
	"type":     "array",
	"minItems": 1,
	"items":    StepSchema,
}

var answerValue = map[string]any{
	"description": "The answer as a JSON object keyed by quantity, e.g. {\"x\": 2, \"y\": -3}",
}

var verificationSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"method": map[string]any{
			"type":        "string",
			"description": "How the answer was checked, e.g. substitution back into dy/dx",
		},
		"working":          map[string]any{"type": "string"},
		"result":           map[string]any{"type": "string"},
		"error_percentage": map[string]any{"type": "number", "minimum": 0},
		"passes": map[string]any{
			"type":        "boolean",
			"description": "False when the check disagrees with the answer",
		},
		"interpretation": map[string]any{"type": "string"},
	},
	"required": []any{"method", "passes"},
}

var confidenceSchema = map[string]any{
	"type":        "number",
	"minimum":     0,
	"maximum":     1,
	"description": "Self-assessed confidence that the final answer is correct",
}

// SinglePartSchema is the response contract for a question without
// labelled parts.
var SinglePartSchema = &llm.Schema{
	Name:        "single-part-solution",
	Description: "A step-by-step A-Level maths solution",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"steps":        stepsArray,
			"final_answer": answerValue,
			"verification": verificationSchema,
			"confidence":   confidenceSchema,
		},
		"required": []any{"steps", "final_answer"},
	},
}

// MultiPartSchema is the response contract for a question with parts
// (a), (b), ...
var MultiPartSchema = &llm.Schema{
	Name:        "multi-part-solution",
	Description: "A step-by-step A-Level maths solution for a question with labelled parts",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"part_steps": map[string]any{
				"type":                 "object",
				"description":          "Steps for each part keyed by part label (\"a\", \"b\", ...)",
				"additionalProperties": stepsArray,
				"minProperties":        1,
			},
			"part_answers": map[string]any{
				"type":                 "object",
				"description":          "Answer for each part keyed by part label",
				"additionalProperties": answerValue,
			},
			"final_answer": map[string]any{
				"description": "Summary of all part answers",
			},
			"verification": verificationSchema,
			"confidence":   confidenceSchema,
		},
		"required": []any{"part_steps", "part_answers", "final_answer"},
	},
}

// SchemaFor returns the response schema for a question kind.
func SchemaFor(kind classify.Kind) *llm.Schema {
	if kind == classify.KindMultiPart {
		return MultiPartSchema
	}
	return SinglePartSchema
}
