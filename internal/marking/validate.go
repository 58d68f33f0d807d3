package marking

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/denimozh/mathstutor-sub000/internal/solver"
)

// decodeReply separates unparseable output from output of the wrong shape.
func decodeReply(raw string, v any) error {
	body := solver.StripFences(raw)
	if !json.Valid([]byte(body)) {
		return &solver.MalformedResponseError{Raw: raw, Err: errors.New("response is not valid JSON")}
	}
	if err := solver.DecodeObject(raw, v); err != nil {
		return &InvalidMarkingResponseError{Err: err}
	}
	return nil
}

// ParseMarking decodes and validates a marking reply. Marks awarded are
// re-summed from the step feedback and the first error is derived from the
// step statuses; disagreements with the model's own values become warnings.
func ParseMarking(raw string) (*Result, error) {
	var reply markingReply
	if err := decodeReply(raw, &reply); err != nil {
		return nil, err
	}

	var problems, warnings []string
	if len(reply.StepFeedback) == 0 {
		problems = append(problems, "step_feedback is empty")
	}

	prev := 0
	awarded, available := 0, 0
	for i := range reply.StepFeedback {
		sf := &reply.StepFeedback[i]
		if sf.StepNumber <= prev {
			problems = append(problems, fmt.Sprintf("step numbers must be strictly increasing: %d after %d", sf.StepNumber, prev))
		}
		prev = sf.StepNumber
		if !sf.Status.Valid() {
			problems = append(problems, fmt.Sprintf("step %d has unknown status %q", sf.StepNumber, sf.Status))
		}
		if sf.MarksAwarded < 0 || sf.MarksAvailable < 0 {
			problems = append(problems, fmt.Sprintf("step %d has negative marks", sf.StepNumber))
		}
		if sf.MarksAwarded > sf.MarksAvailable {
			problems = append(problems, fmt.Sprintf("step %d awards %d of %d marks", sf.StepNumber, sf.MarksAwarded, sf.MarksAvailable))
		}
		if !sf.ErrorType.Valid() {
			sf.ErrorType = ""
		}
		awarded += sf.MarksAwarded
		available += sf.MarksAvailable
	}

	res := &Result{
		MarksAwarded:        reply.MarksAwarded,
		MarksAvailable:      reply.MarksAvailable,
		OverallFeedback:     reply.OverallFeedback,
		StepFeedback:        reply.StepFeedback,
		ExamTechniqueAdvice: reply.ExamTechniqueAdvice,
	}
	if len(reply.StepFeedback) > 0 && res.MarksAwarded != awarded {
		warnings = append(warnings, fmt.Sprintf("marks awarded re-summed from step feedback: model reported %d, steps total %d", res.MarksAwarded, awarded))
		res.MarksAwarded = awarded
	}
	if res.MarksAvailable <= 0 {
		res.MarksAvailable = available
	}
	if res.MarksAwarded < 0 {
		problems = append(problems, "marks_awarded is negative")
	}
	if res.MarksAwarded > res.MarksAvailable {
		problems = append(problems, fmt.Sprintf("marks awarded %d exceed marks available %d", res.MarksAwarded, res.MarksAvailable))
	}

	first := firstError(len(reply.StepFeedback), func(i int) (int, Status) {
		return reply.StepFeedback[i].StepNumber, reply.StepFeedback[i].Status
	})
	cont, p, w := checkContinuation(first, reply.FirstErrorAtStep, reply.CorrectedContinuation)
	problems = append(problems, p...)
	warnings = append(warnings, w...)

	if len(problems) > 0 {
		return nil, &InvalidMarkingResponseError{Problems: problems}
	}
	res.FirstErrorAtStep = first
	res.CorrectedContinuation = cont
	res.Warnings = warnings
	return res, nil
}

// ParseAnalysis decodes and validates a work analysis reply.
func ParseAnalysis(raw string) (*Analysis, error) {
	var reply analysisReply
	if err := decodeReply(raw, &reply); err != nil {
		return nil, err
	}

	var problems []string
	if len(reply.Steps) == 0 {
		problems = append(problems, "steps is empty")
	}
	prev := 0
	for i := range reply.Steps {
		sc := &reply.Steps[i]
		if sc.StepNumber <= prev {
			problems = append(problems, fmt.Sprintf("step numbers must be strictly increasing: %d after %d", sc.StepNumber, prev))
		}
		prev = sc.StepNumber
		if !sc.Status.Valid() {
			problems = append(problems, fmt.Sprintf("step %d has unknown status %q", sc.StepNumber, sc.Status))
		}
		if !sc.ErrorType.Valid() {
			sc.ErrorType = ""
		}
	}

	first := firstError(len(reply.Steps), func(i int) (int, Status) {
		return reply.Steps[i].StepNumber, reply.Steps[i].Status
	})
	cont, p, _ := checkContinuation(first, reply.FirstErrorAtStep, reply.CorrectedContinuation)
	problems = append(problems, p...)

	if len(problems) > 0 {
		return nil, &InvalidMarkingResponseError{Problems: problems}
	}
	return &Analysis{
		Steps:                 reply.Steps,
		FirstErrorAtStep:      first,
		CorrectedContinuation: cont,
		Summary:               reply.Summary,
		Strengths:             reply.Strengths,
		Improvements:          reply.Improvements,
	}, nil
}

// firstError returns the step number of the first step that is not
// correct, or nil.
func firstError(n int, at func(i int) (int, Status)) *int {
	for i := 0; i < n; i++ {
		step, status := at(i)
		if status != StatusCorrect {
			return &step
		}
	}
	return nil
}

// checkContinuation requires a continuation when there is an error and pins
// it to the first error. Without an error any continuation is dropped.
func checkContinuation(first, claimed *int, cont *Continuation) (*Continuation, []string, []string) {
	var problems, warnings []string
	if claimed != nil && (first == nil || *claimed != *first) {
		warnings = append(warnings, fmt.Sprintf("first error step %d reported by the model does not match the step statuses", *claimed))
	}
	if first == nil {
		return nil, nil, warnings
	}
	if cont == nil || len(cont.Steps) == 0 {
		problems = append(problems, fmt.Sprintf("corrected_continuation is required from step %d", *first))
		return nil, problems, warnings
	}
	out := *cont
	out.FromStep = *first
	for i := range out.Steps {
		if out.Steps[i].Index <= 0 {
			out.Steps[i].Index = i + 1
		}
	}
	return &out, nil, warnings
}
