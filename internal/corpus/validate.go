package corpus

import (
	"errors"
	"fmt"
)

// validate checks a single example's structural invariants.
func validate(ex WorkedExample) error {
	var errs []error

	if ex.Topic == "" {
		errs = append(errs, errors.New("topic is required"))
	}
	if ex.Question == "" {
		errs = append(errs, errors.New("question is required"))
	}
	if ex.FinalAnswer == nil {
		errs = append(errs, errors.New("final_answer is required"))
	}

	switch {
	case len(ex.Steps) > 0 && len(ex.PartSteps) > 0:
		errs = append(errs, errors.New("steps and part_steps are mutually exclusive"))
	case len(ex.Steps) == 0 && len(ex.PartSteps) == 0:
		errs = append(errs, errors.New("steps or part_steps is required"))
	case len(ex.Steps) > 0:
		if err := checkSteps(ex.Steps); err != nil {
			errs = append(errs, err)
		}
	default:
		for _, label := range ex.PartLabels() {
			if err := checkSteps(ex.PartSteps[label]); err != nil {
				errs = append(errs, fmt.Errorf("part (%s): %w", label, err))
			}
		}
		for label := range ex.PartAnswers {
			if _, ok := ex.PartSteps[label]; !ok {
				errs = append(errs, fmt.Errorf("part_answers has label %q with no steps", label))
			}
		}
	}

	return errors.Join(errs...)
}

// checkSteps requires indices 1..n in order and a title on every step.
func checkSteps(steps []Step) error {
	if len(steps) == 0 {
		return errors.New("no steps")
	}
	for i, s := range steps {
		if s.Index != i+1 {
			return fmt.Errorf("step %d has index %d, want %d", i+1, s.Index, i+1)
		}
		if s.Title == "" {
			return fmt.Errorf("step %d has no title", s.Index)
		}
	}
	return nil
}
