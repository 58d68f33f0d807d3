package solver

import (
	"context"
	"fmt"

	"github.com/denimozh/mathstutor-sub000/internal/prompt"
)

// maxRepairs bounds self-correction. The first model answer plus at most
// this many repair calls are made per solve.
const maxRepairs = 1

// Context carries what the validator needs to build a repair request.
type Context struct {
	QuestionText string
	Topic        string
	Payload      prompt.Payload
}

// CallModel sends a payload to the model and returns its raw text.
type CallModel func(ctx context.Context, p prompt.Payload) (string, error)

// ValidateAndRepair parses raw, checks its structure and, when the model's
// own verification failed, makes one repair call. Parse and structural
// failures of raw are returned as errors. A failed repair is not an error:
// the original result comes back with NeedsReview set.
func ValidateAndRepair(ctx context.Context, raw string, c Context, call CallModel) (*Result, error) {
	kind := c.Payload.Kind
	firstLabel := c.Payload.Shape.FirstLabel()

	res, err := Parse(raw, kind, firstLabel)
	if err != nil {
		return nil, err
	}

	if res.Verification.Failed() {
		corrected := false
		var reason string
		for attempt := 0; attempt < maxRepairs && !corrected; attempt++ {
			repaired, rerr := repairOnce(ctx, raw, res.Verification, c, call)
			switch {
			case rerr != nil:
				reason = rerr.Error()
			case !repaired.Verification.Passed():
				reason = "repaired solution still fails verification"
			default:
				repaired.WasCorrected = true
				res = repaired
				corrected = true
			}
		}
		if !corrected {
			res.NeedsReview = true
			res.capConfidence(ReviewConfidence)
			res.Warnings = append(res.Warnings, "verification failed and could not be corrected: "+reason)
		}
	}

	applyStationaryCheck(res, c.QuestionText)
	return res, nil
}

func repairOnce(ctx context.Context, raw string, v *Verification, c Context, call CallModel) (*Result, error) {
	if call == nil {
		return nil, fmt.Errorf("no model available for repair")
	}
	failure := prompt.DescribeVerification(v.Method, v.Working, v.Result, v.ErrorPercentage, v.Interpretation)
	out, err := call(ctx, prompt.Repair(c.Payload, raw, failure))
	if err != nil {
		return nil, &UpstreamError{Op: "repair solution", Err: err}
	}
	return Parse(out, c.Payload.Kind, c.Payload.Shape.FirstLabel())
}
