package solver

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/denimozh/mathstutor-sub000/internal/classify"
	"github.com/denimozh/mathstutor-sub000/internal/prompt"
)

const passingSingle = `{
  "steps": [
    {"step_number": 1, "title": "Differentiate", "working": "dy/dx = 2x - 4"},
    {"step_number": 2, "title": "Solve dy/dx = 0", "working": "x = 2"}
  ],
  "final_answer": {"x": 2, "y": -1},
  "verification": {"method": "substitution", "result": "dy/dx(2) = 0", "passes": true},
  "confidence": 0.92
}`

const failingSingle = `{
  "steps": [{"step_number": 1, "title": "Differentiate", "working": "dy/dx = 2x + 4"}],
  "final_answer": {"x": -2},
  "verification": {"method": "substitution", "result": "dy/dx(-2) = -8", "error_percentage": "100%", "passes": false},
  "confidence": 0.9
}`

const repairedSingle = `{
  "steps": [{"step_number": 1, "title": "Differentiate", "working": "dy/dx = 2x - 4"}],
  "final_answer": {"x": 2},
  "verification": {"method": "substitution", "result": "0", "passes": true},
  "confidence": 0.8
}`

func singleContext(question string) Context {
	shape := classify.Classify(question, "Differentiation")
	return Context{
		QuestionText: question,
		Topic:        "Differentiation",
		Payload:      prompt.Compose(question, "Differentiation", shape, nil),
	}
}

// scriptedModel replays outputs and records the payloads it was sent.
type scriptedModel struct {
	outputs []string
	errs    []error
	calls   []prompt.Payload
}

func (m *scriptedModel) call(_ context.Context, p prompt.Payload) (string, error) {
	i := len(m.calls)
	m.calls = append(m.calls, p)
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i >= len(m.outputs) {
		return "", errors.New("no scripted output")
	}
	return m.outputs[i], nil
}

func TestValidateAndRepair_Passing(t *testing.T) {
	model := &scriptedModel{}
	res, err := ValidateAndRepair(context.Background(), passingSingle, singleContext("Minimise y = x^2 - 4x + 3"), model.call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(model.calls) != 0 {
		t.Fatal("passing verification must not trigger a repair")
	}
	if len(res.Steps) != 2 || res.Confidence != 0.92 || res.WasCorrected || res.NeedsReview {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Kind != classify.KindSinglePart {
		t.Fatalf("kind = %v", res.Kind)
	}
}

func TestValidateAndRepair_Idempotent(t *testing.T) {
	c := singleContext("Minimise y = x^2 - 4x + 3")
	first, err := ValidateAndRepair(context.Background(), passingSingle, c, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ValidateAndRepair(context.Background(), passingSingle, c, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ:\n%+v\n%+v", first, second)
	}
}

func TestValidateAndRepair_Malformed(t *testing.T) {
	for _, raw := range []string{"", "Sure! Here is the solution.", `{"steps": [`, `[1, 2]`, `{"a":1} trailing`} {
		_, err := ValidateAndRepair(context.Background(), raw, singleContext("q"), nil)
		var mal *MalformedResponseError
		if !errors.As(err, &mal) || !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("%q: expected MalformedResponseError, got %v", raw, err)
		}
	}
}

func TestValidateAndRepair_EmptyStepsIncomplete(t *testing.T) {
	_, err := ValidateAndRepair(context.Background(), `{"steps": [], "final_answer": {}}`, singleContext("q"), nil)
	var inc *IncompleteSolutionError
	if !errors.As(err, &inc) || !errors.Is(err, ErrIncompleteSolution) {
		t.Fatalf("expected IncompleteSolutionError, got %v", err)
	}
	if !reflect.DeepEqual(inc.Missing, []string{"steps"}) {
		t.Fatalf("missing = %v", inc.Missing)
	}
}

func TestValidateAndRepair_MissingFinalAnswer(t *testing.T) {
	for _, raw := range []string{
		`{"steps": [{"step_number": 1, "title": "t"}]}`,
		`{"steps": [{"step_number": 1, "title": "t"}], "final_answer": null}`,
	} {
		_, err := ValidateAndRepair(context.Background(), raw, singleContext("q"), nil)
		if !errors.Is(err, ErrIncompleteSolution) {
			t.Errorf("%s: expected incomplete, got %v", raw, err)
		}
	}
}

func TestValidateAndRepair_RepairSucceeds(t *testing.T) {
	model := &scriptedModel{outputs: []string{repairedSingle}}
	c := singleContext("Minimise y = x^2 - 4x + 3")

	res, err := ValidateAndRepair(context.Background(), failingSingle, c, model.call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.WasCorrected || res.NeedsReview {
		t.Fatalf("expected corrected result, got %+v", res)
	}
	if res.Confidence != 0.8 {
		t.Fatalf("repaired confidence should be kept, got %v", res.Confidence)
	}
	if len(model.calls) != 1 {
		t.Fatalf("expected exactly one repair call, got %d", len(model.calls))
	}
	user := model.calls[0].User
	if !strings.Contains(user, `"x": -2`) || !strings.Contains(user, "dy/dx(-2) = -8") || !strings.Contains(user, "Error: 100.00%") {
		t.Fatalf("repair prompt lacks the original answer or failing check:\n%s", user)
	}
	if model.calls[0].System != c.Payload.System {
		t.Fatal("repair prompt changed the system instruction")
	}
}

func TestValidateAndRepair_RepairStillFails(t *testing.T) {
	model := &scriptedModel{outputs: []string{failingSingle, repairedSingle}}

	res, err := ValidateAndRepair(context.Background(), failingSingle, singleContext("q"), model.call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(model.calls) != 1 {
		t.Fatalf("repair must run once, ran %d times", len(model.calls))
	}
	if res.WasCorrected || !res.NeedsReview || res.Confidence > ReviewConfidence {
		t.Fatalf("expected original result flagged for review, got %+v", res)
	}
	if res.FinalAnswer.(map[string]any)["x"] != -2.0 {
		t.Fatalf("expected the original answer, got %v", res.FinalAnswer)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %v", res.Warnings)
	}
}

func TestValidateAndRepair_RepairErrorsDegrade(t *testing.T) {
	tests := []struct {
		name  string
		model *scriptedModel
	}{
		{"call fails", &scriptedModel{errs: []error{errors.New("timeout")}}},
		{"malformed repair", &scriptedModel{outputs: []string{"not json"}}},
		{"incomplete repair", &scriptedModel{outputs: []string{`{"steps": [], "final_answer": 1}`}}},
		{"no verification in repair", &scriptedModel{outputs: []string{`{"steps": [{"step_number":1,"title":"t"}], "final_answer": 1}`}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ValidateAndRepair(context.Background(), failingSingle, singleContext("q"), tt.model.call)
			if err != nil {
				t.Fatalf("repair failure must not surface: %v", err)
			}
			if !res.NeedsReview || res.WasCorrected || res.Confidence > ReviewConfidence {
				t.Fatalf("unexpected result: %+v", res)
			}
		})
	}

	res, err := ValidateAndRepair(context.Background(), failingSingle, singleContext("q"), nil)
	if err != nil || !res.NeedsReview {
		t.Fatalf("nil model: %+v, %v", res, err)
	}
}

func TestValidateAndRepair_MultiPart(t *testing.T) {
	q := "(a) find x (b) find y"
	shape := classify.Classify(q, "")
	c := Context{QuestionText: q, Payload: prompt.Compose(q, "", shape, nil)}

	raw := "```json\n" + `{
  "part_steps": {"A": [{"title": "Rearrange", "working": "x = 3"}], "b": [{"step_number": 1, "title": "Substitute"}]},
  "part_answers": {"a": {"x": 3}, "b": {"y": 4}},
  "final_answer": {"x": 3, "y": 4}
}` + "\n```"

	res, err := ValidateAndRepair(context.Background(), raw, c, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != classify.KindMultiPart || len(res.PartSteps["a"]) != 1 || res.PartSteps["a"][0].Index != 1 {
		t.Fatalf("unexpected parts: %+v", res.PartSteps)
	}
	if res.Confidence != DefaultConfidence {
		t.Fatalf("missing confidence should default, got %v", res.Confidence)
	}

	_, err = ValidateAndRepair(context.Background(), `{"part_steps": {"b": [{"title": "t"}]}, "final_answer": 1}`, c, nil)
	var inc *IncompleteSolutionError
	if !errors.As(err, &inc) || inc.Missing[0] != "part_steps.a" {
		t.Fatalf("expected missing part (a), got %v", err)
	}
}

func TestParse_ConfidenceClamped(t *testing.T) {
	res, err := Parse(`{"steps":[{"title":"t"}],"final_answer":1,"confidence":1.7}`, classify.KindSinglePart, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Confidence != 1 {
		t.Fatalf("confidence = %v", res.Confidence)
	}
	res, _ = Parse(`{"steps":[{"title":"t"}],"final_answer":1,"confidence":-0.2}`, classify.KindSinglePart, "")
	if res.Confidence != 0 {
		t.Fatalf("confidence = %v", res.Confidence)
	}
}

func TestParse_LenientScalars(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		wantConfidence float64
		wantErrPct     float64
		wantIndexes    []int
	}{
		{
			name:           "non-numeric error percentage",
			raw:            `{"steps":[{"step_number":1,"title":"t"}],"final_answer":2,"verification":{"error_percentage":"N/A","passes":true},"confidence":0.9}`,
			wantConfidence: 0.9,
			wantIndexes:    []int{1},
		},
		{
			name:           "word confidence",
			raw:            `{"steps":[{"step_number":1,"title":"t"}],"final_answer":2,"confidence":"high"}`,
			wantConfidence: DefaultConfidence,
			wantIndexes:    []int{1},
		},
		{
			name:           "null confidence",
			raw:            `{"steps":[{"step_number":1,"title":"t"}],"final_answer":2,"confidence":null}`,
			wantConfidence: DefaultConfidence,
			wantIndexes:    []int{1},
		},
		{
			name:           "string step numbers",
			raw:            `{"steps":[{"step_number":"1","title":"a"},{"step_number":"2","title":"b"}],"final_answer":2,"verification":{"error_percentage":"0.5%"},"confidence":"0.7"}`,
			wantConfidence: 0.7,
			wantErrPct:     0.5,
			wantIndexes:    []int{1, 2},
		},
		{
			name:           "unparseable step numbers renumbered",
			raw:            `{"steps":[{"step_number":"one","title":"a"},{"step_number":null,"title":"b"}],"final_answer":2}`,
			wantConfidence: DefaultConfidence,
			wantIndexes:    []int{1, 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(tt.raw, classify.KindSinglePart, "")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Confidence != tt.wantConfidence {
				t.Errorf("confidence = %v, want %v", res.Confidence, tt.wantConfidence)
			}
			if res.Verification != nil && res.Verification.ErrorPercentage != tt.wantErrPct {
				t.Errorf("error percentage = %v, want %v", res.Verification.ErrorPercentage, tt.wantErrPct)
			}
			var got []int
			for _, st := range res.Steps {
				got = append(got, st.Index)
			}
			if !reflect.DeepEqual(got, tt.wantIndexes) {
				t.Errorf("step indexes = %v, want %v", got, tt.wantIndexes)
			}
		})
	}
}

func TestValidateAndRepair_AdvisoryFieldsDoNotFail(t *testing.T) {
	raw := `{
  "steps": [{"step_number": "1", "title": "Expand", "working": "x^2 + 2x + 1"}],
  "final_answer": "x^2 + 2x + 1",
  "verification": {"method": "substitution", "error_percentage": "N/A", "passes": true},
  "confidence": "high"
}`
	model := &scriptedModel{}
	res, err := ValidateAndRepair(context.Background(), raw, singleContext("Expand (x + 1)^2."), model.call)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(model.calls) != 0 {
		t.Fatalf("repair called %d times", len(model.calls))
	}
	if res.Confidence != DefaultConfidence || res.WasCorrected {
		t.Fatalf("confidence = %v, corrected = %v", res.Confidence, res.WasCorrected)
	}
}

func TestStripFences(t *testing.T) {
	tests := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
		"```json {\"a\":1}```":    `{"a":1}`,
	}
	for in, want := range tests {
		if got := StripFences(in); got != want {
			t.Errorf("StripFences(%q) = %q, want %q", in, got, want)
		}
	}
}
