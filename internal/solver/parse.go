package solver

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/denimozh/mathstutor-sub000/internal/classify"
	"github.com/denimozh/mathstutor-sub000/internal/corpus"
)

// StripFences removes a surrounding Markdown code fence, which some models
// add even in JSON mode.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// DecodeObject strips fences and decodes a single JSON object into v.
func DecodeObject(raw string, v any) error {
	body := StripFences(raw)
	if !strings.HasPrefix(body, "{") {
		return errors.New("response is not a JSON object")
	}
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}

type wireSolution struct {
	Steps        []wireStep            `json:"steps"`
	PartSteps    map[string][]wireStep `json:"part_steps"`
	PartAnswers  map[string]any        `json:"part_answers"`
	FinalAnswer  json.RawMessage       `json:"final_answer"`
	Verification *wireVerification     `json:"verification"`
	Confidence   flexFloat             `json:"confidence"`
}

type wireStep struct {
	StepNumber  flexInt    `json:"step_number"`
	Title       flexString `json:"title"`
	Explanation flexString `json:"explanation"`
	Working     flexString `json:"working"`
	Formula     flexString `json:"formula"`
	ExamTip     flexString `json:"exam_tip"`
}

type wireVerification struct {
	Method          flexString `json:"method"`
	Working         flexString `json:"working"`
	Result          flexString `json:"result"`
	ErrorPercentage flexFloat  `json:"error_percentage"`
	Passes          *bool      `json:"passes"`
	Interpretation  flexString `json:"interpretation"`
}

// Parse decodes and structurally validates one model output for the given
// kind. firstLabel is the part whose steps must be present for multi-part
// questions. Parse has no side effects.
func Parse(raw string, kind classify.Kind, firstLabel string) (*Result, error) {
	var w wireSolution
	if err := DecodeObject(raw, &w); err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}

	res := &Result{Kind: kind, Confidence: DefaultConfidence}

	var missing []string
	if len(w.FinalAnswer) == 0 || bytes.Equal(bytes.TrimSpace(w.FinalAnswer), []byte("null")) {
		missing = append(missing, "final_answer")
	} else if err := json.Unmarshal(w.FinalAnswer, &res.FinalAnswer); err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}

	switch kind {
	case classify.KindMultiPart:
		res.PartSteps = make(map[string][]corpus.Step, len(w.PartSteps))
		for label, steps := range lowerKeys(w.PartSteps) {
			res.PartSteps[label] = toSteps(steps)
		}
		res.PartAnswers = lowerKeys(w.PartAnswers)
		if firstLabel == "" {
			firstLabel = "a"
		}
		if len(res.PartSteps[strings.ToLower(firstLabel)]) == 0 {
			missing = append(missing, "part_steps."+strings.ToLower(firstLabel))
		}
	default:
		if len(w.Steps) == 0 {
			missing = append(missing, "steps")
		}
		res.Steps = toSteps(w.Steps)
	}

	if len(missing) > 0 {
		return nil, &IncompleteSolutionError{Missing: missing}
	}

	if v := w.Verification; v != nil {
		res.Verification = &Verification{
			Method:         string(v.Method),
			Working:        string(v.Working),
			Result:         string(v.Result),
			Passes:         v.Passes,
			Interpretation: string(v.Interpretation),
		}
		if v.ErrorPercentage.ok {
			res.Verification.ErrorPercentage = v.ErrorPercentage.v
		}
	}
	if w.Confidence.ok {
		res.Confidence = clamp01(w.Confidence.v)
	}
	return res, nil
}

// toSteps converts wire steps, filling in missing step numbers by position.
func toSteps(steps []wireStep) []corpus.Step {
	if steps == nil {
		return nil
	}
	out := make([]corpus.Step, len(steps))
	for i, ws := range steps {
		out[i] = corpus.Step{
			Index:       int(ws.StepNumber),
			Title:       string(ws.Title),
			Explanation: string(ws.Explanation),
			Working:     string(ws.Working),
			Formula:     string(ws.Formula),
			ExamTip:     string(ws.ExamTip),
		}
		if out[i].Index <= 0 {
			out[i].Index = i + 1
		}
	}
	return out
}

func lowerKeys[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.Trim(strings.TrimSpace(k), "()"))] = v
	}
	return out
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// flexString accepts any JSON scalar and keeps its text.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	*s = flexString(bytes.TrimSpace(b))
	return nil
}

// flexFloat accepts a number or a numeric string such as "2.5%". Anything
// else, including null and "N/A", leaves it unset.
type flexFloat struct {
	v  float64
	ok bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	*f = flexFloat{}
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexFloat{v: n, ok: true}
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return nil
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(str), "%")), 64)
	if err != nil {
		return nil
	}
	*f = flexFloat{v: n, ok: true}
	return nil
}

// flexInt accepts a number or a numeric string. Other values decode as 0
// and are renumbered by position.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	var f flexFloat
	_ = f.UnmarshalJSON(b)
	*n = 0
	if f.ok {
		*n = flexInt(f.v)
	}
	return nil
}
