package prompt

import (
	"reflect"
	"strings"
	"testing"

	"github.com/denimozh/mathstutor-sub000/internal/classify"
	"github.com/denimozh/mathstutor-sub000/internal/corpus"
	"github.com/denimozh/mathstutor-sub000/internal/selector"
)

func TestCompose_SchemaFollowsShape(t *testing.T) {
	tests := []struct {
		name     string
		question string
		schema   string
		kind     classify.Kind
		labels   int
	}{
		{"single", "Find the stationary points of y = x^3 - 3x.", "single-part-solution", classify.KindSinglePart, 0},
		{"two parts", "(a) find x (b) find y", "multi-part-solution", classify.KindMultiPart, 2},
		{"four parts", "(a) p (b) q (c) r (d) s", "multi-part-solution", classify.KindMultiPart, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shape := classify.Classify(tt.question, "Algebra")
			p := Compose(tt.question, "Algebra", shape, nil)
			if p.Schema.Name != tt.schema || p.Kind != tt.kind {
				t.Fatalf("schema %q kind %v, want %q %v", p.Schema.Name, p.Kind, tt.schema, tt.kind)
			}
			if len(p.Shape.PartLabels) != tt.labels {
				t.Fatalf("labels = %v, want %d", p.Shape.PartLabels, tt.labels)
			}
		})
	}
}

func TestCompose_RuleBlocks(t *testing.T) {
	q := "A closed cylinder has radius r. (a) Given that the volume is 250 pi, find r. (b) Find the surface area."
	p := Compose(q, "Geometry - Mensuration", classify.Classify(q, "Geometry - Mensuration"), nil)

	if !strings.Contains(p.System, "Step numbering restarts at 1 within every labelled part") {
		t.Error("multi-part rule missing")
	}
	if !strings.Contains(p.System, "list every surface or shape") || !strings.Contains(p.System, `"given that"`) {
		t.Error("geometry rules missing")
	}
	if !strings.Contains(p.User, "Parts to answer: (a), (b)") || !strings.Contains(p.User, "Topic: Geometry - Mensuration") {
		t.Errorf("unexpected user message:\n%s", p.User)
	}

	plain := Compose("Solve 3^x = 9", "", classify.Classify("Solve 3^x = 9", ""), nil)
	if strings.Contains(plain.System, "Multi-part rules") || strings.Contains(plain.System, "Geometry rules") {
		t.Error("rule blocks should be omitted for a plain question")
	}
}

func TestCompose_Deterministic(t *testing.T) {
	c := corpus.MustLoad()
	q := "(a) Find the arc length of the sector (b) Find the area"
	shape := classify.Classify(q, "Geometry")
	examples := selector.Select("Geometry", q, c.Examples(), selector.DefaultK)

	first := Compose(q, "Geometry", shape, examples)
	second := Compose(q, "Geometry", shape, examples)
	if first.System != second.System || first.User != second.User {
		t.Fatal("Compose is not deterministic")
	}
	if len(first.ExampleIDs) != selector.DefaultK {
		t.Fatalf("example ids = %v", first.ExampleIDs)
	}
	if strings.Count(first.System, "### Example ") != selector.DefaultK {
		t.Fatal("expected one heading per example")
	}
}

func TestRenderExample_Layout(t *testing.T) {
	ex := corpus.WorkedExample{
		Topic:    "Differentiation",
		Question: "Differentiate y = x^2.",
		Steps: []corpus.Step{
			{Index: 1, Title: "Power rule", Working: "dy/dx = 2x", Formula: "2x", ExamTip: "Bring the power down."},
		},
		FinalAnswer:    map[string]any{"derivative": "2x"},
		KeyConcepts:    []string{"power rule", "gradient"},
		CommonMistakes: []string{"Forgetting to reduce the power", "Sign slips"},
	}

	want := "### Example 2: Differentiation\n" +
		"Question: Differentiate y = x^2.\n" +
		"Solution:\n" +
		"Step 1: Power rule\n" +
		"  Working: dy/dx = 2x\n" +
		"  Formula: 2x\n" +
		"  Exam tip: Bring the power down.\n" +
		`Final answer (JSON): {"derivative":"2x"}` + "\n" +
		"Key concepts: power rule, gradient\n" +
		"Common mistakes: Forgetting to reduce the power; Sign slips\n"

	if got := RenderExample(2, ex); got != want {
		t.Fatalf("RenderExample mismatch\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderedAnswers_RoundTrip(t *testing.T) {
	examples := corpus.MustLoad().Examples()

	var b strings.Builder
	for i, ex := range examples {
		b.WriteString(RenderExample(i+1, ex))
	}

	parsed, err := ParseRenderedAnswers(b.String())
	if err != nil {
		t.Fatalf("ParseRenderedAnswers: %v", err)
	}
	if len(parsed) != len(examples) {
		t.Fatalf("parsed %d examples, want %d", len(parsed), len(examples))
	}
	for i, ex := range examples {
		if !reflect.DeepEqual(parsed[i].FinalAnswer, ex.FinalAnswer) {
			t.Errorf("%s: final answer %#v, want %#v", ex.ID, parsed[i].FinalAnswer, ex.FinalAnswer)
		}
		if len(ex.PartAnswers) == 0 {
			if parsed[i].PartAnswers != nil {
				t.Errorf("%s: unexpected part answers", ex.ID)
			}
			continue
		}
		if !reflect.DeepEqual(parsed[i].PartAnswers, ex.PartAnswers) {
			t.Errorf("%s: part answers %#v, want %#v", ex.ID, parsed[i].PartAnswers, ex.PartAnswers)
		}
	}
}

func TestParseRenderedAnswers_Errors(t *testing.T) {
	if _, err := ParseRenderedAnswers(`Final answer (JSON): {"x":1}`); err == nil {
		t.Error("expected error for answer outside an example")
	}
	if _, err := ParseRenderedAnswers("### Example 1: T\nFinal answer (JSON): {broken"); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestRepair(t *testing.T) {
	p := Compose("Find x.", "Algebra", classify.Shape{}, nil)
	failure := DescribeVerification("substitution", "2(3) = 5", "6 != 5", 20, "answer is wrong")
	r := Repair(p, `{"final_answer":{"x":3}}`, failure)

	if r.System != p.System || r.Schema != p.Schema {
		t.Fatal("repair must keep system prompt and schema")
	}
	for _, want := range []string{p.User, `{"final_answer":{"x":3}}`, "Method: substitution", "Error: 20.00%", "passes = false", "Recompute"} {
		if !strings.Contains(r.User, want) {
			t.Errorf("repair prompt missing %q", want)
		}
	}
	if p.User == r.User {
		t.Fatal("original payload was modified")
	}
}

func TestPayload_Request(t *testing.T) {
	p := Compose("(a) x (b) y", "", classify.Classify("(a) x (b) y", ""), nil)
	req := p.Request(2048)
	if req.Schema != MultiPartSchema || !req.SkipSchemaValidation || req.MaxTokens != 2048 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != p.User {
		t.Fatal("user message not carried")
	}
}
