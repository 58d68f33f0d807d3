// Package prompt turns a classified question and its selected worked
// examples into a model request.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/denimozh/mathstutor-sub000/internal/classify"
	"github.com/denimozh/mathstutor-sub000/internal/corpus"
	"github.com/denimozh/mathstutor-sub000/internal/llm"
)

// Payload is everything needed for one solution request. The composer does
// not call the model.
type Payload struct {
	System string
	User   string
	Schema *llm.Schema
	Kind   classify.Kind
	Shape  classify.Shape

	// ExampleIDs lists the worked examples that were rendered, in order.
	ExampleIDs []string
}

// Request converts the payload into an llm.Request. Validation is left to
// the caller so that parse failures surface as pipeline errors.
func (p Payload) Request(maxTokens int) llm.Request {
	return llm.Request{
		System:               p.System,
		Messages:             llm.UserMessage(p.User),
		Schema:               p.Schema,
		SkipSchemaValidation: true,
		MaxTokens:            maxTokens,
	}
}

const systemPreamble = `You are an experienced A-Level mathematics examiner writing model solutions.

Rules:
- Solve the question completely, one numbered step at a time, the way a mark scheme expects working to be shown.
- Every step has a short title and the working that produces its result. Put the resulting expression or value in "formula".
- Use plain text for maths: ^ for powers, sqrt() for roots, pi for π, and / for fractions.
- Give exact answers when the question asks for them, otherwise 3 significant figures.
- Include a "verification" block: check the final answer independently (substitute back, differentiate, estimate) and set "passes" to false if the check disagrees.
- Report your "confidence" in the final answer between 0 and 1.
- Respond with a single JSON object matching the schema and nothing else.`

const multiPartRules = `Multi-part rules:
- The question has labelled parts. Answer every part under its own label in "part_steps" and "part_answers".
- Step numbering restarts at 1 within every labelled part.
- Later parts may use results from earlier parts; quote the value you are using.
- "final_answer" summarises the answers of all parts.`

const geometryRules = `Geometry rules:
- Before computing any area or volume, list every surface or shape that contributes to it.
- If the question says "given that" or fixes a value, use that constraint to find every unknown before summing areas or volumes.
- State units in every answer.`

// Compose builds the payload for a question. The examples are rendered in
// the order given.
func Compose(questionText, topic string, shape classify.Shape, examples []corpus.WorkedExample) Payload {
	var sys strings.Builder
	sys.WriteString(systemPreamble)

	if len(examples) > 0 {
		sys.WriteString("\n\nWorked examples showing the expected depth and layout:\n")
		for i, ex := range examples {
			sys.WriteString("\n")
			sys.WriteString(RenderExample(i+1, ex))
		}
	}

	if shape.IsMultiPart {
		sys.WriteString("\n\n")
		sys.WriteString(multiPartRules)
	}
	if shape.IsGeometry {
		sys.WriteString("\n\n")
		sys.WriteString(geometryRules)
	}

	ids := make([]string, len(examples))
	for i, ex := range examples {
		ids[i] = ex.ID
	}

	kind := shape.Kind()
	return Payload{
		System:     sys.String(),
		User:       buildUserMessage(questionText, topic, shape),
		Schema:     SchemaFor(kind),
		Kind:       kind,
		Shape:      shape,
		ExampleIDs: ids,
	}
}

func buildUserMessage(questionText, topic string, shape classify.Shape) string {
	var b strings.Builder
	if topic != "" {
		fmt.Fprintf(&b, "Topic: %s\n", topic)
	}
	fmt.Fprintf(&b, "Question:\n%s\n", strings.TrimSpace(questionText))
	if shape.IsMultiPart {
		labels := make([]string, len(shape.PartLabels))
		for i, l := range shape.PartLabels {
			labels[i] = "(" + l + ")"
		}
		fmt.Fprintf(&b, "\nParts to answer: %s\n", strings.Join(labels, ", "))
	}
	return b.String()
}

// Line prefixes for rendered answers. ParseRenderedAnswers depends on them.
const (
	finalAnswerPrefix = "Final answer (JSON): "
	partAnswerFormat  = "Part (%s) answer (JSON): "
)

// RenderExample renders one worked example as a deterministic text block.
func RenderExample(n int, ex corpus.WorkedExample) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### Example %d: %s\n", n, ex.Topic)
	fmt.Fprintf(&b, "Question: %s\n", strings.TrimSpace(ex.Question))

	if ex.IsMultiPart() {
		for _, label := range ex.PartLabels() {
			fmt.Fprintf(&b, "Part (%s):\n", label)
			RenderSteps(&b, ex.PartSteps[label])
			if ans, ok := ex.PartAnswers[label]; ok {
				fmt.Fprintf(&b, partAnswerFormat+"%s\n", label, mustJSON(ans))
			}
		}
	} else {
		b.WriteString("Solution:\n")
		RenderSteps(&b, ex.Steps)
	}

	b.WriteString(finalAnswerPrefix)
	b.WriteString(mustJSON(ex.FinalAnswer))
	b.WriteString("\n")

	if len(ex.KeyConcepts) > 0 {
		fmt.Fprintf(&b, "Key concepts: %s\n", strings.Join(ex.KeyConcepts, ", "))
	}
	if len(ex.CommonMistakes) > 0 {
		fmt.Fprintf(&b, "Common mistakes: %s\n", strings.Join(ex.CommonMistakes, "; "))
	}
	return b.String()
}

// RenderSteps writes steps in order, skipping empty fields.
func RenderSteps(b *strings.Builder, steps []corpus.Step) {
	for _, s := range steps {
		fmt.Fprintf(b, "Step %d: %s\n", s.Index, s.Title)
		writeField(b, "Explanation", s.Explanation)
		writeField(b, "Working", s.Working)
		writeField(b, "Formula", s.Formula)
		writeField(b, "Exam tip", s.ExamTip)
	}
}

func writeField(b *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	fmt.Fprintf(b, "  %s: %s\n", label, value)
}

// mustJSON encodes answers, which are always generic JSON values after
// corpus normalisation.
func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}
