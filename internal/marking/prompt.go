package marking

import (
	"fmt"
	"strings"
)

const markingSystemPrompt = `You are a senior A-Level mathematics examiner marking a student's handwritten working against a mark scheme.

Rules:
- Split the student's working into steps, one per line of working, numbered from 1 in the order written.
- For every step quote the student's work, name the mark scheme requirement it addresses, and give it a status: "correct", "partially_correct", "incorrect" or "missing".
- Use "missing" for a mark scheme requirement the student never attempted, placed where that step should have appeared.
- Award marks exactly as the mark scheme allows. Accuracy (A) marks depend on the preceding method (M) mark. Follow-through is allowed only where the scheme says so.
- "marks_awarded" is the sum of the step marks and never exceeds "marks_available".
- "first_error_at_step" is the first step whose status is not "correct". Omit it when every step is correct.
- When there is an error, "corrected_continuation" must restart from that step and show the correct working to the final answer, as numbered steps.
- Give "error_type" for steps that are not correct.
- End with short, specific exam technique advice.
- Respond with a single JSON object matching the schema and nothing else.`

const analysisSystemPrompt = `You are an A-Level mathematics tutor checking a student's working line by line.

Rules:
- Split the working into steps numbered from 1 in the order written.
- Give each step a status: "correct", "partially_correct", "incorrect" or "missing", with one or two sentences of feedback.
- "first_error_at_step" is the first step that is not "correct". Omit it when the working is all correct.
- When there is an error, "corrected_continuation" restarts from that step and completes the solution correctly.
- Summarise the working and list concrete strengths and improvements.
- Respond with a single JSON object matching the schema and nothing else.`

const markSchemeSystemPrompt = `You are an A-Level mathematics examiner writing the official mark scheme for a question.

Rules:
- List each creditable step in order with its mark type: M for method, A for accuracy (dependent on the preceding M), B for an independent result.
- Each requirement states precisely what must be seen to earn the mark.
- "total_marks" equals the sum of the marks of all points.
- Respond with a single JSON object matching the schema and nothing else.`

func buildMarkingMessage(req MarkRequest) string {
	var b strings.Builder
	writeQuestion(&b, req.QuestionText, req.Topic)
	b.WriteString("\nMark scheme:\n")
	b.WriteString(strings.TrimSpace(req.MarkScheme))
	b.WriteString("\n\nStudent working:\n")
	writeNumberedLines(&b, req.StudentWork)
	return b.String()
}

func buildAnalysisMessage(req AnalyzeRequest) string {
	var b strings.Builder
	writeQuestion(&b, req.QuestionText, req.Topic)
	if ref := strings.TrimSpace(req.Reference); ref != "" {
		b.WriteString("\nReference solution:\n")
		b.WriteString(ref)
		b.WriteString("\n")
	}
	b.WriteString("\nStudent working:\n")
	writeNumberedLines(&b, req.StudentWork)
	return b.String()
}

func buildMarkSchemeMessage(questionText, topic string) string {
	var b strings.Builder
	writeQuestion(&b, questionText, topic)
	return b.String()
}

func writeQuestion(b *strings.Builder, questionText, topic string) {
	if topic != "" {
		fmt.Fprintf(b, "Topic: %s\n", topic)
	}
	fmt.Fprintf(b, "Question:\n%s\n", strings.TrimSpace(questionText))
}

// writeNumberedLines numbers the non-blank lines of work so the model can
// align its step numbers with what the student wrote.
func writeNumberedLines(b *strings.Builder, work string) {
	n := 0
	for _, line := range strings.Split(work, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		n++
		fmt.Fprintf(b, "%d. %s\n", n, line)
	}
	if n == 0 {
		b.WriteString("(no working submitted)\n")
	}
}
