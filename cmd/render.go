package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/denimozh/mathstutor-sub000/internal/corpus"
	"github.com/denimozh/mathstutor-sub000/internal/marking"
	"github.com/denimozh/mathstutor-sub000/internal/ocr"
	"github.com/denimozh/mathstutor-sub000/internal/solver"
	"github.com/denimozh/mathstutor-sub000/internal/ui/components"
	"github.com/denimozh/mathstutor-sub000/internal/ui/theme"
)

const meterWidth = 40

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderSteps(w io.Writer, steps []corpus.Step) {
	for _, s := range steps {
		fmt.Fprintln(w, theme.Heading.Render(fmt.Sprintf("Step %d: %s", s.Index, s.Title)))
		if s.Explanation != "" {
			fmt.Fprintln(w, theme.Working.Render(s.Explanation))
		}
		if s.Working != "" {
			fmt.Fprintln(w, theme.Working.Render(s.Working))
		}
		if s.Formula != "" {
			fmt.Fprintln(w, theme.Working.Render("Formula: "+s.Formula))
		}
		if s.ExamTip != "" {
			fmt.Fprintln(w, theme.Tip.Render("Exam tip: "+s.ExamTip))
		}
	}
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func renderSolution(w io.Writer, res *solver.Result) {
	fmt.Fprintln(w, theme.Title.Render("Solution"))
	fmt.Fprintln(w)

	if len(res.PartSteps) > 0 {
		for _, label := range sortedKeys(res.PartSteps) {
			fmt.Fprintln(w, theme.Title.Render(fmt.Sprintf("Part (%s)", label)))
			renderSteps(w, res.PartSteps[label])
			if ans, ok := res.PartAnswers[label]; ok {
				fmt.Fprintln(w, theme.Answer.Render(fmt.Sprintf("(%s) %s", label, compactJSON(ans))))
			}
			fmt.Fprintln(w)
		}
	} else {
		renderSteps(w, res.Steps)
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, theme.Answer.Render("Final answer: "+compactJSON(res.FinalAnswer)))
	if v := res.Verification; v != nil && v.Method != "" {
		fmt.Fprintln(w, theme.Hint.Render(fmt.Sprintf("Checked by %s (error %.2f%%)", v.Method, v.ErrorPercentage)))
	}
	fmt.Fprintln(w, components.Meter{
		Label:  "Confidence",
		Value:  res.Confidence,
		Max:    1,
		Width:  meterWidth,
		Suffix: fmt.Sprintf("%.0f%%", res.Confidence*100),
	}.View())
	if res.WasCorrected {
		fmt.Fprintln(w, theme.Hint.Render("Corrected after a failed self-check."))
	}
	if len(res.Warnings) > 0 {
		fmt.Fprintln(w, theme.Warning.Render(strings.Join(res.Warnings, "\n")))
	}
}

func renderMarking(w io.Writer, res *marking.Result) {
	fmt.Fprintln(w, theme.Title.Render("Marking"))
	fmt.Fprintln(w, components.Meter{
		Label: "Marks",
		Value: float64(res.MarksAwarded),
		Max:   float64(res.MarksAvailable),
		Width: meterWidth,
	}.View())
	fmt.Fprintln(w)

	for _, sf := range res.StepFeedback {
		status := theme.StatusStyle(string(sf.Status)).Render(strings.ReplaceAll(string(sf.Status), "_", " "))
		fmt.Fprintf(w, "%s  %s  %d/%d\n",
			theme.Heading.Render(fmt.Sprintf("Step %d", sf.StepNumber)), status, sf.MarksAwarded, sf.MarksAvailable)
		fmt.Fprintln(w, theme.Working.Render(sf.StudentWork))
		fmt.Fprintln(w, theme.Hint.Render("    "+sf.Feedback))
	}

	if c := res.CorrectedContinuation; c != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, theme.Title.Render(fmt.Sprintf("Correct working from step %d", c.FromStep)))
		if c.Explanation != "" {
			fmt.Fprintln(w, theme.Body.Render(c.Explanation))
		}
		renderSteps(w, c.Steps)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, theme.Body.Render(res.OverallFeedback))
	if res.ExamTechniqueAdvice != "" {
		fmt.Fprintln(w, theme.Tip.Render("Exam technique: "+res.ExamTechniqueAdvice))
	}
	if res.MarkSchemeSource != "" {
		fmt.Fprintln(w, theme.Hint.Render("Mark scheme: "+res.MarkSchemeSource))
	}
	if len(res.Warnings) > 0 {
		fmt.Fprintln(w, theme.Warning.Render(strings.Join(res.Warnings, "\n")))
	}
}

func renderAnalysis(w io.Writer, a *marking.Analysis) {
	fmt.Fprintln(w, theme.Title.Render("Work analysis"))
	for _, sc := range a.Steps {
		status := theme.StatusStyle(string(sc.Status)).Render(strings.ReplaceAll(string(sc.Status), "_", " "))
		fmt.Fprintf(w, "%s  %s\n", theme.Heading.Render(fmt.Sprintf("Step %d", sc.StepNumber)), status)
		fmt.Fprintln(w, theme.Working.Render(sc.StudentWork))
		fmt.Fprintln(w, theme.Hint.Render("    "+sc.Feedback))
	}
	if c := a.CorrectedContinuation; c != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, theme.Title.Render(fmt.Sprintf("Correct working from step %d", c.FromStep)))
		renderSteps(w, c.Steps)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, theme.Body.Render(a.Summary))
	for _, s := range a.Strengths {
		fmt.Fprintln(w, theme.Correct.Render("+ ")+s)
	}
	for _, s := range a.Improvements {
		fmt.Fprintln(w, theme.Partial.Render("- ")+s)
	}
}

func renderOCR(w io.Writer, res ocr.Result) {
	fmt.Fprintln(w, theme.Title.Render("Recognised working ("+res.Provider+")"))
	for i, s := range res.StructuredSteps {
		fmt.Fprintf(w, "%s %s\n", theme.Heading.Render(fmt.Sprintf("%d.", i+1)), s)
	}
	if res.LaTeX != "" {
		fmt.Fprintln(w, theme.Hint.Render("LaTeX: "+res.LaTeX))
	}
	fmt.Fprintln(w, components.Meter{
		Label:  "Confidence",
		Value:  res.Confidence,
		Max:    1,
		Width:  meterWidth,
		Suffix: fmt.Sprintf("%.0f%%", res.Confidence*100),
	}.View())
	if res.NeedsVerification {
		msg := "Please check the recognised text before marking."
		if res.Error != "" {
			msg += "\n" + res.Error
		}
		fmt.Fprintln(w, theme.Warning.Render(msg))
	}
}
