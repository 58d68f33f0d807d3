package prompt

import (
	"fmt"
	"strings"
)

const repairInstruction = `Your previous solution failed its own verification check.
Recompute the solution from the start. Find the step where the working goes wrong, correct it, and carry the correction through to the final answer.
Run the verification again on the new answer and only set "passes" to true if the check now agrees.
Respond with a complete JSON object in the same schema.`

// Repair returns a copy of p whose user message asks the model to redo a
// solution that failed verification. previous is the original model output
// and failure describes the failing check.
func Repair(p Payload, previous, failure string) Payload {
	var b strings.Builder
	b.WriteString(p.User)
	b.WriteString("\nYour previous answer:\n")
	b.WriteString(strings.TrimSpace(previous))
	b.WriteString("\n\nVerification result:\n")
	if failure = strings.TrimSpace(failure); failure == "" {
		failure = "passes = false"
	}
	b.WriteString(failure)
	b.WriteString("\n\n")
	b.WriteString(repairInstruction)

	out := p
	out.User = b.String()
	return out
}

// DescribeVerification formats a verification block for a repair prompt.
func DescribeVerification(method, working, result string, errorPercentage float64, interpretation string) string {
	var b strings.Builder
	writeLine := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, v)
		}
	}
	writeLine("Method", method)
	writeLine("Working", working)
	writeLine("Result", result)
	if errorPercentage != 0 {
		fmt.Fprintf(&b, "Error: %.2f%%\n", errorPercentage)
	}
	writeLine("Interpretation", interpretation)
	b.WriteString("passes = false")
	return b.String()
}
