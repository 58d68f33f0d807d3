package prompt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// RenderedAnswers is the answer data recovered from one rendered example.
type RenderedAnswers struct {
	FinalAnswer any
	PartAnswers map[string]any
}

var partAnswerRe = regexp.MustCompile(`^Part \(([a-z])\) answer \(JSON\): (.*)$`)

// ParseRenderedAnswers recovers the JSON answer blocks from text produced by
// RenderExample, one entry per "### Example" heading.
func ParseRenderedAnswers(text string) ([]RenderedAnswers, error) {
	var out []RenderedAnswers
	var cur *RenderedAnswers

	for i, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "### Example "):
			out = append(out, RenderedAnswers{})
			cur = &out[len(out)-1]

		case strings.HasPrefix(line, finalAnswerPrefix):
			if cur == nil {
				return nil, fmt.Errorf("line %d: answer outside an example", i+1)
			}
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, finalAnswerPrefix)), &cur.FinalAnswer); err != nil {
				return nil, fmt.Errorf("line %d: final answer: %w", i+1, err)
			}

		default:
			m := partAnswerRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if cur == nil {
				return nil, fmt.Errorf("line %d: answer outside an example", i+1)
			}
			var v any
			if err := json.Unmarshal([]byte(m[2]), &v); err != nil {
				return nil, fmt.Errorf("line %d: part (%s) answer: %w", i+1, m[1], err)
			}
			if cur.PartAnswers == nil {
				cur.PartAnswers = make(map[string]any)
			}
			cur.PartAnswers[m[1]] = v
		}
	}
	return out, nil
}
