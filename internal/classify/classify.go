// Package classify derives the shape of a question from its text: whether it
// has labelled sub-parts and whether it is a geometry problem.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// Kind selects the response contract for a question. It is decided once here
// and carried through prompt composition and validation.
type Kind int

const (
	KindSinglePart Kind = iota
	KindMultiPart
)

func (k Kind) String() string {
	switch k {
	case KindSinglePart:
		return "single_part"
	case KindMultiPart:
		return "multi_part"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "single_part":
		*k = KindSinglePart
	case "multi_part":
		*k = KindMultiPart
	default:
		return fmt.Errorf("unknown question kind %q", b)
	}
	return nil
}

// Shape is the per-request classification of a question.
type Shape struct {
	IsMultiPart bool     `json:"is_multi_part"`
	PartLabels  []string `json:"part_labels,omitempty"`
	IsGeometry  bool     `json:"is_geometry"`
}

// Kind returns KindMultiPart when the question has labelled parts.
func (s Shape) Kind() Kind {
	if s.IsMultiPart {
		return KindMultiPart
	}
	return KindSinglePart
}

// FirstLabel returns the first detected part label, or "a".
func (s Shape) FirstLabel() string {
	if len(s.PartLabels) == 0 {
		return "a"
	}
	return s.PartLabels[0]
}

var partLabelRe = regexp.MustCompile(`(?i)\(([a-d])\)`)

// GeometryKeywords trigger geometry-specific prompt rules.
var GeometryKeywords = []string{
	"sector",
	"circle",
	"triangle",
	"rectangle",
	"area",
	"volume",
	"surface area",
	"arc length",
	"radius",
	"congruent",
	"perpendicular",
}

// Classify inspects the question text and topic. It never fails; a question
// with no signal yields the zero Shape.
func Classify(questionText, topic string) Shape {
	labels := PartLabels(questionText)
	return Shape{
		IsMultiPart: len(labels) > 0,
		PartLabels:  labels,
		IsGeometry:  IsGeometry(questionText, topic),
	}
}

// PartLabels returns the distinct bracketed labels (a)-(d), lower-cased, in
// order of first appearance.
func PartLabels(questionText string) []string {
	matches := partLabelRe.FindAllStringSubmatch(questionText, -1)
	if len(matches) == 0 {
		return nil
	}
	labels := lo.Map(matches, func(m []string, _ int) string {
		return strings.ToLower(m[1])
	})
	return lo.Uniq(labels)
}

// IsGeometry reports whether the question mentions a geometry keyword or the
// topic names geometry.
func IsGeometry(questionText, topic string) bool {
	if strings.Contains(strings.ToLower(topic), "geometry") {
		return true
	}
	text := strings.ToLower(questionText)
	return lo.SomeBy(GeometryKeywords, func(kw string) bool {
		return strings.Contains(text, kw)
	})
}
