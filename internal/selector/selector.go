// Package selector ranks worked examples against an incoming question.
package selector

import (
	"slices"
	"strings"
	"unicode"

	"github.com/samber/lo"

	"github.com/denimozh/mathstutor-sub000/internal/classify"
	"github.com/denimozh/mathstutor-sub000/internal/corpus"
)

// Scoring weights. They reproduce the ranking the prompts were tuned
// against; none of them is individually significant.
const (
	TopicMatchWeight     = 10
	MultiPartMatchWeight = 5
	GeometryMatchWeight  = 5

	// MinTokenLen is exclusive: only tokens longer than this are compared.
	MinTokenLen = 4
)

// DefaultK is the number of examples included in a prompt.
const DefaultK = 3

// Query is what the selector knows about the incoming question.
type Query struct {
	Topic        string
	QuestionText string
	Shape        classify.Shape
}

// NewQuery classifies the question and builds a Query.
func NewQuery(topic, questionText string) Query {
	return Query{
		Topic:        topic,
		QuestionText: questionText,
		Shape:        classify.Classify(questionText, topic),
	}
}

// Scorer assigns a relevance score to one example. Higher is better.
type Scorer interface {
	Score(q Query, ex corpus.WorkedExample) int
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(q Query, ex corpus.WorkedExample) int

func (f ScorerFunc) Score(q Query, ex corpus.WorkedExample) int { return f(q, ex) }

// HeuristicScorer is the additive topic/shape/overlap score.
type HeuristicScorer struct{}

func (HeuristicScorer) Score(q Query, ex corpus.WorkedExample) int {
	score := 0
	if topicMatches(q.Topic, ex.Topic) {
		score += TopicMatchWeight
	}
	if q.Shape.IsMultiPart && ex.IsMultiPart() {
		score += MultiPartMatchWeight
	}
	if q.Shape.IsGeometry && strings.Contains(strings.ToLower(ex.Topic), "geometry") {
		score += GeometryMatchWeight
	}
	score += SharedTokens(q.QuestionText, ex.Question)
	return score
}

// topicMatches is a case-insensitive substring test in either direction.
// An empty topic matches nothing.
func topicMatches(a, b string) bool {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// SharedTokens counts distinct words longer than MinTokenLen that occur in
// both texts.
func SharedTokens(a, b string) int {
	bt := tokens(b)
	return len(lo.Filter(tokens(a), func(tok string, _ int) bool {
		return slices.Contains(bt, tok)
	}))
}

func tokens(s string) []string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return lo.Uniq(lo.Filter(words, func(w string, _ int) bool {
		return len([]rune(w)) > MinTokenLen
	}))
}

// Scored pairs an example with its score.
type Scored struct {
	Example corpus.WorkedExample
	Score   int
}

// Selector ranks examples with a Scorer.
type Selector struct {
	Scorer Scorer
}

// New returns a Selector using scorer, or HeuristicScorer when nil.
func New(scorer Scorer) *Selector {
	if scorer == nil {
		scorer = HeuristicScorer{}
	}
	return &Selector{Scorer: scorer}
}

// Rank scores every example and sorts by descending score. Ties keep
// corpus order.
func (s *Selector) Rank(q Query, examples []corpus.WorkedExample) []Scored {
	scorer := s.Scorer
	if scorer == nil {
		scorer = HeuristicScorer{}
	}
	ranked := lo.Map(examples, func(ex corpus.WorkedExample, _ int) Scored {
		return Scored{Example: ex, Score: scorer.Score(q, ex)}
	})
	slices.SortStableFunc(ranked, func(a, b Scored) int {
		return b.Score - a.Score
	})
	return ranked
}

// Select returns at most k examples, best first. It never fails; an empty
// corpus or k <= 0 gives an empty result.
func (s *Selector) Select(q Query, examples []corpus.WorkedExample, k int) []corpus.WorkedExample {
	if k <= 0 || len(examples) == 0 {
		return []corpus.WorkedExample{}
	}
	ranked := s.Rank(q, examples)
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return lo.Map(ranked, func(sc Scored, _ int) corpus.WorkedExample {
		return sc.Example
	})
}

// Select ranks examples with HeuristicScorer.
func Select(topic, questionText string, examples []corpus.WorkedExample, k int) []corpus.WorkedExample {
	return New(nil).Select(NewQuery(topic, questionText), examples, k)
}
