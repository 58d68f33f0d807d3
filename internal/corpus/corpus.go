// Package corpus holds the worked reference problems used as few-shot
// guidance for solution generation.
package corpus

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var dataFS embed.FS

// Step is one numbered line of a worked solution.
type Step struct {
	Index       int    `yaml:"index" json:"step_number"`
	Title       string `yaml:"title" json:"title"`
	Explanation string `yaml:"explanation,omitempty" json:"explanation,omitempty"`
	Working     string `yaml:"working,omitempty" json:"working,omitempty"`
	Formula     string `yaml:"formula,omitempty" json:"formula,omitempty"`
	ExamTip     string `yaml:"exam_tip,omitempty" json:"exam_tip,omitempty"`
}

// WorkedExample is a fully solved problem. Single-part examples carry Steps,
// multi-part examples carry PartSteps and PartAnswers keyed by part label.
type WorkedExample struct {
	ID             string            `yaml:"id" json:"id"`
	Topic          string            `yaml:"topic" json:"topic"`
	Question       string            `yaml:"question" json:"question"`
	Steps          []Step            `yaml:"steps,omitempty" json:"steps,omitempty"`
	PartSteps      map[string][]Step `yaml:"part_steps,omitempty" json:"part_steps,omitempty"`
	FinalAnswer    any               `yaml:"final_answer" json:"final_answer"`
	PartAnswers    map[string]any    `yaml:"part_answers,omitempty" json:"part_answers,omitempty"`
	KeyConcepts    []string          `yaml:"key_concepts,omitempty" json:"key_concepts,omitempty"`
	CommonMistakes []string          `yaml:"common_mistakes,omitempty" json:"common_mistakes,omitempty"`
}

// IsMultiPart reports whether the example is split into labelled parts.
func (e WorkedExample) IsMultiPart() bool {
	return len(e.PartSteps) > 0
}

// PartLabels returns the part labels in alphabetical order.
func (e WorkedExample) PartLabels() []string {
	labels := make([]string, 0, len(e.PartSteps))
	for l := range e.PartSteps {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Corpus is an immutable, ordered set of worked examples. It is safe for
// concurrent use.
type Corpus struct {
	examples []WorkedExample
}

// New builds a corpus from examples after validating them. Order is kept
// and is the selector's tie-break order.
func New(examples []WorkedExample) (*Corpus, error) {
	seen := make(map[string]bool, len(examples))
	out := make([]WorkedExample, 0, len(examples))
	for i, ex := range examples {
		if err := validate(ex); err != nil {
			return nil, fmt.Errorf("example %d (%s): %w", i, ex.ID, err)
		}
		if ex.ID != "" {
			if seen[ex.ID] {
				return nil, fmt.Errorf("duplicate example id %q", ex.ID)
			}
			seen[ex.ID] = true
		}
		norm, err := normalize(ex)
		if err != nil {
			return nil, fmt.Errorf("example %d (%s): %w", i, ex.ID, err)
		}
		out = append(out, norm)
	}
	return &Corpus{examples: out}, nil
}

// Load parses the embedded example files in file-name order.
func Load() (*Corpus, error) {
	return LoadFS(dataFS, "data")
}

// LoadFS parses every *.yaml file under dir in fsys.
func LoadFS(fsys fs.FS, dir string) (*Corpus, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus dir: %w", err)
	}

	var all []WorkedExample
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		examples, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		all = append(all, examples...)
	}
	return New(all)
}

// Parse decodes a YAML list of worked examples without validating them.
func Parse(data []byte) ([]WorkedExample, error) {
	var examples []WorkedExample
	if err := yaml.Unmarshal(data, &examples); err != nil {
		return nil, err
	}
	return examples, nil
}

// MustLoad is Load for program start-up.
func MustLoad() *Corpus {
	c, err := Load()
	if err != nil {
		panic(fmt.Sprintf("corpus: %v", err))
	}
	return c
}

// Examples returns the examples in corpus order. The slice is a copy; the
// examples' maps and slices are shared and must not be modified.
func (c *Corpus) Examples() []WorkedExample {
	if c == nil {
		return nil
	}
	return slices.Clone(c.examples)
}

// Len returns the number of examples.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.examples)
}

// Get returns the example with the given ID.
func (c *Corpus) Get(id string) (WorkedExample, bool) {
	if c == nil {
		return WorkedExample{}, false
	}
	for _, ex := range c.examples {
		if ex.ID == id {
			return ex, true
		}
	}
	return WorkedExample{}, false
}

// Topics returns the distinct topics in corpus order.
func (c *Corpus) Topics() []string {
	var topics []string
	for _, ex := range c.Examples() {
		if !slices.Contains(topics, ex.Topic) {
			topics = append(topics, ex.Topic)
		}
	}
	return topics
}

// normalize round-trips answers through JSON so they have the same shape a
// decoded model reply would have: float64 numbers and map[string]any objects.
func normalize(ex WorkedExample) (WorkedExample, error) {
	fa, err := NormalizeJSON(ex.FinalAnswer)
	if err != nil {
		return ex, fmt.Errorf("final_answer: %w", err)
	}
	ex.FinalAnswer = fa

	if len(ex.PartAnswers) > 0 {
		parts := make(map[string]any, len(ex.PartAnswers))
		for label, v := range ex.PartAnswers {
			nv, err := NormalizeJSON(v)
			if err != nil {
				return ex, fmt.Errorf("part_answers[%s]: %w", label, err)
			}
			parts[label] = nv
		}
		ex.PartAnswers = parts
	}
	return ex, nil
}

// NormalizeJSON converts v to its generic JSON form.
func NormalizeJSON(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
