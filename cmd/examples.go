package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/cobra"

	"github.com/denimozh/mathstutor-sub000/internal/corpus"
	"github.com/denimozh/mathstutor-sub000/internal/prompt"
)

var examplesCmd = &cobra.Command{
	Use:   "examples",
	Short: "List the built-in worked examples",
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")

		c, err := corpus.Load()
		if err != nil {
			return fmt.Errorf("load worked examples: %w", err)
		}
		matches := filterExamples(c.Examples(), topic)
		out := cmd.OutOrStdout()
		if len(matches) == 0 {
			fmt.Fprintln(out, "No worked examples match.")
			return nil
		}

		fmt.Fprintf(out, "%-24s  %-6s  %s\n", "ID", "Parts", "Topic")
		fmt.Fprintln(out, strings.Repeat("─", 80))
		for _, ex := range matches {
			parts := "-"
			if ex.IsMultiPart() {
				parts = strings.Join(ex.PartLabels(), ",")
			}
			fmt.Fprintf(out, "%-24s  %-6s  %s\n", ex.ID, parts, ex.Topic)
		}
		return nil
	},
}

var examplesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a worked example as it appears in prompts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := corpus.Load()
		if err != nil {
			return fmt.Errorf("load worked examples: %w", err)
		}
		ex, ok := c.Get(args[0])
		if !ok {
			return fmt.Errorf("worked example %q not found", args[0])
		}
		fmt.Fprint(cmd.OutOrStdout(), prompt.RenderExample(1, ex))
		return nil
	},
}

// filterExamples keeps examples whose topic fuzzily matches query, best
// matches first. An empty query keeps everything in corpus order.
func filterExamples(examples []corpus.WorkedExample, query string) []corpus.WorkedExample {
	query = strings.TrimSpace(query)
	if query == "" {
		return examples
	}
	topics := make([]string, len(examples))
	for i, ex := range examples {
		topics[i] = ex.Topic
	}
	ranks := fuzzy.RankFindNormalizedFold(query, topics)
	sort.Stable(ranks)

	out := make([]corpus.WorkedExample, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, examples[r.OriginalIndex])
	}
	return out
}

func init() {
	examplesCmd.Flags().StringP("topic", "t", "", "Fuzzy topic filter, e.g. \"circles\"")
	examplesCmd.AddCommand(examplesShowCmd)
}
