package cmd

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/denimozh/mathstutor-sub000/internal/solver"
)

var solveCmd = &cobra.Command{
	Use:   "solve <question>",
	Short: "Generate a step-by-step solution",
	Long: "Generate a step-by-step solution. The question is read from the " +
		"argument, or from --file, or from stdin when the argument is \"-\".",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		file, _ := cmd.Flags().GetString("file")
		asJSON, _ := cmd.Flags().GetBool("json")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		question, err := readInput(args, file)
		if err != nil {
			return err
		}

		d, err := buildDeps(cmd, depsOpts{needLLM: !dryRun})
		if err != nil {
			return err
		}
		defer d.Close()

		req := solver.Request{QuestionText: question, Topic: topic}
		out := cmd.OutOrStdout()
		if dryRun {
			p := d.solver.Compose(req)
			fmt.Fprintf(out, "kind: %s\nexamples: %s\nschema: %s\n\n", p.Kind, strings.Join(p.ExampleIDs, ", "), p.Schema.Name)
			fmt.Fprintln(out, "--- system ---")
			fmt.Fprintln(out, p.System)
			fmt.Fprintln(out, "--- user ---")
			fmt.Fprintln(out, p.User)
			return nil
		}

		res, err := d.solver.Solve(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("solve: %w", err)
		}
		if asJSON {
			return writeJSON(out, res)
		}
		renderSolution(out, res)
		return nil
	},
}

// readInput returns the positional argument, the contents of file, or stdin
// when the argument is "-".
func readInput(args []string, file string) (string, error) {
	var text string
	switch {
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		text = string(b)
	case len(args) == 1 && args[0] == "-":
		b, err := readAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		text = string(b)
	case len(args) == 1:
		text = args[0]
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("no question given")
	}
	return text, nil
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

func init() {
	solveCmd.Flags().StringP("topic", "t", "", "Topic label, e.g. \"Differentiation - Stationary points\"")
	solveCmd.Flags().StringP("file", "f", "", "Read the question from a file")
	solveCmd.Flags().Bool("json", false, "Print the raw result as JSON")
	solveCmd.Flags().Bool("dry-run", false, "Print the composed prompt without calling the model")
}
