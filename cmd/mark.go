package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/denimozh/mathstutor-sub000/internal/marking"
)

var markCmd = &cobra.Command{
	Use:   "mark",
	Short: "Mark student working against a mark scheme",
	Long: "Mark student working step by step. Without --scheme a mark scheme is " +
		"looked up for --question-id, or generated from the question and stored.",
	RunE: func(cmd *cobra.Command, args []string) error {
		work, err := flagFile(cmd, "work")
		if err != nil {
			return err
		}
		scheme, err := flagFile(cmd, "scheme")
		if err != nil {
			return err
		}
		question, _ := cmd.Flags().GetString("question")
		topic, _ := cmd.Flags().GetString("topic")
		qid, _ := cmd.Flags().GetString("question-id")
		asJSON, _ := cmd.Flags().GetBool("json")

		d, err := buildDeps(cmd, depsOpts{needLLM: true})
		if err != nil {
			return err
		}
		defer d.Close()

		res, err := d.marker.Mark(cmd.Context(), marking.MarkRequest{
			QuestionID:   qid,
			StudentWork:  work,
			MarkScheme:   scheme,
			QuestionText: question,
			Topic:        topic,
		})
		if err != nil {
			return fmt.Errorf("mark: %w", err)
		}
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		renderMarking(cmd.OutOrStdout(), res)
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Check student working step by step without a mark scheme",
	RunE: func(cmd *cobra.Command, args []string) error {
		work, err := flagFile(cmd, "work")
		if err != nil {
			return err
		}
		reference, err := flagFile(cmd, "reference")
		if err != nil {
			return err
		}
		question, _ := cmd.Flags().GetString("question")
		topic, _ := cmd.Flags().GetString("topic")
		asJSON, _ := cmd.Flags().GetBool("json")

		d, err := buildDeps(cmd, depsOpts{needLLM: true})
		if err != nil {
			return err
		}
		defer d.Close()

		a, err := d.marker.Analyze(cmd.Context(), marking.AnalyzeRequest{
			StudentWork:  work,
			QuestionText: question,
			Topic:        topic,
			Reference:    reference,
		})
		if err != nil {
			return fmt.Errorf("analyze: %w", err)
		}
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), a)
		}
		renderAnalysis(cmd.OutOrStdout(), a)
		return nil
	},
}

// flagFile reads the file named by a flag. "-" means stdin; an unset flag
// yields "".
func flagFile(cmd *cobra.Command, name string) (string, error) {
	path, _ := cmd.Flags().GetString(name)
	if path == "" {
		return "", nil
	}
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = readAll(os.Stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read --%s: %w", name, err)
	}
	return strings.TrimSpace(string(b)), nil
}

func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, 1<<20))
}

func init() {
	for _, c := range []*cobra.Command{markCmd, analyzeCmd} {
		c.Flags().StringP("work", "w", "", "File with the student's working (\"-\" for stdin)")
		c.Flags().StringP("question", "q", "", "Question text")
		c.Flags().StringP("topic", "t", "", "Topic label")
		c.Flags().Bool("json", false, "Print the raw result as JSON")
		_ = c.MarkFlagRequired("work")
	}
	markCmd.Flags().StringP("scheme", "s", "", "File with the mark scheme")
	markCmd.Flags().String("question-id", "", "Question ID used to cache the generated mark scheme")
	analyzeCmd.Flags().StringP("reference", "r", "", "File with a model solution to compare against")
}
