package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/denimozh/mathstutor-sub000/internal/solver"
)

// batchItem is one line of a batch input file.
type batchItem struct {
	ID           string `json:"id"`
	QuestionText string `json:"question_text"`
	Topic        string `json:"topic"`
}

// batchResult is one line of batch output, in input order.
type batchResult struct {
	ID       string         `json:"id"`
	Solution *solver.Result `json:"solution,omitempty"`
	Error    string         `json:"error,omitempty"`
}

var batchCmd = &cobra.Command{
	Use:   "batch <file.jsonl>",
	Short: "Solve many questions concurrently",
	Long: "Solve every question in a JSONL file ({\"id\",\"question_text\",\"topic\"} per line) " +
		"and print one JSON result per line in input order.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open batch file: %w", err)
		}
		defer f.Close()
		items, err := readBatch(f)
		if err != nil {
			return err
		}

		d, err := buildDeps(cmd, depsOpts{needLLM: true})
		if err != nil {
			return err
		}
		defer d.Close()

		results, failed, err := runBatch(cmd.Context(), d.solver, items, concurrency)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d solved, %d failed\n", len(results)-failed, failed)
		return nil
	},
}

// readBatch parses JSONL, skipping blank lines. IDs default to the line
// number.
func readBatch(r io.Reader) ([]batchItem, error) {
	var items []batchItem
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var it batchItem
		if err := json.Unmarshal([]byte(text), &it); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if it.ID == "" {
			it.ID = fmt.Sprintf("line-%d", line)
		}
		items = append(items, it)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type questionSolver interface {
	Solve(ctx context.Context, req solver.Request) (*solver.Result, error)
}

// runBatch solves items with at most concurrency solves in flight. A
// failing item is recorded in its result and does not stop the others;
// only context cancellation aborts the batch.
func runBatch(ctx context.Context, s questionSolver, items []batchItem, concurrency int) ([]batchResult, int, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]batchResult, len(items))
	var failed atomic.Int32

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, it := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := s.Solve(ctx, solver.Request{QuestionText: it.QuestionText, Topic: it.Topic, QuestionID: it.ID})
			results[i] = batchResult{ID: it.ID, Solution: res}
			if err != nil {
				results[i].Error = err.Error()
				failed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return results, int(failed.Load()), nil
}

func init() {
	batchCmd.Flags().IntP("concurrency", "c", 4, "Maximum concurrent solves")
}
