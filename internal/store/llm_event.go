package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var llmEventColumns = []string{
	"id", "created_at", "provider", "model", "purpose", "question_id",
	"input_tokens", "output_tokens", "latency_ms", "success",
	"error_message", "request_body", "response_body",
}

type eventRepo struct {
	s *Store
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	query, args := r.s.builder().Insert(tableLLMEvents).
		Columns(llmEventColumns[1:]...).
		Values(
			time.Now().UnixMilli(), data.Provider, data.Model, data.Purpose, data.QuestionID,
			data.InputTokens, data.OutputTokens, data.LatencyMs, data.Success,
			data.ErrorMessage, data.RequestBody, data.ResponseBody,
		).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error) {
	sel := r.s.builder().Select(llmEventColumns...).
		From(entsql.Table(tableLLMEvents)).
		OrderBy(entsql.Desc("id"))

	var preds []*entsql.Predicate
	if opts.Purpose != "" {
		preds = append(preds, entsql.EQ("purpose", opts.Purpose))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("created_at", opts.From.UnixMilli()))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("created_at", opts.To.UnixMilli()))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	defer rows.Close()

	var out []LLMRequestEvent
	for rows.Next() {
		e, err := scanLLMEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEvent, error) {
	query, args := r.s.builder().Select(llmEventColumns...).
		From(entsql.Table(tableLLMEvents)).
		Where(entsql.EQ("id", id)).
		Query()

	e, err := scanLLMEvent(r.s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

func (r *eventRepo) LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error) {
	return r.usage(ctx, "purpose")
}

func (r *eventRepo) LLMUsageByModel(ctx context.Context) ([]LLMUsage, error) {
	return r.usage(ctx, "model")
}

func (r *eventRepo) usage(ctx context.Context, groupBy string) ([]LLMUsage, error) {
	query, args := r.s.builder().Select(
		groupBy,
		entsql.As(entsql.Count("*"), "calls"),
		"CAST(SUM(input_tokens) AS BIGINT) AS input_tokens",
		"CAST(SUM(output_tokens) AS BIGINT) AS output_tokens",
		"CAST(AVG(latency_ms) AS BIGINT) AS avg_latency_ms",
	).
		From(entsql.Table(tableLLMEvents)).
		GroupBy(groupBy).
		OrderBy(groupBy).
		Query()

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query LLM usage by %s: %w", groupBy, err)
	}
	defer rows.Close()

	var out []LLMUsage
	for rows.Next() {
		var (
			u   LLMUsage
			key string
		)
		if err := rows.Scan(&key, &u.Calls, &u.InputTokens, &u.OutputTokens, &u.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan usage row: %w", err)
		}
		if groupBy == "purpose" {
			u.Purpose = key
		} else {
			u.Model = key
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLLMEvent(row rowScanner) (*LLMRequestEvent, error) {
	var (
		e         LLMRequestEvent
		createdAt int64
	)
	err := row.Scan(
		&e.ID, &createdAt, &e.Provider, &e.Model, &e.Purpose, &e.QuestionID,
		&e.InputTokens, &e.OutputTokens, &e.LatencyMs, &e.Success,
		&e.ErrorMessage, &e.RequestBody, &e.ResponseBody,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan LLM event: %w", err)
	}
	e.Timestamp = time.UnixMilli(createdAt)
	return &e, nil
}
