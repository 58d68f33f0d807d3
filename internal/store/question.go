package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

type questionRepo struct {
	s *Store
}

func (r *questionRepo) Create(ctx context.Context, q *Question) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	now := time.Now()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	q.UpdatedAt = now

	query, args := r.s.builder().Insert(tableQuestions).
		Columns("id", "user_id", "question_text", "topic",
			"ai_solution", "marking_result", "work_analysis", "created_at", "updated_at").
		Values(q.ID, q.UserID, q.QuestionText, q.Topic,
			nullJSON(q.AISolution), nullJSON(q.MarkingResult), nullJSON(q.WorkAnalysis),
			q.CreatedAt.UnixMilli(), q.UpdatedAt.UnixMilli()).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (r *questionRepo) Get(ctx context.Context, id string) (*Question, error) {
	query, args := r.s.builder().Select("id", "user_id", "question_text", "topic",
		"ai_solution", "marking_result", "work_analysis", "created_at", "updated_at").
		From(entsql.Table(tableQuestions)).
		Where(entsql.EQ("id", id)).
		Query()

	var (
		q                           Question
		solution, marking, analysis sql.NullString
		createdAt, updatedAt        int64
	)
	err := r.s.db.QueryRowContext(ctx, query, args...).Scan(
		&q.ID, &q.UserID, &q.QuestionText, &q.Topic,
		&solution, &marking, &analysis, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question %s: %w", id, err)
	}

	q.AISolution = rawJSON(solution)
	q.MarkingResult = rawJSON(marking)
	q.WorkAnalysis = rawJSON(analysis)
	q.CreatedAt = time.UnixMilli(createdAt)
	q.UpdatedAt = time.UnixMilli(updatedAt)
	return &q, nil
}

func (r *questionRepo) SaveSolution(ctx context.Context, id string, solution json.RawMessage) error {
	return r.setJSON(ctx, id, "ai_solution", solution)
}

func (r *questionRepo) SaveMarkingResult(ctx context.Context, id string, result json.RawMessage) error {
	return r.setJSON(ctx, id, "marking_result", result)
}

func (r *questionRepo) SaveWorkAnalysis(ctx context.Context, id string, analysis json.RawMessage) error {
	return r.setJSON(ctx, id, "work_analysis", analysis)
}

func (r *questionRepo) setJSON(ctx context.Context, id, column string, value json.RawMessage) error {
	query, args := r.s.builder().Update(tableQuestions).
		Set(column, nullJSON(value)).
		Set("updated_at", time.Now().UnixMilli()).
		Where(entsql.EQ("id", id)).
		Query()

	res, err := r.s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update question %s %s: %w", id, column, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullJSON(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

func rawJSON(ns sql.NullString) json.RawMessage {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.RawMessage(ns.String)
}
