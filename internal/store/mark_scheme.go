package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type markSchemeRepo struct {
	s *Store
}

func (r *markSchemeRepo) Get(ctx context.Context, questionID string) (*MarkScheme, error) {
	query, args := r.s.builder().Select("question_id", "content", "source", "created_at").
		From(entsql.Table(tableMarkSchemes)).
		Where(entsql.EQ("question_id", questionID)).
		Query()

	var (
		ms        MarkScheme
		createdAt int64
	)
	err := r.s.db.QueryRowContext(ctx, query, args...).Scan(&ms.QuestionID, &ms.Content, &ms.Source, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get mark scheme %s: %w", questionID, err)
	}
	ms.CreatedAt = time.UnixMilli(createdAt)
	return &ms, nil
}

func (r *markSchemeRepo) Put(ctx context.Context, ms MarkScheme) error {
	if ms.QuestionID == "" {
		return fmt.Errorf("mark scheme has no question id")
	}
	if ms.CreatedAt.IsZero() {
		ms.CreatedAt = time.Now()
	}

	query, args := r.s.builder().Insert(tableMarkSchemes).
		Columns("question_id", "content", "source", "created_at").
		Values(ms.QuestionID, ms.Content, ms.Source, ms.CreatedAt.UnixMilli()).
		OnConflict(
			entsql.ConflictColumns("question_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put mark scheme %s: %w", ms.QuestionID, err)
	}
	return nil
}
