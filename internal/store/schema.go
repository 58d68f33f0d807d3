package store

import (
	"context"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
)

const (
	tableQuestions   = "questions"
	tableMarkSchemes = "mark_schemes"
	tableLLMEvents   = "llm_request_events"
)

// DDL uses {{serial}}, {{bigint}} and {{bool}} placeholders, filled per
// dialect by schemaStatements.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS questions (
	id TEXT NOT NULL PRIMARY KEY,
	user_id TEXT NOT NULL DEFAULT '',
	question_text TEXT NOT NULL,
	topic TEXT NOT NULL DEFAULT '',
	ai_solution TEXT,
	marking_result TEXT,
	work_analysis TEXT,
	created_at {{bigint}} NOT NULL,
	updated_at {{bigint}} NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS mark_schemes (
	question_id TEXT NOT NULL PRIMARY KEY,
	content TEXT NOT NULL,
	source TEXT NOT NULL,
	created_at {{bigint}} NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS llm_request_events (
	id {{serial}},
	created_at {{bigint}} NOT NULL,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	purpose TEXT NOT NULL,
	question_id TEXT NOT NULL DEFAULT '',
	input_tokens {{bigint}} NOT NULL DEFAULT 0,
	output_tokens {{bigint}} NOT NULL DEFAULT 0,
	latency_ms {{bigint}} NOT NULL DEFAULT 0,
	success {{bool}} NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	request_body TEXT NOT NULL DEFAULT '',
	response_body TEXT NOT NULL DEFAULT ''
)`,
	`CREATE INDEX IF NOT EXISTS idx_llm_request_events_purpose ON llm_request_events (purpose, created_at)`,
}

// schemaStatements returns the DDL for the given ent dialect name.
func schemaStatements(driver string) []string {
	r := strings.NewReplacer(
		"{{serial}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{bigint}}", "INTEGER",
		"{{bool}}", "INTEGER",
	)
	if driver == dialect.Postgres {
		r = strings.NewReplacer(
			"{{serial}}", "BIGSERIAL PRIMARY KEY",
			"{{bigint}}", "BIGINT",
			"{{bool}}", "BOOLEAN",
		)
	}
	out := make([]string, len(schemaDDL))
	for i, stmt := range schemaDDL {
		out[i] = r.Replace(stmt)
	}
	return out
}

// migrate creates the tables this service owns. Timestamps are stored as
// unix milliseconds so both dialects scan them the same way.
func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.dialect) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
