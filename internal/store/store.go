package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Postgres (Supabase) through database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Config selects the backing database.
type Config struct {
	// Driver is "sqlite" or "postgres".
	Driver string
	// DSN is a file path / SQLite URI, or a Postgres connection string.
	DSN string
}

// Store owns the database handle and hands out repositories.
type Store struct {
	db      *sql.DB
	dialect string
}

// Open connects to the configured database and creates missing tables.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var (
		driverName string
		d          string
	)
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite", "sqlite3":
		driverName, d = "sqlite", dialect.SQLite
	case "postgres", "postgresql", "pgx", "supabase":
		driverName, d = "pgx", dialect.Postgres
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, dialect: d}
	if d == dialect.SQLite {
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// DB returns the underlying handle for raw queries.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the ent dialect name in use.
func (s *Store) Dialect() string { return s.dialect }

func (s *Store) Close() error { return s.db.Close() }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) EventRepo() EventRepo { return &eventRepo{s: s} }

func (s *Store) QuestionRepo() QuestionRepo { return &questionRepo{s: s} }

func (s *Store) MarkSchemeRepo() MarkSchemeRepo { return &markSchemeRepo{s: s} }

func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the SQLite file used when no DSN is configured:
// $XDG_DATA_HOME/mathstutor/mathstutor.db, falling back to
// ~/.local/share/mathstutor/mathstutor.db.
func DefaultDBPath() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	p := filepath.Join(dataHome, "mathstutor", "mathstutor.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
