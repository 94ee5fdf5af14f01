package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"AutoBlog/internal/domain"
	"AutoBlog/internal/ports"
)

const (
	runsTable  = "pipeline_runs"
	postsTable = "pipeline_posts"
)

const schema = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
    run_id        TEXT PRIMARY KEY,
    mode          TEXT NOT NULL,
    dry_run       BOOLEAN NOT NULL DEFAULT FALSE,
    success_count INTEGER NOT NULL,
    total_count   INTEGER NOT NULL,
    errors        TEXT[] NOT NULL DEFAULT '{}',
    started_at    TIMESTAMPTZ NOT NULL,
    finished_at   TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS pipeline_posts (
    run_id      TEXT NOT NULL REFERENCES pipeline_runs(run_id) ON DELETE CASCADE,
    position    INTEGER NOT NULL,
    title       TEXT NOT NULL,
    success     BOOLEAN NOT NULL,
    file_path   TEXT NOT NULL DEFAULT '',
    commit_hash TEXT NOT NULL DEFAULT '',
    error       TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, position)
);`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository persists run results into Postgres.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.RunRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// OpenPostgres opens a lib/pq connection pool and checks it is reachable.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the history tables when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// RecordRun upserts the run row and replaces its per-post rows.
func (r *PostgresRepository) RecordRun(ctx context.Context, result domain.RunResult) error {
	if r.db == nil {
		return nil
	}

	runQuery, runArgs, err := insertRunQuery(result)
	if err != nil {
		return fmt.Errorf("build run insert: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, runQuery, runArgs...); err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}

	delQuery, delArgs, err := psql.Delete(postsTable).Where(sq.Eq{"run_id": result.RunID}).ToSql()
	if err != nil {
		return fmt.Errorf("build posts delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, delQuery, delArgs...); err != nil {
		return fmt.Errorf("clear posts: %w", err)
	}

	if len(result.Posts) > 0 {
		postQuery, postArgs, err := insertPostsQuery(result)
		if err != nil {
			return fmt.Errorf("build posts insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, postQuery, postArgs...); err != nil {
			return fmt.Errorf("insert posts: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// RecentRuns returns the latest runs, newest first.
func (r *PostgresRepository) RecentRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if r.db == nil {
		return nil, nil
	}

	query, args, err := recentRunsQuery(limit)
	if err != nil {
		return nil, fmt.Errorf("build recent runs: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	var runs []domain.RunSummary
	for rows.Next() {
		var (
			s    domain.RunSummary
			mode string
		)
		if err := rows.Scan(&s.RunID, &mode, &s.DryRun, &s.SuccessCount, &s.TotalCount,
			&s.ErrorCount, &s.StartedAt, &s.FinishedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.Mode = domain.Mode(mode)
		runs = append(runs, s)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return runs, nil
}

func insertRunQuery(result domain.RunResult) (string, []any, error) {
	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}
	return psql.Insert(runsTable).
		Columns("run_id", "mode", "dry_run", "success_count", "total_count", "errors", "started_at", "finished_at").
		Values(result.RunID, string(result.Mode), result.DryRun, result.SuccessCount, result.TotalCount,
			pq.StringArray(errs), result.StartedAt, result.FinishedAt).
		Suffix(`ON CONFLICT (run_id) DO UPDATE
              SET success_count = EXCLUDED.success_count,
                  total_count = EXCLUDED.total_count,
                  errors = EXCLUDED.errors,
                  finished_at = EXCLUDED.finished_at`).
		ToSql()
}

func insertPostsQuery(result domain.RunResult) (string, []any, error) {
	insert := psql.Insert(postsTable).
		Columns("run_id", "position", "title", "success", "file_path", "commit_hash", "error")
	for i, p := range result.Posts {
		insert = insert.Values(result.RunID, i, p.Title, p.Success, p.FilePath, p.CommitHash, p.Error)
	}
	return insert.ToSql()
}

func recentRunsQuery(limit int) (string, []any, error) {
	if limit <= 0 {
		limit = 10
	}
	return psql.Select("run_id", "mode", "dry_run", "success_count", "total_count",
		"COALESCE(array_length(errors, 1), 0)", "started_at", "finished_at").
		From(runsTable).
		OrderBy("started_at DESC").
		Limit(uint64(limit)).
		ToSql()
}
