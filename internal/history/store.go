// Package history records prompt executions in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Status is the outcome of a prompt run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// DefaultLimit caps Recent when the caller passes a non-positive limit.
const DefaultLimit = 50

// ErrRunNotFound is returned by Finish for an unknown run ID.
var ErrRunNotFound = errors.New("prompt run not found")

// Run is one prompt execution.
type Run struct {
	ID           string     `json:"id"`
	PromptName   string     `json:"prompt_name"`
	ProviderName string     `json:"provider_name"`
	Shortcut     string     `json:"shortcut"`
	Status       Status     `json:"status"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

const schema = `
CREATE TABLE IF NOT EXISTS prompt_runs (
	id            TEXT PRIMARY KEY,
	prompt_name   TEXT NOT NULL,
	provider_name TEXT NOT NULL DEFAULT '',
	shortcut      TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	error         TEXT NOT NULL DEFAULT '',
	started_at    INTEGER NOT NULL,
	finished_at   INTEGER
);
CREATE INDEX IF NOT EXISTS prompt_runs_started_at ON prompt_runs (started_at DESC);
`

// Store is safe for concurrent use; database/sql serializes access.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("open history: mkdir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY under concurrent Begin/Finish.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("open history: apply schema: %w", err)
	}
	slog.Debug("[DEBUG-HISTORY] opened", "path", path)
	return &Store{db: db}, nil
}

// Begin inserts a running entry. StartedAt defaults to now.
func (s *Store) Begin(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("history: run ID required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prompt_runs (id, prompt_name, provider_name, shortcut, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.PromptName, run.ProviderName, run.Shortcut, string(StatusRunning), run.StartedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("history: begin %s: %w", run.ID, err)
	}
	return nil
}

// Finish records the outcome of a run. A non-empty errMsg marks it failed.
func (s *Store) Finish(ctx context.Context, id string, errMsg string, at time.Time) error {
	status := StatusSucceeded
	if errMsg != "" {
		status = StatusFailed
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE prompt_runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), errMsg, at.UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("history: finish %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("history: finish %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prompt_name, provider_name, shortcut, status, error, started_at, finished_at
		 FROM prompt_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0, limit)
	for rows.Next() {
		var (
			run        Run
			status     string
			startedAt  int64
			finishedAt sql.NullInt64
		)
		if err := rows.Scan(&run.ID, &run.PromptName, &run.ProviderName, &run.Shortcut,
			&status, &run.Error, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		run.Status = Status(status)
		run.StartedAt = time.UnixMilli(startedAt)
		if finishedAt.Valid {
			t := time.UnixMilli(finishedAt.Int64)
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: rows: %w", err)
	}
	return runs, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
