// Package journal keeps an SQLite audit trail of devspace executions.
// It is write-mostly: nothing in the request path reads it back.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Entry is one tools/call that reached the pipeline.
type Entry struct {
	ID               string    `json:"id"`
	Operation        string    `json:"operation"`
	Subcommand       string    `json:"subcommand,omitempty"`
	Args             []string  `json:"args,omitempty"`
	WorkingDirectory string    `json:"working_directory,omitempty"`
	Outcome          string    `json:"outcome"`
	ExitCode         int       `json:"exit_code"`
	DurationMS       int64     `json:"duration_ms"`
	Error            string    `json:"error,omitempty"`
	StartedAt        time.Time `json:"started_at"`
}

// timeLayout is fixed-width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store persists entries in the executions table.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or opens the journal database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing handle and creates the schema.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initTables(); err != nil {
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}
	return s, nil
}

func (s *Store) initTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS executions (
		id TEXT PRIMARY KEY,
		operation TEXT NOT NULL,
		subcommand TEXT NOT NULL DEFAULT '',
		args TEXT NOT NULL DEFAULT '[]',
		working_directory TEXT NOT NULL DEFAULT '',
		outcome TEXT NOT NULL,
		exit_code INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_executions_started_at ON executions(started_at);
	CREATE INDEX IF NOT EXISTS idx_executions_operation ON executions(operation);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores e, assigning an ID and start time when missing.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}
	args := e.Args
	if args == nil {
		args = []string{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to marshal args: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO executions (id, operation, subcommand, args, working_directory, outcome, exit_code, duration_ms, error_message, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Operation, e.Subcommand, string(argsJSON), e.WorkingDirectory, e.Outcome,
		e.ExitCode, e.DurationMS, e.Error, e.StartedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert execution: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation, subcommand, args, working_directory, outcome, exit_code, duration_ms, error_message, started_at
		FROM executions
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var argsJSON, started string
		if err := rows.Scan(&e.ID, &e.Operation, &e.Subcommand, &argsJSON, &e.WorkingDirectory,
			&e.Outcome, &e.ExitCode, &e.DurationMS, &e.Error, &started); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		if err := json.Unmarshal([]byte(argsJSON), &e.Args); err != nil {
			return nil, fmt.Errorf("failed to unmarshal args: %w", err)
		}
		if e.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
