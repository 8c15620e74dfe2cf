// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Run history persisted in SQLite

package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migration.sql
var migrationSQL string

// Statuses a run can be recorded with, besides the runner's terminal statuses
const (
	StatusRunning     = "running"
	StatusInterrupted = "interrupted" // the panel stopped while the run was in flight
)

// ErrNotFound is returned when a run id is unknown
var ErrNotFound = errors.New("run not found")

// Run is one recorded command execution
type Run struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id"`
	Workspace  string     `json:"workspace"`
	Action     string     `json:"action"`
	Command    string     `json:"command"`
	Status     string     `json:"status"`
	ExitCode   int        `json:"exit_code"`
	Error      string     `json:"error,omitempty"`
	Lines      int        `json:"lines"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	PID        int        `json:"pid,omitempty"` // process that recorded the run
}

// Duration returns how long the run took, or has been running
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store wraps the SQLite connection
type Store struct {
	conn *sql.DB
	path string
}

// Open creates or opens the history database at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// SQLite works best with a single writer connection
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	s := &Store{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return fmt.Errorf("failed to configure history database: %w", err)
	}
	if _, err := s.conn.Exec(migrationSQL); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}
	if err := s.ensurePIDColumn(); err != nil {
		return err
	}
	return s.closeOrphans()
}

// ensurePIDColumn upgrades databases created before runs recorded their process
func (s *Store) ensurePIDColumn() error {
	rows, err := s.conn.Query("SELECT name FROM pragma_table_info('runs')")
	if err != nil {
		return fmt.Errorf("failed to inspect history schema: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to inspect history schema: %w", err)
		}
		if name == "pid" {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to inspect history schema: %w", err)
	}
	rows.Close()

	if _, err := s.conn.Exec("ALTER TABLE runs ADD COLUMN pid INTEGER NOT NULL DEFAULT 0"); err != nil {
		return fmt.Errorf("failed to add pid column: %w", err)
	}
	return nil
}

// closeOrphans marks runs interrupted when the process that recorded them is
// gone. Runs owned by a live process, another tfpanel sharing the database
// included, are left running.
func (s *Store) closeOrphans() error {
	rows, err := s.conn.Query("SELECT id, pid FROM runs WHERE status = ?", StatusRunning)
	if err != nil {
		return fmt.Errorf("failed to find interrupted runs: %w", err)
	}

	var orphans []string
	for rows.Next() {
		var (
			id  string
			pid int
		)
		if err := rows.Scan(&id, &pid); err != nil {
			rows.Close()
			return fmt.Errorf("failed to find interrupted runs: %w", err)
		}
		if !processAlive(pid) {
			orphans = append(orphans, id)
		}
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return fmt.Errorf("failed to find interrupted runs: %w", err)
	}

	for _, id := range orphans {
		if _, err := s.conn.Exec(
			"UPDATE runs SET status = ?, finished_at = started_at WHERE id = ? AND status = ?",
			StatusInterrupted, id, StatusRunning,
		); err != nil {
			return fmt.Errorf("failed to close interrupted run %s: %w", id, err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Path returns the database file location
func (s *Store) Path() string {
	return s.path
}

// Start records a run as in flight
func (s *Store) Start(ctx context.Context, run *Run) error {
	if run.Status == "" {
		run.Status = StatusRunning
	}
	if run.PID == 0 {
		run.PID = os.Getpid()
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO runs (id, session_id, workspace, action, command, status, started_at, pid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SessionID, run.Workspace, run.Action, run.Command, run.Status,
		run.StartedAt.UnixMilli(), run.PID,
	)
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// Finish stores the outcome of a run
func (s *Store) Finish(ctx context.Context, run *Run) error {
	finished := time.Now()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}

	res, err := s.conn.ExecContext(ctx, `
		UPDATE runs SET status = ?, exit_code = ?, error = ?, lines = ?, finished_at = ?
		WHERE id = ?`,
		run.Status, run.ExitCode, run.Error, run.Lines, finished.UnixMilli(), run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to record run result: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, run.ID)
	}
	return nil
}

// Get returns a single run
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.conn.QueryRowContext(ctx, selectRuns+" WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

// List returns the most recent runs, newest first.
// An empty workspace lists runs across all workspaces.
func (s *Store) List(ctx context.Context, workspace string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := selectRuns
	args := []any{}
	if workspace != "" {
		query += " WHERE workspace = ?"
		args = append(args, workspace)
	}
	query += " ORDER BY started_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}

const selectRuns = `
	SELECT id, session_id, workspace, action, command, status, exit_code, error, lines, started_at, finished_at, pid
	FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run      Run
		started  int64
		finished sql.NullInt64
	)
	err := sc.Scan(&run.ID, &run.SessionID, &run.Workspace, &run.Action, &run.Command,
		&run.Status, &run.ExitCode, &run.Error, &run.Lines, &started, &finished, &run.PID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.StartedAt = time.UnixMilli(started)
	if finished.Valid {
		t := time.UnixMilli(finished.Int64)
		run.FinishedAt = &t
	}
	return &run, nil
}
