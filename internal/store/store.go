// Package store provides the durable local cache for DeenTracker.
//
// The cache is an embedded SQLite database holding a full mirror of the
// completion map plus the queue of pending edits awaiting delivery to the
// remote sheet. It survives process restarts, so a toggle recorded just
// before an abrupt exit is never lost.
//
// The database runs in embedded mode with WAL so the daemon, the CLI, and the
// dashboard can read concurrently while the sync engine writes.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/afitree-ship-it/deentracker/internal/checklist"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Store wraps the SQLite connection with checklist-specific operations.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates a new database connection at the specified path.
//
// If the database doesn't exist it is created; call InitSchema before first
// use. The caller MUST call Close() when done.
//
// Example:
//
//	st, err := store.Open("~/.deentracker/cache.db")
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
func Open(path string) (*Store, error) {
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		path = "file:" + path
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	st := &Store{conn: conn, path: path}

	// WAL for concurrent readers during sync writes.
	if _, err := st.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := st.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return st, nil
}

// Close closes the database connection after checkpointing the WAL.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close cache database: %w", err)
	}

	s.conn = nil
	return nil
}

// InitSchema creates the completion and pending_edits tables if needed.
// Idempotent; safe to call on every startup.
func (s *Store) InitSchema() error {
	return s.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the schema with context support.
func (s *Store) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS completion (
		date TEXT NOT NULL,
		member_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		value INTEGER NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (date, member_id, task_id)
	);

	CREATE TABLE IF NOT EXISTS pending_edits (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		member_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		value INTEGER NOT NULL,
		logged_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_completion_date ON completion(date);
	CREATE INDEX IF NOT EXISTS idx_completion_member ON completion(member_id);
	CREATE INDEX IF NOT EXISTS idx_pending_logged ON pending_edits(logged_at);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// SaveCell upserts a single completion cell.
func (s *Store) SaveCell(date, memberID, taskID string, value bool) error {
	return s.SaveCellContext(context.Background(), date, memberID, taskID, value)
}

// SaveCellContext upserts a single completion cell with context support.
func (s *Store) SaveCellContext(ctx context.Context, date, memberID, taskID string, value bool) error {
	query := `
	INSERT INTO completion (date, member_id, task_id, value, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(date, member_id, task_id) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at
	`

	_, err := s.conn.ExecContext(ctx, query,
		date, memberID, taskID, boolToInt(value), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save cell %s/%s/%s: %w", date, memberID, taskID, err)
	}
	return nil
}

// ReplaceCompletion atomically replaces the entire completion mirror with the
// given map. Used after a reconciled pull so the cache matches the merged view.
func (s *Store) ReplaceCompletion(m checklist.CompletionMap) error {
	return s.ReplaceCompletionContext(context.Background(), m)
}

// ReplaceCompletionContext replaces the completion mirror with context support.
func (s *Store) ReplaceCompletionContext(ctx context.Context, m checklist.CompletionMap) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM completion"); err != nil {
		return fmt.Errorf("failed to clear completion mirror: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	insert := `
	INSERT INTO completion (date, member_id, task_id, value, updated_at)
	VALUES (?, ?, ?, ?, ?)
	`

	for date, day := range m {
		for memberID, member := range day {
			for taskID, value := range member {
				if _, err := tx.ExecContext(ctx, insert, date, memberID, taskID, boolToInt(value), now); err != nil {
					return fmt.Errorf("failed to insert cell %s/%s/%s: %w", date, memberID, taskID, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit completion mirror: %w", err)
	}
	return nil
}

// LoadCompletion reads the full completion mirror.
func (s *Store) LoadCompletion() (checklist.CompletionMap, error) {
	return s.LoadCompletionContext(context.Background())
}

// LoadCompletionContext reads the completion mirror with context support.
func (s *Store) LoadCompletionContext(ctx context.Context) (checklist.CompletionMap, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT date, member_id, task_id, value FROM completion")
	if err != nil {
		return nil, fmt.Errorf("failed to query completion mirror: %w", err)
	}
	defer rows.Close()

	m := make(checklist.CompletionMap)
	for rows.Next() {
		var date, memberID, taskID string
		var value int
		if err := rows.Scan(&date, &memberID, &taskID, &value); err != nil {
			return nil, fmt.Errorf("failed to scan completion cell: %w", err)
		}
		m.Set(date, memberID, taskID, value != 0)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating completion cells: %w", err)
	}
	return m, nil
}

// LoadState reads the completion mirror and the pending edit queue together,
// the shape the sync engine wants at startup.
func (s *Store) LoadState() (checklist.CompletionMap, []checklist.Edit, error) {
	return s.LoadStateContext(context.Background())
}

// LoadStateContext reads the full persisted state with context support.
func (s *Store) LoadStateContext(ctx context.Context) (checklist.CompletionMap, []checklist.Edit, error) {
	m, err := s.LoadCompletionContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	edits, err := s.PendingEditsContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	return m, edits, nil
}

// AppendEdit durably records a pending edit.
func (s *Store) AppendEdit(edit checklist.Edit) error {
	return s.AppendEditContext(context.Background(), edit)
}

// AppendEditContext records a pending edit with context support.
func (s *Store) AppendEditContext(ctx context.Context, edit checklist.Edit) error {
	if err := edit.Validate(); err != nil {
		return fmt.Errorf("invalid edit: %w", err)
	}

	query := `
	INSERT INTO pending_edits (id, date, member_id, task_id, value, logged_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.conn.ExecContext(ctx, query,
		edit.ID, edit.Date, edit.MemberID, edit.TaskID,
		boolToInt(edit.Value), edit.LoggedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to append edit %s: %w", edit.ID, err)
	}
	return nil
}

// PendingEdits returns all pending edits ordered by logged time.
func (s *Store) PendingEdits() ([]checklist.Edit, error) {
	return s.PendingEditsContext(context.Background())
}

// PendingEditsContext returns pending edits with context support.
func (s *Store) PendingEditsContext(ctx context.Context) ([]checklist.Edit, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT id, date, member_id, task_id, value, logged_at
	FROM pending_edits
	ORDER BY logged_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending edits: %w", err)
	}
	defer rows.Close()

	var edits []checklist.Edit
	for rows.Next() {
		var e checklist.Edit
		var value int
		var loggedAt string
		if err := rows.Scan(&e.ID, &e.Date, &e.MemberID, &e.TaskID, &value, &loggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending edit: %w", err)
		}
		e.Value = value != 0
		t, err := time.Parse(time.RFC3339Nano, loggedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse logged_at for edit %s: %w", e.ID, err)
		}
		e.LoggedAt = t
		edits = append(edits, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending edits: %w", err)
	}
	return edits, nil
}

// DeleteEdits removes confirmed edits from the queue.
// Unknown IDs are ignored (idempotent).
func (s *Store) DeleteEdits(ids []string) error {
	return s.DeleteEditsContext(context.Background(), ids)
}

// DeleteEditsContext removes confirmed edits with context support.
func (s *Store) DeleteEditsContext(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "DELETE FROM pending_edits WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to delete edit %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit edit deletion: %w", err)
	}
	return nil
}

// PendingCount returns the number of edits awaiting delivery.
func (s *Store) PendingCount() (int, error) {
	return s.PendingCountContext(context.Background())
}

// PendingCountContext returns the pending edit count with context support.
func (s *Store) PendingCountContext(ctx context.Context) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM pending_edits").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending edits: %w", err)
	}
	return count, nil
}

// CellCount returns the number of recorded completion cells.
func (s *Store) CellCount() (int, error) {
	return s.CellCountContext(context.Background())
}

// CellCountContext returns the recorded cell count with context support.
func (s *Store) CellCountContext(ctx context.Context) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM completion").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completion cells: %w", err)
	}
	return count, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
