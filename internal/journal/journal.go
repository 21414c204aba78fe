// ABOUTME: SQLite-backed append-only journal of orchestrator lifecycle events.
// ABOUTME: Provides an audit trail per task and agent with time-based expiry.

package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/DansiDanutz/zmart-orchestrator/internal/events"
)

// ErrNotFound is returned when a requested entry does not exist.
var ErrNotFound = errors.New("not found")

// Entry is one persisted lifecycle event.
type Entry struct {
	ID        string
	Type      events.Type
	TaskID    string
	AgentID   string
	Detail    string
	Timestamp time.Time
}

// Journal persists lifecycle events to SQLite. It is an audit trail only;
// the orchestrator never reads it back to recover task state.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates a journal at the given path. The schema is automatically
// created if it doesn't exist. Parent directories are created if needed.
// Use ":memory:" for an ephemeral journal.
func Open(path string) (*Journal, error) {
	logger := slog.Default().With("component", "journal")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	j := &Journal{db: db, logger: logger}
	if err := j.createSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return j, nil
}

// createSchema creates the journal table if it does not exist.
func (j *Journal) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS lifecycle_events (
			id         TEXT PRIMARY KEY,
			type       TEXT NOT NULL,
			task_id    TEXT,
			agent_id   TEXT,
			detail     TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_lifecycle_events_task_id
			ON lifecycle_events(task_id);

		CREATE INDEX IF NOT EXISTS idx_lifecycle_events_created_at
			ON lifecycle_events(created_at);
	`
	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("creating journal schema: %w", err)
	}
	return nil
}

// Append records one lifecycle event.
func (j *Journal) Append(ctx context.Context, event events.Event) error {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO lifecycle_events (id, type, task_id, agent_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(),
		string(event.Type),
		event.TaskID,
		event.AgentID,
		event.Detail,
		ts.UTC(),
	)
	if err != nil {
		return fmt.Errorf("appending lifecycle event: %w", err)
	}
	return nil
}

// ListByTask returns all entries for a task, oldest first.
func (j *Journal) ListByTask(ctx context.Context, taskID string) ([]*Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, type, task_id, agent_id, detail, created_at
		FROM lifecycle_events
		WHERE task_id = ?
		ORDER BY created_at ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying task events: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Recent returns the newest entries, newest first, up to limit.
func (j *Journal) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, type, task_id, agent_id, detail, created_at
		FROM lifecycle_events
		ORDER BY created_at DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent events: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// DeleteExpired removes entries older than the given time and returns how
// many were deleted.
func (j *Journal) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `
		DELETE FROM lifecycle_events WHERE created_at < ?`,
		before.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting expired events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted events: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// scanEntries reads all rows into Entry values.
func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var out []*Entry
	for rows.Next() {
		var e Entry
		var typ string
		if err := rows.Scan(&e.ID, &typ, &e.TaskID, &e.AgentID, &e.Detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		e.Type = events.Type(typ)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event rows: %w", err)
	}
	return out, nil
}
