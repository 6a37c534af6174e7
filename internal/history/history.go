// Package history keeps a log of equipment cycles and mode changes in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sweeney/hvac-controller/internal/logic"
)

const driverName = "sqlite"

// timeLayout matches SQLite's own TIMESTAMP text so range filters compare
// correctly as strings.
const timeLayout = "2006-01-02 15:04:05"

// DefaultLimit caps List when no limit is given.
const DefaultLimit = 200

const schemaCycleEvents = `
CREATE TABLE IF NOT EXISTS cycle_events (
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    type TEXT NOT NULL,
    mode TEXT NOT NULL,
    source TEXT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    duration_s INTEGER NOT NULL DEFAULT 0,
    indoor INTEGER NOT NULL,
    target INTEGER NOT NULL
);
`

const schemaOccurredIndex = `
CREATE INDEX IF NOT EXISTS cycle_events_occurred_at ON cycle_events (occurred_at);
`

// Record is one stored event.
type Record struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Type       string    `json:"type"`
	Mode       string    `json:"mode"`
	Source     string    `json:"source"`
	Reason     string    `json:"reason,omitempty"`
	DurationS  int       `json:"duration_s,omitempty"`
	Indoor     int       `json:"indoor"`
	Target     int       `json:"target"`
}

// Log is the cycle event table.
type Log struct {
	db *sql.DB
}

// New wraps an already opened database.
func New(db *sql.DB) *Log {
	return &Log{db: db}
}

// Open opens or creates the database file and applies the schema.
func Open(path string) (*Log, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", strings.TrimSuffix(pragma, ";"), err)
		}
	}

	l := New(db)
	if err := l.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return l, nil
}

func (l *Log) ensureSchema() error {
	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range []string{schemaCycleEvents, schemaOccurredIndex} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}

// Close closes the database.
func (l *Log) Close() error {
	return l.db.Close()
}

// Append stores a controller event under a fresh id.
func (l *Log) Append(ctx context.Context, e logic.Event) error {
	at := e.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO cycle_events (id, occurred_at, type, mode, source, reason, duration_s, indoor, target)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.NewString(),
		at.UTC().Format(timeLayout),
		string(e.Type),
		e.Mode.String(),
		e.Source.String(),
		string(e.Reason),
		e.CycleSeconds,
		int(e.Indoor),
		int(e.Target),
	)
	if err != nil {
		return fmt.Errorf("insert cycle event: %w", err)
	}
	return nil
}

// List returns events in [from, to], newest first. Zero times leave that end
// open; limit <= 0 means DefaultLimit.
func (l *Log) List(ctx context.Context, from, to time.Time, limit int) ([]Record, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, from.UTC().Format(timeLayout))
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, to.UTC().Format(timeLayout))
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	q := `SELECT id, occurred_at, type, mode, source, reason, duration_s, indoor, target FROM cycle_events`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query cycle events: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, 32)
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.OccurredAt, &r.Type, &r.Mode, &r.Source, &r.Reason, &r.DurationS, &r.Indoor, &r.Target); err != nil {
			return nil, fmt.Errorf("scan cycle event: %w", err)
		}
		r.OccurredAt = r.OccurredAt.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read cycle events: %w", err)
	}
	return out, nil
}

// Prune deletes events older than before and reports how many went.
func (l *Log) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM cycle_events WHERE occurred_at < ?`, before.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune cycle events: %w", err)
	}
	return res.RowsAffected()
}
