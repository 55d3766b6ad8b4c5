package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresmejia3/faceguard/internal/types"
	_ "modernc.org/sqlite"
)

// timeLayout sorts lexically in UTC
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite is the local single-file journal.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the journal file at path and ensures the schema.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer; the gate records from a single goroutine anyway
	db.SetMaxOpenConns(1)

	if err := initSQLiteSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func initSQLiteSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS access_events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			at TEXT NOT NULL,
			decision TEXT NOT NULL,
			label INTEGER NOT NULL,
			confidence REAL NOT NULL,
			faces INTEGER NOT NULL,
			model_id TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS label_names (
			label INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS access_events_at_idx ON access_events (at);
	`)
	return err
}

func (s *SQLite) Close(context.Context) {
	s.db.Close()
}

func (s *SQLite) RecordEvent(ctx context.Context, e types.AccessEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO access_events (id, at, decision, label, confidence, faces, model_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.At.UTC().Format(timeLayout), string(e.Decision), e.Label, e.Confidence, e.Faces, e.ModelID)
	return err
}

func (s *SQLite) ListEvents(ctx context.Context, limit int) ([]types.AccessEvent, error) {
	if err := ValidateLimit(limit); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, at, decision, label, confidence, faces, model_id
		FROM access_events ORDER BY seq DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []types.AccessEvent
	for rows.Next() {
		var e types.AccessEvent
		var at, decision string
		if err := rows.Scan(&e.ID, &at, &decision, &e.Label, &e.Confidence, &e.Faces, &e.ModelID); err != nil {
			return nil, err
		}
		if e.At, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("event %s: bad timestamp %q: %w", e.ID, at, err)
		}
		e.Decision = types.Decision(decision)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *SQLite) SetLabel(ctx context.Context, label int, name string) error {
	if err := validateLabel(label, name); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO label_names (label, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT (label) DO UPDATE SET name = excluded.name
	`, label, name, time.Now().UTC().Format(timeLayout))
	return err
}

func (s *SQLite) ListLabels(ctx context.Context) ([]types.LabelName, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT label, name, created_at FROM label_names ORDER BY label ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labels []types.LabelName
	for rows.Next() {
		var l types.LabelName
		var created string
		if err := rows.Scan(&l.Label, &l.Name, &created); err != nil {
			return nil, err
		}
		if l.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("label %d: bad timestamp %q: %w", l.Label, created, err)
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

func (s *SQLite) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DROP TABLE IF EXISTS access_events;
		DROP TABLE IF EXISTS label_names;
	`)
	return err
}
