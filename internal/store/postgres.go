package store

import (
	"context"
	"fmt"

	"github.com/andresmejia3/faceguard/internal/types"
	"github.com/jackc/pgx/v5"
)

// Postgres manages the PostgreSQL connection.
type Postgres struct {
	conn *pgx.Conn
}

// NewPostgres establishes a connection to the database and ensures the schema is initialized.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initPostgresSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Postgres{conn: conn}, nil
}

// initPostgresSchema creates the necessary tables if they don't exist (Auto-Migration).
func initPostgresSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS access_events (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			at TIMESTAMPTZ NOT NULL,
			decision TEXT NOT NULL,
			label INT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			faces INT NOT NULL,
			model_id TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS label_names (
			label INT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS access_events_at_idx ON access_events (at);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Postgres) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// RecordEvent appends one decision to the journal.
func (s *Postgres) RecordEvent(ctx context.Context, e types.AccessEvent) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO access_events (id, at, decision, label, confidence, faces, model_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.At, string(e.Decision), e.Label, e.Confidence, e.Faces, e.ModelID)
	return err
}

// ListEvents returns the most recent events, newest first.
func (s *Postgres) ListEvents(ctx context.Context, limit int) ([]types.AccessEvent, error) {
	if err := ValidateLimit(limit); err != nil {
		return nil, err
	}
	rows, err := s.conn.Query(ctx, `
		SELECT id, at, decision, label, confidence, faces, model_id
		FROM access_events ORDER BY seq DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []types.AccessEvent
	for rows.Next() {
		var e types.AccessEvent
		var decision string
		if err := rows.Scan(&e.ID, &e.At, &decision, &e.Label, &e.Confidence, &e.Faces, &e.ModelID); err != nil {
			return nil, err
		}
		e.Decision = types.Decision(decision)
		e.At = e.At.UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

// SetLabel names a classifier label index, replacing any previous name.
func (s *Postgres) SetLabel(ctx context.Context, label int, name string) error {
	if err := validateLabel(label, name); err != nil {
		return err
	}
	_, err := s.conn.Exec(ctx, `
		INSERT INTO label_names (label, name, created_at) VALUES ($1, $2, NOW())
		ON CONFLICT (label) DO UPDATE SET name = EXCLUDED.name
	`, label, name)
	return err
}

// ListLabels returns every named label in index order.
func (s *Postgres) ListLabels(ctx context.Context) ([]types.LabelName, error) {
	rows, err := s.conn.Query(ctx, "SELECT label, name, created_at FROM label_names ORDER BY label ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labels []types.LabelName
	for rows.Next() {
		var l types.LabelName
		if err := rows.Scan(&l.Label, &l.Name, &l.CreatedAt); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Postgres) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		DROP TABLE IF EXISTS access_events CASCADE;
		DROP TABLE IF EXISTS label_names CASCADE;
	`)
	return err
}
