// Package store keeps the gate's journal: every access decision and the display names of classifier labels.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresmejia3/faceguard/internal/types"
)

// DefaultPath is the local journal used when no DSN is configured
const DefaultPath = "faceguard.db"

// Journal is implemented by the PostgreSQL and SQLite backends
type Journal interface {
	RecordEvent(ctx context.Context, e types.AccessEvent) error
	ListEvents(ctx context.Context, limit int) ([]types.AccessEvent, error)
	SetLabel(ctx context.Context, label int, name string) error
	ListLabels(ctx context.Context) ([]types.LabelName, error)
	Reset(ctx context.Context) error
	Close(ctx context.Context)
}

// Open picks the backend from the DSN: postgres:// or postgresql:// URLs go to PostgreSQL,
// anything else is a SQLite file path (an optional sqlite:// prefix is stripped).
func Open(ctx context.Context, dsn string) (Journal, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		pg, err := NewPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}

	path := strings.TrimPrefix(dsn, "sqlite://")
	if path == "" {
		path = DefaultPath
	}
	lite, err := NewSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	return lite, nil
}

// LabelNames returns the label to name map for display
func LabelNames(ctx context.Context, j Journal) (map[int]string, error) {
	labels, err := j.ListLabels(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int]string, len(labels))
	for _, l := range labels {
		names[l.Label] = l.Name
	}
	return names, nil
}

// ValidateLimit rejects event page sizes the backends would disagree on
func ValidateLimit(limit int) error {
	if limit < 1 {
		return fmt.Errorf("event limit must be at least 1, got %d", limit)
	}
	return nil
}

func validateLabel(label int, name string) error {
	if label < 0 {
		return fmt.Errorf("label index must not be negative, got %d", label)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("label %d needs a non-empty name", label)
	}
	return nil
}
