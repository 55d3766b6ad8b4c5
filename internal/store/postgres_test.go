package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/andresmejia3/faceguard/internal/types"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestPostgresIntegration runs the journal against a real Postgres container.
// It requires Docker to be running.
func TestPostgresIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Explicitly check for Docker availability and fail hard if missing
	// We wrap this in a function to recover from panics inside testcontainers (e.g. socket not found)
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("testcontainers panicked: %v", r)
			}
		}()
		_, err = testcontainers.NewDockerClientWithOpts(ctx)
		return
	}()
	if err != nil {
		t.Fatalf("Docker not available, cannot run integration test: %v", err)
	}

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("faceguard_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		testcontainers.WithLogger(noopLogger{}),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate container: %v", err)
		}
	}()

	// Get Connection String
	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	// Open dispatches postgres:// URLs to the pgx backend (runs migrations)
	j, err := Open(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect to store: %v", err)
	}
	defer j.Close(ctx)
	if _, ok := j.(*Postgres); !ok {
		t.Fatalf("Expected *Postgres journal, got %T", j)
	}

	// --- Test Scenarios ---

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	granted := event(types.DecisionGranted, 2, 0.97, t0)
	denied := event(types.DecisionDenied, 1, 0.42, t0.Add(time.Second))
	for _, e := range []types.AccessEvent{granted, denied} {
		if err := j.RecordEvent(ctx, e); err != nil {
			t.Fatalf("RecordEvent failed: %v", err)
		}
	}

	events, err := j.ListEvents(ctx, 10)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].ID != denied.ID || events[1].ID != granted.ID {
		t.Errorf("Expected newest first, got %s then %s", events[0].ID, events[1].ID)
	}
	if !events[1].At.Equal(t0) || events[1].Decision != types.DecisionGranted || events[1].Label != 2 {
		t.Errorf("Granted event did not round-trip: %+v", events[1])
	}
	if _, err := j.ListEvents(ctx, -1); err == nil {
		t.Error("Expected a negative limit to be rejected")
	}

	if err := j.SetLabel(ctx, 2, "Dana"); err != nil {
		t.Fatalf("SetLabel failed: %v", err)
	}
	if err := j.SetLabel(ctx, 2, "Dana K."); err != nil {
		t.Fatalf("SetLabel (rename) failed: %v", err)
	}
	labels, err := j.ListLabels(ctx)
	if err != nil {
		t.Fatalf("ListLabels failed: %v", err)
	}
	if len(labels) != 1 || labels[0].Name != "Dana K." {
		t.Errorf("Expected one label named 'Dana K.', got %+v", labels)
	}

	if err := j.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
}

type noopLogger struct{}

func (n noopLogger) Printf(format string, v ...interface{}) {}
