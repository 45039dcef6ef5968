package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/bgrun/internal/history"
	"github.com/loykin/bgrun/internal/store"
)

func TestSQLiteSink_Integration(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	sink, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	ctx := context.Background()
	rec := store.Record{
		Name:      "dev-server",
		PID:       12345,
		Command:   "npm run dev",
		Scope:     "/proj",
		StartedAt: time.Now().UTC(),
	}

	if err := sink.Send(ctx, history.Event{
		Type: history.EventStart, OccurredAt: time.Now().UTC(), Record: rec,
	}); err != nil {
		t.Fatalf("Failed to send start event: %v", err)
	}
	if err := sink.Send(ctx, history.Event{
		Type: history.EventStop, OccurredAt: time.Now().UTC(), Record: rec,
	}); err != nil {
		t.Fatalf("Failed to send stop event: %v", err)
	}

	var count int
	row := sink.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM process_history WHERE name = ? AND scope = ?;`, "dev-server", "/proj")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("Failed to count events: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 events, got %d", count)
	}
}

func TestSQLiteSink_DSNPrefix(t *testing.T) {
	sink, err := New("sqlite://:memory:")
	if err != nil {
		t.Fatalf("sqlite:// prefix not handled: %v", err)
	}
	_ = sink.Close()
}

func TestSQLiteSink_EmptyDSN(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}
