package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/loykin/bgrun/internal/history"
	"github.com/loykin/bgrun/internal/store"
)

func setupClickHouseContainer(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()

	clickHouseContainer, err := clickhouse.Run(ctx,
		"clickhouse/clickhouse-server:24.3.2.23",
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword(""),
		clickhouse.WithDatabase("default"),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/ping").
				WithPort("8123/tcp").
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("Failed to start ClickHouse container: %v", err)
	}

	host, err := clickHouseContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := clickHouseContainer.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("Failed to get mapped port: %v", err)
	}
	return clickHouseContainer, host + ":" + port.Port()
}

func TestClickHouseSink_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, addr := setupClickHouseContainer(ctx, t)
	defer func() { _ = container.Terminate(ctx) }()

	sink, err := New(Options{Addr: addr, Table: "process_history_test"})
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer func() { _ = sink.Close() }()

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

	var count uint64
	row := sink.conn.QueryRow(ctx, `SELECT COUNT(*) FROM process_history_test WHERE name = 'dev-server'`)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("Failed to count events: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 events, got %d", count)
	}
}
