package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "bgrun.toml")
	content := "base_dir = \"" + dir + "\"\n"
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCommandLifecycleLocal(t *testing.T) {
	ctx := context.Background()
	cfg := writeConfig(t)
	scope := t.TempDir()
	c := command{}

	err := c.Start(ctx, StartFlags{
		ConfigPath: cfg,
		Name:       "cli-proc",
		Cmd:        "printf 'hi\\n'; sleep 30",
		Scope:      scope,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Stop(ctx, StopFlags{ConfigPath: cfg, Name: "cli-proc", Scope: scope})
	})

	if err := c.Status(ctx, StatusFlags{ConfigPath: cfg, Scope: scope, JSON: true}); err != nil {
		t.Fatalf("status: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if err = c.Logs(ctx, LogsFlags{ConfigPath: cfg, Name: "cli-proc", Scope: scope, Lines: 5}); err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("logs: %v", err)
	}

	if err := c.Stop(ctx, StopFlags{ConfigPath: cfg, Name: "cli-proc", Scope: scope}); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := c.Stop(ctx, StopFlags{ConfigPath: cfg, Name: "cli-proc", Scope: scope}); err == nil {
		t.Fatal("second stop should report not found")
	}
}

func TestCommandStartValidation(t *testing.T) {
	ctx := context.Background()
	cfg := writeConfig(t)
	c := command{}
	err := c.Start(ctx, StartFlags{ConfigPath: cfg, Name: "", Cmd: "true", Scope: t.TempDir()})
	if err == nil {
		t.Fatal("expected error for empty name")
	}
	err = c.Start(ctx, StartFlags{ConfigPath: cfg, Name: "bad/name", Cmd: "true", Scope: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "name") {
		t.Fatalf("expected name error, got %v", err)
	}
}

func TestCommandBadConfigPath(t *testing.T) {
	c := command{}
	err := c.Status(context.Background(), StatusFlags{ConfigPath: filepath.Join(t.TempDir(), "nope.toml")})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}
