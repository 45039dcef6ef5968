package factory

import (
	"path/filepath"
	"testing"
)

func TestNewSinkFromDSN_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.db")
	for _, dsn := range []string{path, "sqlite://" + path, "sqlite://:memory:"} {
		sink, err := NewSinkFromDSN(dsn)
		if err != nil {
			t.Fatalf("dsn %q: %v", dsn, err)
		}
		_ = sink.Close()
	}
}

func TestNewSinkFromDSN_Errors(t *testing.T) {
	if _, err := NewSinkFromDSN(""); err == nil {
		t.Fatalf("empty DSN must fail")
	}
	if _, err := NewSinkFromDSN("redis://localhost:6379"); err == nil {
		t.Fatalf("unsupported scheme must fail")
	}
}
