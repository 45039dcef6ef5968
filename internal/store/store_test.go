package store

import (
	"context"
	"testing"
)

// backends that must behave identically for the generic contract
func backends(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{
		"fs":     NewFSStore(t.TempDir()),
		"memory": NewMemoryStore(),
		"sqlite": sq,
	}
}

func TestStoreContract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := s.Get(ctx, "nope", "/proj"); err != ErrRecordNotFound {
				t.Fatalf("get absent: want ErrRecordNotFound, got %v", err)
			}
			rec := testRecord("job", "/proj")
			if err := s.Put(ctx, rec); err != nil {
				t.Fatalf("put: %v", err)
			}
			recs, err := s.List(ctx, "/proj")
			if err != nil || len(recs) != 1 {
				t.Fatalf("list: recs=%v err=%v", recs, err)
			}
			// Same name in an unrelated scope coexists.
			if err := s.Put(ctx, testRecord("job", "/elsewhere")); err != nil {
				t.Fatalf("put second scope: %v", err)
			}
			recs, _ = s.List(ctx, "/proj")
			if len(recs) != 1 {
				t.Fatalf("scope leak: %v", recs)
			}
			if err := s.Remove(ctx, "job", "/proj"); err != nil {
				t.Fatalf("remove: %v", err)
			}
			if err := s.Remove(ctx, "job", "/proj"); err != nil {
				t.Fatalf("remove idempotency: %v", err)
			}
			recs, _ = s.List(ctx, "/elsewhere")
			if len(recs) != 1 {
				t.Fatalf("unrelated scope affected by remove: %v", recs)
			}
		})
	}
}

func TestFactory(t *testing.T) {
	s, err := New(Config{Type: "memory"})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	_ = s.Close()

	s, err = New(Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("default fs: %v", err)
	}
	if _, ok := s.(*FSStore); !ok {
		t.Fatalf("default backend should be fs, got %T", s)
	}
	_ = s.Close()

	if _, err := New(Config{Type: "bogus"}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := New(Config{Type: "fs"}); err == nil {
		t.Fatalf("fs without base_dir must fail")
	}
}

func TestRemoveSurfacesBackendFailure(t *testing.T) {
	ctx := context.Background()
	sq, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	if err := sq.Put(ctx, testRecord("job", "/proj")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := sq.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// The record is still there; a failed lookup must not masquerade as
	// a successful removal.
	if err := sq.Remove(ctx, "job", "/proj"); err == nil {
		t.Fatal("remove on closed backend reported success")
	}
}
