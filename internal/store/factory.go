package store

import (
	"fmt"
	"sync"
)

// Config selects and parameterizes a record store backend.
type Config struct {
	Type string `toml:"type" mapstructure:"type"` // "fs" (default), "memory", "sqlite", "postgres"

	// BaseDir is the artifact root for the fs backend and for log files
	// regardless of backend.
	BaseDir string `toml:"base_dir" mapstructure:"base_dir"`

	// Path is the database file for the sqlite backend.
	Path string `toml:"path,omitempty" mapstructure:"path"`

	// DSN is the connection string for the postgres backend.
	DSN string `toml:"dsn,omitempty" mapstructure:"dsn"`
}

// Builder creates a store from config.
type Builder func(cfg Config) (Store, error)

var (
	buildersMu sync.RWMutex
	builders   = map[string]Builder{}
)

func init() {
	RegisterStoreType("fs", func(cfg Config) (Store, error) {
		if cfg.BaseDir == "" {
			return nil, fmt.Errorf("fs store requires base_dir")
		}
		return NewFSStore(cfg.BaseDir), nil
	})
	RegisterStoreType("memory", func(_ Config) (Store, error) {
		return NewMemoryStore(), nil
	})
	RegisterStoreType("sqlite", func(cfg Config) (Store, error) {
		return NewSQLiteStore(cfg.Path)
	})
	RegisterStoreType("postgres", func(cfg Config) (Store, error) {
		return NewPostgreSQLStore(cfg.DSN)
	})
	RegisterStoreType("postgresql", func(cfg Config) (Store, error) {
		return NewPostgreSQLStore(cfg.DSN)
	})
}

// RegisterStoreType registers a backend builder. Later registrations win,
// which lets embedders override the built-ins.
func RegisterStoreType(storeType string, b Builder) {
	buildersMu.Lock()
	builders[storeType] = b
	buildersMu.Unlock()
}

// New creates a store from cfg. An empty Type selects the fs backend.
func New(cfg Config) (Store, error) {
	t := cfg.Type
	if t == "" {
		t = "fs"
	}
	buildersMu.RLock()
	b, ok := builders[t]
	buildersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported store type: %s (supported: %v)", t, SupportedTypes())
	}
	return b(cfg)
}

// SupportedTypes lists registered backend names.
func SupportedTypes() []string {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	types := make([]string, 0, len(builders))
	for t := range builders {
		types = append(types, t)
	}
	return types
}
