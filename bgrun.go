// Package bgrun tracks long-running background processes per project
// directory. Children are launched detached from the controller, records
// live in a pluggable store, and liveness is re-derived from the OS on
// every read, so any controller instance can inspect or stop what another
// one started.
package bgrun

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	cfg "github.com/loykin/bgrun/internal/config"
	"github.com/loykin/bgrun/internal/history"
	hfactory "github.com/loykin/bgrun/internal/history/factory"
	"github.com/loykin/bgrun/internal/manager"
	"github.com/loykin/bgrun/internal/metrics"
	"github.com/loykin/bgrun/internal/process"
	iapi "github.com/loykin/bgrun/internal/server"
	"github.com/loykin/bgrun/internal/status"
	"github.com/loykin/bgrun/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Spec = process.Spec

type Status = manager.Status

type Record = store.Record

type Summary = status.Summary

type HistorySink = history.Sink

type Config = cfg.FileConfig

// Manager is a thin facade over internal/manager.Manager.
// It provides a stable public API for embedding.

type Manager struct{ inner *manager.Manager }

// New creates a Manager with a filesystem record store rooted at baseDir.
func New(baseDir string) *Manager {
	return &Manager{inner: manager.New(store.NewFSStore(baseDir), baseDir)}
}

// NewFromConfig builds a Manager from a loaded config: store backend,
// launch environment, history sinks, probe timeout, and log scan bounds.
func NewFromConfig(fc Config) (*Manager, error) {
	st, err := store.New(fc.Store)
	if err != nil {
		return nil, err
	}
	m := manager.New(st, fc.BaseDir)
	if fc.ProbeTimeout > 0 {
		m.SetProbeTimeout(fc.ProbeTimeout)
	}
	if fc.MaxLogScanBytes > 0 {
		m.SetMaxLogScanBytes(fc.MaxLogScanBytes)
	}
	if fc.UseOSEnv || len(fc.Env) > 0 || len(fc.EnvFiles) > 0 {
		env, err := fc.GlobalEnv()
		if err != nil {
			return nil, err
		}
		m.SetBaseEnv(env)
	}
	if len(fc.History.Sinks) > 0 {
		sinks := make([]history.Sink, 0, len(fc.History.Sinks))
		for _, dsn := range fc.History.Sinks {
			s, err := hfactory.NewSinkFromDSN(dsn)
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, s)
		}
		m.SetHistorySinks(sinks...)
	}
	return &Manager{inner: m}, nil
}

func (m *Manager) SetLogger(lg *slog.Logger)         { m.inner.SetLogger(lg) }
func (m *Manager) SetHistorySinks(ss ...HistorySink) { m.inner.SetHistorySinks(ss...) }
func (m *Manager) SetProbeTimeout(d time.Duration)   { m.inner.SetProbeTimeout(d) }
func (m *Manager) SetMaxLogScanBytes(n int64)        { m.inner.SetMaxLogScanBytes(n) }
func (m *Manager) SetBaseEnv(env []string)           { m.inner.SetBaseEnv(env) }

func (m *Manager) Start(ctx context.Context, s Spec) (Record, error) { return m.inner.Start(ctx, s) }
func (m *Manager) Stop(ctx context.Context, name, scope string) error {
	return m.inner.Stop(ctx, name, scope)
}
func (m *Manager) List(ctx context.Context, scope string) ([]Status, error) {
	return m.inner.List(ctx, scope)
}
func (m *Manager) Logs(ctx context.Context, name, scope string, maxLines int) (string, error) {
	return m.inner.Logs(ctx, name, scope, maxLines)
}

// Summary builds the rendered status projection for scope.
func (m *Manager) Summary(ctx context.Context, scope string) (Summary, error) {
	return status.NewProjector(m.inner).Summary(ctx, scope)
}

// Errors callers can test with errors.Is.
var (
	ErrAlreadyRunning = manager.ErrAlreadyRunning
	ErrSpawnFailed    = manager.ErrSpawnFailed
	ErrNotFound       = manager.ErrNotFound
	ErrLogNotFound    = manager.ErrLogNotFound
)

func LoadConfig(path string) (Config, error) {
	return cfg.Load(path)
}

// ServerOption customizes the HTTP API server.
type ServerOption = iapi.Option

// WithMetricsEndpoint exposes the Prometheus handler at /metrics on the
// API server. Pair with RegisterMetricsDefault.
var WithMetricsEndpoint = iapi.WithMetricsEndpoint

// NewHTTPServer starts an HTTP server exposing the internal API using the given manager.
func NewHTTPServer(addr, basePath string, m *Manager, opts ...ServerOption) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, m.inner, opts...)
}

// NewSinkFromDSN builds a history sink from a DSN string
// (sqlite://, postgres://, clickhouse://, or a bare file path).
func NewSinkFromDSN(dsn string) (HistorySink, error) {
	return hfactory.NewSinkFromDSN(dsn)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
