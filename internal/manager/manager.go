// Package manager orchestrates the process registry: it launches detached
// children, keeps their records in a store, re-derives liveness on every
// read, and serves bounded log views. There is no supervision loop — the
// children are decoupled from the controller's lifetime, and the record
// lifecycle is simply absent -> running -> absent.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/loykin/bgrun/internal/detector"
	"github.com/loykin/bgrun/internal/history"
	"github.com/loykin/bgrun/internal/logtail"
	"github.com/loykin/bgrun/internal/metrics"
	"github.com/loykin/bgrun/internal/process"
	"github.com/loykin/bgrun/internal/store"
)

// Status is the per-process view returned by List. Running is re-derived
// from the OS at call time, never cached: the on-disk record cannot observe
// process death.
type Status struct {
	Name      string    `json:"name"`
	PID       int       `json:"pid"`
	Running   bool      `json:"running"`
	Scope     string    `json:"scope"`
	Command   string    `json:"command"`
	LogPath   string    `json:"log_path"`
	StartedAt time.Time `json:"started_at"`
	Ports     []int     `json:"ports,omitempty"` // listening TCP ports; empty on probe failure
}

// Manager starts, stops, and inspects tracked processes.
type Manager struct {
	st      store.Store
	baseDir string

	mu           sync.Mutex
	histSinks    []history.Sink
	logger       *slog.Logger
	probeTimeout time.Duration
	maxScanBytes int64
	baseEnv      []string
}

func New(st store.Store, baseDir string) *Manager {
	return &Manager{
		st:           st,
		baseDir:      baseDir,
		logger:       slog.Default(),
		probeTimeout: detector.DefaultPortScanTimeout,
		maxScanBytes: logtail.DefaultMaxScanBytes,
	}
}

// SetHistorySinks configures lifecycle event sinks. Nil or empty clears them.
func (m *Manager) SetHistorySinks(sinks ...history.Sink) {
	m.mu.Lock()
	m.histSinks = append([]history.Sink(nil), sinks...)
	m.mu.Unlock()
}

func (m *Manager) SetLogger(lg *slog.Logger) {
	if lg == nil {
		return
	}
	m.mu.Lock()
	m.logger = lg
	m.mu.Unlock()
}

// SetBaseEnv sets the environment launched children start from, replacing
// the controller's inherited environment. Per-spec Env entries still append
// after it. Empty restores inheritance.
func (m *Manager) SetBaseEnv(env []string) {
	m.mu.Lock()
	m.baseEnv = append([]string(nil), env...)
	m.mu.Unlock()
}

// SetProbeTimeout bounds each port scan during List.
func (m *Manager) SetProbeTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.probeTimeout = d
	m.mu.Unlock()
}

// SetMaxLogScanBytes bounds how far back Logs will scan a large file.
func (m *Manager) SetMaxLogScanBytes(n int64) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.maxScanBytes = n
	m.mu.Unlock()
}

// Start launches the spec's command detached and records it. The uniqueness
// check covers everything visible from the scope, ancestor records included,
// so one listing never shows the same name twice. The check is advisory:
// two controllers racing the same name may both pass it. That window is
// accepted for an interactive tool; this is not a lock.
func (m *Manager) Start(ctx context.Context, spec process.Spec) (store.Record, error) {
	if err := spec.Validate(); err != nil {
		return store.Record{}, err
	}
	scope, err := normalizeScope(spec.Scope)
	if err != nil {
		return store.Record{}, err
	}
	spec.Scope = scope

	if existing, err := m.st.Get(ctx, spec.Name, scope); err == nil {
		if detector.PidAlive(existing.PID) {
			return store.Record{}, fmt.Errorf("%w: %q (pid %d)", ErrAlreadyRunning, spec.Name, existing.PID)
		}
		// Stale record: the process died since it was written. Reap it and
		// let the new launch take the name.
		m.log().Debug("reaping stale record", "name", spec.Name, "pid", existing.PID)
		if err := m.st.Remove(ctx, spec.Name, scope); err != nil {
			return store.Record{}, fmt.Errorf("reap stale record: %w", err)
		}
	}

	logPath := store.LogFile(m.baseDir, scope, spec.Name)
	pid, err := process.Launch(spec, logPath, m.launchEnv())
	if err != nil {
		metrics.IncSpawnFailure(spec.Name)
		return store.Record{}, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	rec := store.Record{
		Name:      spec.Name,
		PID:       pid,
		Command:   spec.Command,
		WorkDir:   spec.WorkDir,
		Scope:     scope,
		LogPath:   logPath,
		StartedAt: time.Now().UTC(),
	}
	if err := m.st.Put(ctx, rec); err != nil {
		// No record may survive a failed start; take the child down with it.
		process.Terminate(pid)
		return store.Record{}, fmt.Errorf("persist record: %w", err)
	}

	m.log().Info("started process", "name", rec.Name, "pid", rec.PID, "scope", rec.Scope)
	metrics.IncStart(rec.Name)
	m.sendEvent(history.EventStart, rec)
	return rec, nil
}

// Stop removes the record for name and sends one best-effort SIGTERM to the
// child's process group. Record removal is unconditional: it happens even if
// the process ignores the signal or is already gone. The log file stays
// behind. There is no SIGKILL escalation and no wait for exit.
func (m *Manager) Stop(ctx context.Context, name, scope string) error {
	scope, err := normalizeScope(scope)
	if err != nil {
		return err
	}
	rec, err := m.st.Get(ctx, name, scope)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return fmt.Errorf("read record: %w", err)
	}

	process.Terminate(rec.PID)
	if err := m.st.Remove(ctx, rec.Name, scope); err != nil {
		return fmt.Errorf("remove record: %w", err)
	}

	m.log().Info("stopped process", "name", rec.Name, "pid", rec.PID, "scope", rec.Scope)
	metrics.IncStop(rec.Name)
	m.sendEvent(history.EventStop, rec)
	return nil
}

// List returns the status of every record visible to scope. Port probes are
// bounded and isolated: one hung or failing probe degrades that entry to an
// empty port set without affecting the others.
func (m *Manager) List(ctx context.Context, scope string) ([]Status, error) {
	scope, err := normalizeScope(scope)
	if err != nil {
		return nil, err
	}
	recs, err := m.st.List(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	statuses := make([]Status, 0, len(recs))
	running := 0
	for _, rec := range recs {
		st := Status{
			Name:      rec.Name,
			PID:       rec.PID,
			Scope:     rec.Scope,
			Command:   rec.Command,
			LogPath:   rec.LogPath,
			StartedAt: rec.StartedAt,
			Running:   detector.PidAlive(rec.PID),
		}
		if st.Running {
			running++
			probeCtx, cancel := context.WithTimeout(ctx, m.probeWindow())
			ports, err := detector.ListeningPorts(probeCtx, rec.PID)
			cancel()
			if err != nil {
				metrics.IncProbeFailure(rec.Name)
				m.log().Debug("port probe failed", "name", rec.Name, "pid", rec.PID, "err", err)
			}
			st.Ports = ports
		}
		statuses = append(statuses, st)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	metrics.SetRunningProcesses(scope, running)
	return statuses, nil
}

// Logs returns up to maxLines trailing lines of the named process's log,
// with an explicit truncation marker when content was clipped.
// maxLines <= 0 returns the full content.
func (m *Manager) Logs(ctx context.Context, name, scope string, maxLines int) (string, error) {
	rec, err := m.lookup(ctx, name, scope)
	if err != nil {
		return "", err
	}
	if maxLines <= 0 {
		return logtail.ReadAll(rec.LogPath)
	}
	res, err := logtail.Tail(rec.LogPath, maxLines, m.scanWindow())
	if err != nil {
		return "", err
	}
	return res.Render(), nil
}

func (m *Manager) lookup(ctx context.Context, name, scope string) (store.Record, error) {
	scope, err := normalizeScope(scope)
	if err != nil {
		return store.Record{}, err
	}
	rec, err := m.st.Get(ctx, name, scope)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return store.Record{}, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return store.Record{}, fmt.Errorf("read record: %w", err)
	}
	return rec, nil
}

// sendEvent fans the event out to all configured sinks. Delivery failures
// are logged and swallowed; history is an audit trail, not a dependency.
func (m *Manager) sendEvent(t history.EventType, rec store.Record) {
	m.mu.Lock()
	sinks := append([]history.Sink(nil), m.histSinks...)
	m.mu.Unlock()
	if len(sinks) == 0 {
		return
	}
	evt := history.Event{Type: t, OccurredAt: time.Now().UTC(), Record: rec}
	for _, s := range sinks {
		if err := s.Send(context.Background(), evt); err != nil {
			m.log().Warn("history sink send failed", "type", string(t), "name", rec.Name, "err", err)
		}
	}
}

func (m *Manager) log() *slog.Logger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logger
}

func (m *Manager) launchEnv() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseEnv
}

func (m *Manager) probeWindow() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.probeTimeout
}

func (m *Manager) scanWindow() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxScanBytes
}

func normalizeScope(scope string) (string, error) {
	if scope == "" {
		return "", fmt.Errorf("scope required")
	}
	if !filepath.IsAbs(scope) {
		abs, err := filepath.Abs(scope)
		if err != nil {
			return "", fmt.Errorf("resolve scope: %w", err)
		}
		scope = abs
	}
	return filepath.Clean(scope), nil
}
