package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	processStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bgrun",
			Subsystem: "registry",
			Name:      "starts_total",
			Help:      "Number of successful process starts.",
		}, []string{"name"},
	)
	processStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bgrun",
			Subsystem: "registry",
			Name:      "stops_total",
			Help:      "Number of stop operations (record removals).",
		}, []string{"name"},
	)
	spawnFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bgrun",
			Subsystem: "registry",
			Name:      "spawn_failures_total",
			Help:      "Number of launches refused by the OS.",
		}, []string{"name"},
	)
	probeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bgrun",
			Subsystem: "registry",
			Name:      "probe_failures_total",
			Help:      "Number of failed or timed-out port/liveness probes.",
		}, []string{"name"},
	)
	runningProcesses = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "bgrun",
			Subsystem: "registry",
			Name:      "running_processes",
			Help:      "Running tracked processes per scope at last listing.",
		}, []string{"scope"},
	)
)

// Register registers all metrics with the provided registerer.
// Safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{processStarts, processStops, spawnFailures, probeFailures, runningProcesses}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncStart(name string) {
	if regOK.Load() {
		processStarts.WithLabelValues(name).Inc()
	}
}

func IncStop(name string) {
	if regOK.Load() {
		processStops.WithLabelValues(name).Inc()
	}
}

func IncSpawnFailure(name string) {
	if regOK.Load() {
		spawnFailures.WithLabelValues(name).Inc()
	}
}

func IncProbeFailure(name string) {
	if regOK.Load() {
		probeFailures.WithLabelValues(name).Inc()
	}
}

func SetRunningProcesses(scope string, n int) {
	if regOK.Load() {
		runningProcesses.WithLabelValues(scope).Set(float64(n))
	}
}
