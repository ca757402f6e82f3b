// Package telemetry holds the engine's observability endpoints: an optional
// pprof server and a Prometheus metrics endpoint scraping node/execution
// counters off the scheduler's event stream — grounded on the teacher's
// common/telemetry.Telemetry (pprof via blank-imported net/http/pprof), with
// its unfinished metrics TODO completed using prometheus/client_golang, the
// same dependency other_examples' dshills-langgraph-go wires for the
// identical purpose.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lyzr/diagflow/common/logger"
)

// Telemetry holds the engine's observability endpoints and metrics.
type Telemetry struct {
	log         *logger.Logger
	enablePprof bool
	pprofAddr   string
	metricsAddr string

	registry *prometheus.Registry

	nodeExecutions   *prometheus.CounterVec
	nodeDuration     *prometheus.HistogramVec
	activeExecutions prometheus.Gauge
}

// New creates telemetry components. Metrics are always registered so
// Engine subscribers can record against them even when enablePprof is
// false; only the pprof HTTP endpoint is conditional.
func New(enablePprof bool, pprofPort, metricsPort int, log *logger.Logger) *Telemetry {
	registry := prometheus.NewRegistry()

	t := &Telemetry{
		log:         log,
		enablePprof: enablePprof,
		pprofAddr:   fmt.Sprintf("localhost:%d", pprofPort),
		metricsAddr: fmt.Sprintf("localhost:%d", metricsPort),
		registry:    registry,
		nodeExecutions: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Namespace: "diagflow",
			Name:      "node_executions_total",
			Help:      "Node executions, labeled by their terminal status.",
		}, []string{"status"}),
		nodeDuration: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "diagflow",
			Name:      "node_duration_seconds",
			Help:      "Node execution wall-clock duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		activeExecutions: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Namespace: "diagflow",
			Name:      "active_executions",
			Help:      "Workflow executions currently in flight.",
		}),
	}
	return t
}

// Start launches the pprof server (when enabled) and the metrics endpoint.
// Both run in background goroutines; Start itself returns once they've been
// scheduled, matching the teacher's fire-and-forget shape.
func (t *Telemetry) Start(ctx context.Context) error {
	if t.enablePprof {
		go func() {
			t.log.Info("pprof server starting", "addr", t.pprofAddr)
			if err := http.ListenAndServe(t.pprofAddr, nil); err != nil {
				t.log.Error("pprof server error", "error", err)
			}
		}()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{}))
	go func() {
		t.log.Info("metrics server starting", "addr", t.metricsAddr)
		if err := http.ListenAndServe(t.metricsAddr, mux); err != nil {
			t.log.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// ObserveNode records one node execution's terminal status and duration.
func (t *Telemetry) ObserveNode(status string, duration time.Duration) {
	t.nodeExecutions.WithLabelValues(status).Inc()
	t.nodeDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// SetActiveExecutions reports the current count of in-flight workflow
// executions.
func (t *Telemetry) SetActiveExecutions(n int) {
	t.activeExecutions.Set(float64(n))
}

// RecordDuration records operation duration via the structured logger —
// kept alongside the Prometheus metrics for the ad-hoc, non-node-scoped
// timings (e.g. registry persistence) the teacher used this for.
func (t *Telemetry) RecordDuration(operation string, start time.Time) {
	duration := time.Since(start)
	t.log.Debug("operation completed",
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
	)
}

// RecordEvent records a telemetry event.
func (t *Telemetry) RecordEvent(event string, attrs map[string]any) {
	t.log.Info("telemetry_event",
		"event", event,
		"attrs", attrs,
	)
}
