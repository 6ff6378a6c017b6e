// Package metrics exposes Prometheus collectors for tool calls.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for tool calls.
const (
	OutcomeSuccess     = "success"
	OutcomeFailed      = "failed"
	OutcomeInvalid     = "invalid"
	OutcomeRejected    = "rejected"
	OutcomeTimeout     = "timeout"
	OutcomeCancelled   = "cancelled"
	OutcomePanic       = "panic"
	OutcomeUnknownTool = "unknown_tool"
	OutcomeRateLimited = "rate_limited"
)

// Metrics owns its registry so several servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	calls      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	validation *prometheus.CounterVec
	inFlight   prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "devspace_mcp",
				Subsystem: "tools",
				Name:      "calls_total",
				Help:      "Tool calls by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "devspace_mcp",
				Subsystem: "process",
				Name:      "duration_seconds",
				Help:      "devspace subprocess duration in seconds.",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"operation"},
		),
		validation: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "devspace_mcp",
				Subsystem: "validation",
				Name:      "failures_total",
				Help:      "Pre-flight validation failures by stage.",
			},
			[]string{"stage"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "devspace_mcp",
			Subsystem: "tools",
			Name:      "in_flight",
			Help:      "Tool calls currently running.",
		}),
	}
	m.registry.MustRegister(m.calls, m.duration, m.validation, m.inFlight)
	return m
}

// The recorders accept a nil receiver so callers can run without metrics.

func (m *Metrics) RecordCall(operation, outcome string) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveProcess(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) RecordValidationFailure(stage string) {
	if m == nil {
		return
	}
	m.validation.WithLabelValues(stage).Inc()
}

// Track increments the in-flight gauge and returns its release.
func (m *Metrics) Track() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}

// Registry is exposed for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
