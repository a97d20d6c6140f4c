// Package metrics counts backend runs and proof verdicts and exports them
// in the Prometheus textfile format.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/robert-at-pretension-io/sigtrace/internal/prover"
	"github.com/robert-at-pretension-io/sigtrace/internal/yosys"
)

const namespace = "sigtrace"

// Outcome labels for backend runs.
const (
	OutcomeOK      = "ok"
	OutcomeTimeout = "timeout"
	OutcomeExit    = "exit"
	OutcomeError   = "error"
)

// Metrics owns a private registry so every invocation exports only its own series.
type Metrics struct {
	reg      *prometheus.Registry
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	proofs   *prometheus.CounterVec
}

// New registers the sigtrace collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_runs_total",
			Help:      "Backend invocations by stage and outcome.",
		}, []string{"stage", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_run_seconds",
			Help:      "Wall time of backend invocations.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"stage"}),
		proofs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proofs_total",
			Help:      "Equivalence queries by verdict.",
		}, []string{"verdict"}),
	}
	m.reg.MustRegister(m.runs, m.duration, m.proofs)
	return m
}

// Instrument wraps b so each run is counted under stage. A nil Metrics
// returns b unchanged.
func (m *Metrics) Instrument(b yosys.Backend, stage string) yosys.Backend {
	if m == nil {
		return b
	}
	return &instrumented{next: b, stage: stage, m: m}
}

// ObserveResults counts verdicts.
func (m *Metrics) ObserveResults(results []prover.Result) {
	if m == nil {
		return
	}
	for _, r := range results {
		m.proofs.WithLabelValues(verdict(r)).Inc()
	}
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// WriteTextfile writes every series to path for a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func verdict(r prover.Result) string {
	switch {
	case r.Proven:
		return "proven"
	case r.Reason != "":
		return "error"
	default:
		return "not_proven"
	}
}

func outcome(err error) string {
	var te *yosys.TimeoutError
	var ee *yosys.ExitError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &te):
		return OutcomeTimeout
	case errors.As(err, &ee):
		return OutcomeExit
	default:
		return OutcomeError
	}
}

type instrumented struct {
	next  yosys.Backend
	stage string
	m     *Metrics
}

func (i *instrumented) Run(ctx context.Context, script string, timeout time.Duration) (yosys.Output, error) {
	start := time.Now()
	out, err := i.next.Run(ctx, script, timeout)
	i.m.duration.WithLabelValues(i.stage).Observe(time.Since(start).Seconds())
	i.m.runs.WithLabelValues(i.stage, outcome(err)).Inc()
	return out, err
}
