package metrics

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/sigtrace/internal/prover"
	"github.com/robert-at-pretension-io/sigtrace/internal/yosys"
)

type stubBackend struct{ err error }

func (s stubBackend) Run(context.Context, string, time.Duration) (yosys.Output, error) {
	return yosys.Output{}, s.err
}

// counter returns the value of name with the given label pairs.
func counter(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			if matches(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matches(m *dto.Metric, labels map[string]string) bool {
	for _, lp := range m.GetLabel() {
		if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
			return false
		}
	}
	return true
}

func TestInstrumentCountsOutcomes(t *testing.T) {
	m := New()
	ok := m.Instrument(stubBackend{}, "batch")
	slow := m.Instrument(stubBackend{err: &yosys.TimeoutError{Timeout: time.Second}}, "pair")

	_, _ = ok.Run(context.Background(), "", 0)
	_, _ = ok.Run(context.Background(), "", 0)
	_, _ = slow.Run(context.Background(), "", 0)

	assert.Equal(t, 2.0, counter(t, m, "sigtrace_backend_runs_total", map[string]string{"stage": "batch", "outcome": OutcomeOK}))
	assert.Equal(t, 1.0, counter(t, m, "sigtrace_backend_runs_total", map[string]string{"stage": "pair", "outcome": OutcomeTimeout}))
}

func TestObserveResults(t *testing.T) {
	m := New()
	m.ObserveResults([]prover.Result{{Proven: true}, {Proven: false}, {Reason: "timeout"}, {Proven: true}})

	assert.Equal(t, 2.0, counter(t, m, "sigtrace_proofs_total", map[string]string{"verdict": "proven"}))
	assert.Equal(t, 1.0, counter(t, m, "sigtrace_proofs_total", map[string]string{"verdict": "not_proven"}))
	assert.Equal(t, 1.0, counter(t, m, "sigtrace_proofs_total", map[string]string{"verdict": "error"}))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveResults([]prover.Result{{Proven: true}})
	path := filepath.Join(t.TempDir(), "sigtrace.prom")
	require.NoError(t, m.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), `sigtrace_proofs_total{verdict="proven"} 1`))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	b := stubBackend{}
	assert.Equal(t, yosys.Backend(b), m.Instrument(b, "batch"))
	m.ObserveResults([]prover.Result{{Proven: true}})
	assert.NoError(t, m.WriteTextfile("ignored"))
}
