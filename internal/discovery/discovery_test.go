package discovery

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/sigtrace/internal/design"
	"github.com/robert-at-pretension-io/sigtrace/internal/miter"
	"github.com/robert-at-pretension-io/sigtrace/internal/prover"
	"github.com/robert-at-pretension-io/sigtrace/internal/yosys"
)

func sig(side design.Side, name string, width int, src string) design.Signal {
	return design.Signal{Name: `\` + string(side) + "." + name, OriginalName: name, Width: width, Src: src, Side: side, Kind: design.KindWire}
}

func catalogue() design.Catalogue {
	return design.Catalogue{
		Gold: []design.Signal{
			sig(design.Gold, "mulRes", 8, ""),
			sig(design.Gold, "sum", 8, ""),
			sig(design.Gold, "flag", 1, ""),
			{Name: `\gold.io_out`, OriginalName: "io_out", Width: 8, Side: design.Gold, Kind: design.KindPort},
		},
		Gate: []design.Signal{
			sig(design.Gate, "mulRes", 8, "/w/gate.sv:21.23-21.39"),
			sig(design.Gate, "flag", 1, "/w/gate.sv:22.3-22.9"),
			sig(design.Gate, "noSrc", 8, ""),
		},
	}
}

func pairNames(pairs []Pair) []string {
	var out []string
	for _, p := range pairs {
		out = append(out, p.Gate.OriginalName+"="+p.Gold.OriginalName)
	}
	return out
}

func TestPairs(t *testing.T) {
	got := pairNames(Pairs(catalogue()))
	want := []string{"mulRes=mulRes", "mulRes=sum", "flag=flag"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("pairs mismatch (-want +got):\n%s", diff)
	}
}

// scriptedBackend decides each verdict from the single sat line it receives.
type scriptedBackend struct {
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	mu       sync.Mutex
	calls    int
}

func (b *scriptedBackend) Run(ctx context.Context, script string, _ time.Duration) (yosys.Output, error) {
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		m := b.maxSeen.Load()
		if n <= m || b.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	time.Sleep(b.delay)

	switch {
	case strings.Contains(script, `\gold.sum `):
		return yosys.Output{}, &yosys.TimeoutError{Timeout: time.Second}
	case strings.Contains(script, `\gold.flag \gate.flag`):
		return yosys.Output{Combined: "FAIL!\n"}, nil
	default:
		return yosys.Output{Combined: "SUCCESS!\n"}, nil
	}
}

func circuit(t *testing.T) *miter.Circuit {
	t.Helper()
	src := []byte("module M(input a);\nendmodule\n")
	c, err := miter.Build(
		design.NewSnapshot("gold.sv", "/w/gold.sv", src),
		design.NewSnapshot("gate.sv", "/w/gate.sv", src),
		"M",
	)
	require.NoError(t, err)
	return c
}

func TestRunKeepsPairOrderAndDowngradesFailures(t *testing.T) {
	backend := &scriptedBackend{delay: 10 * time.Millisecond}
	r := &Runner{Backend: backend, Workers: 2, PairTimeout: time.Second, Strategy: prover.DefaultStrategy()}

	pairs := Pairs(catalogue())
	outcomes, err := r.Run(context.Background(), circuit(t), pairs)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	for i := range pairs {
		assert.Equal(t, pairs[i], outcomes[i].Pair)
	}
	assert.True(t, outcomes[0].Proven)
	assert.False(t, outcomes[1].Proven)
	assert.Equal(t, "timeout", outcomes[1].Reason)
	assert.False(t, outcomes[2].Proven)
	assert.Empty(t, outcomes[2].Reason)

	assert.Equal(t, 3, backend.calls, "one backend run per pair")
	assert.LessOrEqual(t, backend.maxSeen.Load(), int32(2))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Runner{Backend: &scriptedBackend{}, Workers: 1}
	outcomes, err := r.Run(ctx, circuit(t), Pairs(catalogue()))
	assert.ErrorIs(t, err, context.Canceled)
	for _, o := range outcomes {
		assert.Equal(t, "cancelled", o.Reason)
	}
}

func TestReport(t *testing.T) {
	r := &Runner{Backend: &scriptedBackend{}, Workers: 4, Strategy: prover.DefaultStrategy()}
	outcomes, err := r.Run(context.Background(), circuit(t), Pairs(catalogue()))
	require.NoError(t, err)

	rep := NewReport("gold.sv", "gate.sv", "M", r.Strategy, outcomes)
	assert.Equal(t, Summary{Proven: 1, Total: 3, Errors: 1}, rep.Summary)
	require.Len(t, rep.Correspondences, 1)
	assert.Equal(t, "mulRes", rep.Correspondences[0].Gold)
	assert.Equal(t, "21.23-21.39", rep.Correspondences[0].GateSrc)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, rep))
	assert.Contains(t, buf.String(), "Proved: 1/3 pairs, 1 unresolved")
	assert.Contains(t, buf.String(), "mulRes vs sum: timeout")

	results := Results(outcomes)
	assert.Equal(t, "timeout", results[1].Reason)
}
