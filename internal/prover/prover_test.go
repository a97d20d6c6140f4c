package prover

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/sigtrace/internal/design"
	"github.com/robert-at-pretension-io/sigtrace/internal/miter"
	"github.com/robert-at-pretension-io/sigtrace/internal/yosys"
)

var target = design.Signal{Name: `\gate.mulRes`, Width: 8, Side: design.Gate}

func candidates(n int) []design.Signal {
	out := make([]design.Signal, n)
	for i := range out {
		out[i] = design.Signal{Name: fmt.Sprintf(`\gold.s%d`, i), Width: 8, Side: design.Gold}
	}
	return out
}

func TestCommand(t *testing.T) {
	cand := design.Signal{Name: `\gold.mulRes`}

	q := Query{Target: target, Candidate: cand, Strategy: Strategy{Mode: Bounded, Depth: 2}}
	assert.Equal(t, `sat -prove \gold.mulRes \gate.mulRes -set-init-zero -seq 2 miter`, q.Command())

	q.Strategy = DefaultStrategy()
	assert.Equal(t, `sat -tempinduct -prove trigger 0 -prove \gold.mulRes \gate.mulRes -set-init-zero -seq 2 miter`, q.Command())

	q.Strategy = Strategy{Mode: Bounded}
	assert.Contains(t, q.Command(), "-seq 2 ")
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Bounded")
	require.NoError(t, err)
	assert.Equal(t, Bounded, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Induction, m)

	_, err = ParseMode("bmc")
	assert.Error(t, err)
}

func TestInterpretKeepsOrder(t *testing.T) {
	queries := Queries(target, candidates(4), DefaultStrategy())
	output := strings.Join([]string{
		"1. Executing SAT pass (solving SAT problems in the circuit).",
		"  \\  /  SUCCESS!",
		"noise",
		"  /  \\  FAIL!",
		"Solving problem with 1093 variables and 2823 clauses..",
		"SUCCESS!",
		"FAIL!",
	}, "\n")

	results, err := Interpret(output, queries)
	require.NoError(t, err)
	require.Len(t, results, 4)

	var got []bool
	for i, r := range results {
		assert.Equal(t, queries[i].Candidate.Name, r.Query.Candidate.Name)
		got = append(got, r.Proven)
	}
	assert.Equal(t, []bool{true, false, true, false}, got)
}

func TestInterpretCountMismatch(t *testing.T) {
	for _, n := range []int{1, 3, 8} {
		queries := Queries(target, candidates(n), DefaultStrategy())
		short := strings.Repeat("SUCCESS!\n", n-1)
		_, err := Interpret(short, queries)

		var ie *IntegrityError
		require.True(t, errors.As(err, &ie), "n=%d: got %v", n, err)
		assert.Equal(t, n, ie.Want)
		assert.Equal(t, n-1, ie.Got)

		_, err = Interpret(strings.Repeat("FAIL!\n", n+1), queries)
		assert.True(t, errors.As(err, &ie))
	}
}

// fakeBackend records scripts and replies with canned output.
type fakeBackend struct {
	scripts []string
	output  yosys.Output
	err     error
}

func (f *fakeBackend) Run(_ context.Context, script string, _ time.Duration) (yosys.Output, error) {
	f.scripts = append(f.scripts, script)
	return f.output, f.err
}

func circuit(t *testing.T) *miter.Circuit {
	t.Helper()
	src := []byte("module Fifo(input [7:0] io_a);\nendmodule\n")
	c, err := miter.Build(
		design.NewSnapshot("gold.sv", "/w/gold.sv", src),
		design.NewSnapshot("gate.sv", "/w/gate.sv", src),
		"Fifo",
	)
	require.NoError(t, err)
	return c
}

func TestDispatchSingleBatch(t *testing.T) {
	fb := &fakeBackend{output: yosys.Output{Combined: "SUCCESS!\nFAIL!\nSUCCESS!\n"}}
	d := &Dispatcher{Backend: fb, Timeout: time.Minute}

	results, err := d.Dispatch(context.Background(), circuit(t), target, candidates(3), DefaultStrategy())
	require.NoError(t, err)
	require.Len(t, fb.scripts, 1, "all queries must share one backend run")

	script := fb.scripts[0]
	assert.True(t, strings.HasPrefix(script, "read_verilog -formal /w/gold.sv\n"))
	i0 := strings.Index(script, `\gold.s0 `)
	i1 := strings.Index(script, `\gold.s1 `)
	i2 := strings.Index(script, `\gold.s2 `)
	assert.True(t, i0 < i1 && i1 < i2, "queries must be emitted in candidate order")
	assert.Equal(t, 3, strings.Count(script, "sat -tempinduct"))

	assert.True(t, results[0].Proven)
	assert.False(t, results[1].Proven)
	assert.True(t, results[2].Proven)
}

func TestDispatchTimeoutProvesNothing(t *testing.T) {
	fb := &fakeBackend{
		output: yosys.Output{Combined: "SUCCESS!\n"},
		err:    &yosys.TimeoutError{Timeout: time.Second},
	}
	d := &Dispatcher{Backend: fb, Timeout: time.Second}

	results, err := d.Dispatch(context.Background(), circuit(t), target, candidates(2), DefaultStrategy())
	var te *yosys.TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Nil(t, results)
}

func TestDispatchEmpty(t *testing.T) {
	fb := &fakeBackend{}
	d := &Dispatcher{Backend: fb}
	results, err := d.Dispatch(context.Background(), circuit(t), target, nil, DefaultStrategy())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, fb.scripts)
}
