package prover

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robert-at-pretension-io/sigtrace/internal/design"
	"github.com/robert-at-pretension-io/sigtrace/internal/miter"
	"github.com/robert-at-pretension-io/sigtrace/internal/yosys"
)

// Dispatcher submits query batches to a backend.
type Dispatcher struct {
	Backend yosys.Backend
	Timeout time.Duration
}

// Queries builds one query per candidate, in candidate order.
func Queries(target design.Signal, candidates []design.Signal, strategy Strategy) []Query {
	queries := make([]Query, len(candidates))
	for i, c := range candidates {
		queries[i] = Query{Target: target, Candidate: c, Strategy: strategy}
	}
	return queries
}

// Script renders the circuit setup followed by every query command.
func Script(circuit *miter.Circuit, queries []Query) string {
	var b strings.Builder
	b.WriteString(circuit.Script())
	b.WriteString("\n")
	for _, q := range queries {
		b.WriteString(q.Command())
		b.WriteString("\n")
	}
	return b.String()
}

// Dispatch proves every candidate against target in a single backend run.
// The backend's verdicts are matched to candidates only by position, so the
// batch is never reordered or split. A failed run proves nothing.
func (d *Dispatcher) Dispatch(ctx context.Context, circuit *miter.Circuit, target design.Signal, candidates []design.Signal, strategy Strategy) ([]Result, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	queries := Queries(target, candidates, strategy)
	out, err := d.Backend.Run(ctx, Script(circuit, queries), d.Timeout)
	if err != nil {
		return nil, fmt.Errorf("proof batch of %d queries: %w", len(queries), err)
	}
	return Interpret(out.Combined, queries)
}
