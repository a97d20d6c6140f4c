// Package discovery proves every plausible (gate, gold) signal pair of a
// design, one backend run per pair, on a bounded pool of workers.
package discovery

import (
	"context"
	"errors"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/robert-at-pretension-io/sigtrace/internal/candidates"
	"github.com/robert-at-pretension-io/sigtrace/internal/ctxlog"
	"github.com/robert-at-pretension-io/sigtrace/internal/design"
	"github.com/robert-at-pretension-io/sigtrace/internal/miter"
	"github.com/robert-at-pretension-io/sigtrace/internal/prover"
	"github.com/robert-at-pretension-io/sigtrace/internal/timing"
	"github.com/robert-at-pretension-io/sigtrace/internal/yosys"
)

// Pair is one gate signal and one same-width gold candidate.
type Pair struct {
	Gate design.Signal `json:"gate"`
	Gold design.Signal `json:"gold"`
}

// Outcome is the verdict for one pair. Reason is set when the run failed
// and the pair was counted as not proven.
type Outcome struct {
	Pair     Pair          `json:"pair"`
	Proven   bool          `json:"proven"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Pairs lists gate signals with provenance against every filtered gold
// signal of the same width, gate-major in catalogue order.
func Pairs(cat design.Catalogue) []Pair {
	var pairs []Pair
	for _, gate := range cat.Attributed(design.Gate) {
		if _, skip := candidates.Excluded(gate); skip {
			continue
		}
		for _, gold := range candidates.Filter(cat.Gold, gate.Width) {
			pairs = append(pairs, Pair{Gate: gate, Gold: gold})
		}
	}
	return pairs
}

// Runner proves pairs concurrently.
type Runner struct {
	Backend     yosys.Backend
	Workers     int
	PairTimeout time.Duration
	Strategy    prover.Strategy
	Timing      *timing.Recorder
}

func (r *Runner) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return runtime.NumCPU()
}

// Run proves each pair in its own backend run and returns outcomes in pair
// order. A failing pair never stops the others; only cancellation of ctx
// ends the run early, and pairs not started by then report the reason.
func (r *Runner) Run(ctx context.Context, circuit *miter.Circuit, pairs []Pair) ([]Outcome, error) {
	log := ctxlog.FromContext(ctx)
	outcomes := make([]Outcome, len(pairs))
	d := &prover.Dispatcher{Backend: r.Backend, Timeout: r.PairTimeout}

	var g errgroup.Group
	g.SetLimit(r.workers())
	for i, p := range pairs {
		if ctx.Err() != nil {
			outcomes[i] = Outcome{Pair: p, Reason: "cancelled"}
			continue
		}
		g.Go(func() error {
			outcomes[i] = r.prove(ctx, d, circuit, p)
			log.Debug("pair checked",
				"gate", p.Gate.DisplayName(), "gold", p.Gold.DisplayName(),
				"proven", outcomes[i].Proven, "reason", outcomes[i].Reason)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes, ctx.Err()
}

func (r *Runner) prove(ctx context.Context, d *prover.Dispatcher, circuit *miter.Circuit, p Pair) Outcome {
	start := time.Now()
	results, err := d.Dispatch(ctx, circuit, p.Gate, []design.Signal{p.Gold}, r.Strategy)
	out := Outcome{Pair: p, Duration: time.Since(start)}

	switch {
	case err != nil:
		out.Reason = reason(err)
	case len(results) == 1:
		out.Proven = results[0].Proven
	}

	status := "not_proven"
	if out.Proven {
		status = "proven"
	} else if out.Reason != "" {
		status = out.Reason
	}
	r.Timing.Pair(p.Gate.Name, p.Gold.Name, status, start, out.Duration)
	return out
}

func reason(err error) string {
	var te *yosys.TimeoutError
	var ie *prover.IntegrityError
	switch {
	case errors.As(err, &te):
		return "timeout"
	case errors.As(err, &ie):
		return "integrity"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error: " + err.Error()
	}
}

// Results converts outcomes to prover results for verdict accounting.
func Results(outcomes []Outcome) []prover.Result {
	results := make([]prover.Result, len(outcomes))
	for i, o := range outcomes {
		results[i] = prover.Result{
			Query:  prover.Query{Target: o.Pair.Gate, Candidate: o.Pair.Gold},
			Proven: o.Proven,
			Reason: o.Reason,
		}
	}
	return results
}
