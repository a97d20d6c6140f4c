// Package tracer runs one sigtrace invocation end to end: snapshot the two
// designs, elaborate the comparison circuit, catalogue its signals, then
// either trace one gate location or discover every correspondence.
package tracer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robert-at-pretension-io/sigtrace/internal/cache"
	"github.com/robert-at-pretension-io/sigtrace/internal/candidates"
	"github.com/robert-at-pretension-io/sigtrace/internal/ctxlog"
	"github.com/robert-at-pretension-io/sigtrace/internal/design"
	"github.com/robert-at-pretension-io/sigtrace/internal/discovery"
	"github.com/robert-at-pretension-io/sigtrace/internal/metrics"
	"github.com/robert-at-pretension-io/sigtrace/internal/miter"
	"github.com/robert-at-pretension-io/sigtrace/internal/policy"
	"github.com/robert-at-pretension-io/sigtrace/internal/prover"
	"github.com/robert-at-pretension-io/sigtrace/internal/report"
	"github.com/robert-at-pretension-io/sigtrace/internal/resolve"
	"github.com/robert-at-pretension-io/sigtrace/internal/rtlil"
	"github.com/robert-at-pretension-io/sigtrace/internal/source"
	"github.com/robert-at-pretension-io/sigtrace/internal/timing"
	"github.com/robert-at-pretension-io/sigtrace/internal/validator"
	"github.com/robert-at-pretension-io/sigtrace/internal/verilog"
	"github.com/robert-at-pretension-io/sigtrace/internal/yosys"
)

// ErrNoCandidates is returned when no gold signal survives filtering.
var ErrNoCandidates = errors.New("no gold candidates of matching width")

// Metric stages, one per kind of backend run.
const (
	StageDump  = "dump"
	StageBatch = "batch"
	StagePair  = "pair"
)

// Timeouts bounds each kind of backend run.
type Timeouts struct {
	Dump  time.Duration
	Batch time.Duration
	Pair  time.Duration
}

// Tracer holds the collaborators shared by every request. Only Backend is
// required; every other field may be nil.
type Tracer struct {
	Backend  yosys.Backend
	Timeouts Timeouts
	Workers  int

	Cache     *cache.DumpCache
	Policy    *policy.Engine
	Metrics   *metrics.Metrics
	Timing    *timing.Recorder
	Excerpter *source.Excerpter
	Validator *validator.Validator
}

// Design is an elaborated pair of designs and its signal catalogue.
type Design struct {
	Gold      *design.Snapshot
	Gate      *design.Snapshot
	Module    string
	Circuit   *miter.Circuit
	Catalogue design.Catalogue
	Cached    bool
}

// Request names the two designs. An empty Module is detected from gold.
type Request struct {
	GoldPath string
	GatePath string
	Module   string
}

// TraceRequest asks for the gold correspondents of one gate location.
type TraceRequest struct {
	Request
	Location design.Location
	Strategy prover.Strategy

	// PerPair proves each candidate in its own backend run instead of one batch.
	PerPair bool
}

// DiscoverRequest asks for every gate/gold correspondence.
type DiscoverRequest struct {
	Request
	Strategy prover.Strategy
}

// Prepare snapshots both designs and catalogues their comparison circuit.
func (t *Tracer) Prepare(ctx context.Context, req Request) (*Design, error) {
	log := ctxlog.FromContext(ctx)

	done := t.Timing.Begin("snapshot")
	gold, gate, err := readPair(req)
	done(err)
	if err != nil {
		return nil, err
	}

	module := req.Module
	if module == "" {
		module, err = verilog.DetectPrimaryModule(gold)
		if err != nil {
			return nil, err
		}
		log.Info("detected module", "module", module)
	}

	circuit, err := miter.Build(gold, gate, module)
	if err != nil {
		return nil, err
	}

	d := &Design{Gold: gold, Gate: gate, Module: module, Circuit: circuit}
	if err := t.catalogue(ctx, d); err != nil {
		return nil, err
	}
	log.Info("catalogued signals",
		"gold", len(d.Catalogue.Gold), "gate", len(d.Catalogue.Gate),
		"unattributed", d.Catalogue.Unattributed, "cached", d.Cached)
	return d, nil
}

func readPair(req Request) (gold, gate *design.Snapshot, err error) {
	if gold, err = design.ReadSnapshot(req.GoldPath); err != nil {
		return nil, nil, err
	}
	if gate, err = design.ReadSnapshot(req.GatePath); err != nil {
		return nil, nil, err
	}
	return gold, gate, nil
}

func (t *Tracer) catalogue(ctx context.Context, d *Design) error {
	log := ctxlog.FromContext(ctx)
	req := cache.Request{Gold: d.Gold, Gate: d.Gate, Module: d.Module}

	if t.Cache != nil {
		cat, ok, err := t.Cache.Get(req)
		if err != nil {
			log.Warn("ignoring unreadable cache entry", "error", err)
		}
		if ok {
			d.Catalogue, d.Cached = cat, true
			return nil
		}
	}

	done := t.Timing.Begin("dump")
	backend := t.Metrics.Instrument(t.Backend, StageDump)
	out, err := backend.Run(ctx, d.Circuit.DumpScript(), t.Timeouts.Dump)
	done(err)
	if err != nil {
		return fmt.Errorf("elaborating %s: %w", d.Module, err)
	}

	done = t.Timing.Begin("parse")
	cat, err := rtlil.Parse(strings.NewReader(out.Stdout), rtlil.SidePaths{
		Gold: d.Circuit.GoldAbs,
		Gate: d.Circuit.GateAbs,
	})
	done(err)
	if err != nil {
		return fmt.Errorf("parsing dump: %w", err)
	}
	d.Catalogue = cat

	if t.Cache != nil {
		if err := t.Cache.Put(req, cat); err != nil {
			log.Warn("could not cache catalogue", "error", err)
		} else if err := t.Cache.Save(); err != nil {
			log.Warn("could not save cache index", "error", err)
		}
	}
	return nil
}

// Trace resolves req.Location to a gate signal and proves it against every
// gold candidate of the same width.
func (t *Tracer) Trace(ctx context.Context, req TraceRequest) (report.Report, error) {
	log := ctxlog.FromContext(ctx)

	d, err := t.Prepare(ctx, req.Request)
	if err != nil {
		return report.Report{}, err
	}

	done := t.Timing.Begin("resolve")
	res, err := resolve.Resolve(d.Catalogue, req.Location, d.Circuit.GateAbs)
	done(err)
	if err != nil {
		return report.Report{}, err
	}
	target := res.Signal
	log.Info("resolved target", "wire", target.Name, "width", target.Width)
	if res.Ambiguous() {
		log.Warn("location matches several gate signals",
			"policy", res.Policy, "chosen", target.Name, "alternatives", len(res.Alternatives))
	}

	cands, err := t.candidates(ctx, d, target)
	if err != nil {
		return report.Report{}, err
	}
	log.Info("checking candidates", "count", len(cands), "strategy", report.Describe(req.Strategy))

	done = t.Timing.Begin("prove")
	results, err := t.prove(ctx, d, target, cands, req)
	done(err)
	if err != nil {
		return report.Report{}, err
	}
	t.Metrics.ObserveResults(results)

	expr, _ := verilog.ExpressionText(d.Gate, req.Location.Line, req.Location.StartCol, req.Location.EndCol)
	r := report.Build(ctx, report.Input{
		GoldPath:   req.GoldPath,
		GatePath:   req.GatePath,
		Module:     d.Module,
		Strategy:   req.Strategy,
		Location:   req.Location,
		Expression: expr,
		Resolution: res,
		Results:    results,
		Gold:       d.Gold,
		Excerpter:  t.Excerpter,
	})
	if err := t.validate(validator.Report, r); err != nil {
		return report.Report{}, err
	}
	return r, nil
}

// candidates applies the built-in filter and then any policy exclusions.
func (t *Tracer) candidates(ctx context.Context, d *Design, target design.Signal) ([]design.Signal, error) {
	log := ctxlog.FromContext(ctx)

	cands := candidates.Filter(d.Catalogue.Gold, target.Width)
	if len(cands) > 0 && t.Policy != nil {
		excluded, err := t.Policy.Excluded(ctx, policy.NewInput(target, cands))
		if err != nil {
			return nil, err
		}
		cands = candidates.Without(cands, excluded)
		log.Debug("policy exclusions applied", "excluded", len(excluded), "remaining", len(cands))
	}
	if len(cands) == 0 {
		return nil, fmt.Errorf("%w (target %s is %d bits)", ErrNoCandidates, target.DisplayName(), target.Width)
	}
	return cands, nil
}

func (t *Tracer) prove(ctx context.Context, d *Design, target design.Signal, cands []design.Signal, req TraceRequest) ([]prover.Result, error) {
	if !req.PerPair {
		dispatcher := &prover.Dispatcher{
			Backend: t.Metrics.Instrument(t.Backend, StageBatch),
			Timeout: t.Timeouts.Batch,
		}
		return dispatcher.Dispatch(ctx, d.Circuit, target, cands, req.Strategy)
	}

	pairs := make([]discovery.Pair, len(cands))
	for i, c := range cands {
		pairs[i] = discovery.Pair{Gate: target, Gold: c}
	}
	outcomes, err := t.runner(req.Strategy).Run(ctx, d.Circuit, pairs)
	if err != nil {
		return nil, err
	}
	return discovery.Results(outcomes), nil
}

func (t *Tracer) runner(strategy prover.Strategy) *discovery.Runner {
	return &discovery.Runner{
		Backend:     t.Metrics.Instrument(t.Backend, StagePair),
		Workers:     t.Workers,
		PairTimeout: t.Timeouts.Pair,
		Strategy:    strategy,
		Timing:      t.Timing,
	}
}

// Discover proves every gate signal with provenance against each same-width
// gold candidate, one backend run per pair.
func (t *Tracer) Discover(ctx context.Context, req DiscoverRequest) (discovery.Report, error) {
	log := ctxlog.FromContext(ctx)

	d, err := t.Prepare(ctx, req.Request)
	if err != nil {
		return discovery.Report{}, err
	}

	pairs := discovery.Pairs(d.Catalogue)
	if len(pairs) == 0 {
		return discovery.Report{}, ErrNoCandidates
	}
	log.Info("checking pairs", "count", len(pairs), "strategy", report.Describe(req.Strategy))

	done := t.Timing.Begin("discover")
	outcomes, err := t.runner(req.Strategy).Run(ctx, d.Circuit, pairs)
	done(err)
	if err != nil {
		return discovery.Report{}, err
	}
	t.Metrics.ObserveResults(discovery.Results(outcomes))

	r := discovery.NewReport(req.GoldPath, req.GatePath, d.Module, req.Strategy, outcomes)
	if err := t.validate(validator.Discovery, r); err != nil {
		return discovery.Report{}, err
	}
	return r, nil
}

func (t *Tracer) validate(def string, doc any) error {
	if t.Validator == nil {
		return nil
	}
	if err := t.Validator.Validate(def, doc); err != nil {
		return fmt.Errorf("output contract: %w", err)
	}
	return nil
}
