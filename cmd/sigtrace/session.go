package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/sigtrace/internal/cache"
	"github.com/robert-at-pretension-io/sigtrace/internal/config"
	"github.com/robert-at-pretension-io/sigtrace/internal/ctxlog"
	"github.com/robert-at-pretension-io/sigtrace/internal/metrics"
	"github.com/robert-at-pretension-io/sigtrace/internal/policy"
	"github.com/robert-at-pretension-io/sigtrace/internal/prover"
	"github.com/robert-at-pretension-io/sigtrace/internal/source"
	"github.com/robert-at-pretension-io/sigtrace/internal/timing"
	"github.com/robert-at-pretension-io/sigtrace/internal/tracer"
	"github.com/robert-at-pretension-io/sigtrace/internal/validator"
	"github.com/robert-at-pretension-io/sigtrace/internal/verilog"
	"github.com/robert-at-pretension-io/sigtrace/internal/yosys"
)

// session is everything one command invocation shares.
type session struct {
	cfg         *config.Config
	tracer      *tracer.Tracer
	metricsPath string
}

func openSession(ctx context.Context, opts *globalOptions, workers int) (*session, error) {
	log := ctxlog.FromContext(ctx)

	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}

	runner, err := yosys.NewRunner(cfg.Backend.Binary, yosys.ScriptMode(cfg.Backend.ScriptMode))
	if err != nil {
		return nil, usageError(err)
	}
	log.Debug("using backend", "binary", runner.Binary, "mode", runner.Mode)

	v, err := validator.New()
	if err != nil {
		return nil, err
	}

	if workers <= 0 {
		workers = cfg.Discovery.Workers
	}
	t := &tracer.Tracer{
		Backend: runner,
		Timeouts: tracer.Timeouts{
			Dump:  cfg.Backend.DumpTimeout.Duration,
			Batch: cfg.Backend.BatchTimeout.Duration,
			Pair:  cfg.Backend.PairTimeout.Duration,
		},
		Workers:   workers,
		Validator: v,
	}

	if cfg.CacheEnabled() {
		c := cache.New(cfg.Cache.Dir)
		if err := c.Load(); err != nil {
			log.Warn("dump cache disabled", "error", err)
		} else {
			t.Cache = c
		}
	}

	if cfg.Filter.PolicyDir != "" {
		engine, err := policy.New(cfg.Filter.PolicyDir)
		if err != nil {
			return nil, usageError(err)
		}
		log.Debug("loaded candidate policies", "files", engine.Files())
		t.Policy = engine
	}

	if cfg.ExcerptsEnabled() {
		cwd, _ := os.Getwd()
		t.Excerpter = source.NewExcerpter(cfg.ResolveSourceRoots(cwd))
	}

	rec, err := timing.New(time.Now(), timing.ResolvePath(opts.timingPath))
	if err != nil {
		return nil, usageError(err)
	}
	t.Timing = rec

	s := &session{cfg: cfg, tracer: t, metricsPath: opts.metricsPath}
	if opts.metricsPath != "" {
		t.Metrics = metrics.New()
	}
	return s, nil
}

// close flushes the timing and metrics files.
func (s *session) close(ctx context.Context) {
	log := ctxlog.FromContext(ctx)
	if s.tracer.Excerpter != nil {
		s.tracer.Excerpter.Close()
	}
	for stage, took := range s.tracer.Timing.Totals() {
		log.Debug("stage time", "stage", stage, "took", took)
	}
	if err := s.tracer.Timing.Close(); err != nil {
		log.Warn("closing timing file", "error", err)
	}
	if err := s.tracer.Metrics.WriteTextfile(s.metricsPath); err != nil {
		log.Warn("writing metrics", "error", err)
	}
}

// strategy combines the configured proof settings with the command flags.
func (s *session) strategy(cmd *cobra.Command, bounded bool, depth int) (prover.Strategy, error) {
	mode, err := prover.ParseMode(s.cfg.Proof.Mode)
	if err != nil {
		return prover.Strategy{}, usageError(err)
	}
	if bounded {
		mode = prover.Bounded
	}
	st := prover.Strategy{Mode: mode, Depth: s.cfg.Proof.Depth}
	if cmd.Flags().Changed("depth") {
		if depth < 1 {
			return prover.Strategy{}, usageError(fmt.Errorf("--depth must be at least 1"))
		}
		st.Depth = depth
	}
	return st, nil
}

// designFlags name the two designs of a command.
type designFlags struct {
	gold   string
	gate   string
	dir    string
	module string
}

func (f *designFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.gold, "gold", "", "Unoptimized (gold) Verilog file")
	cmd.Flags().StringVar(&f.gate, "gate", "", "Optimized (gate) Verilog file")
	cmd.Flags().StringVar(&f.dir, "dir", "", "Design directory holding generated/unoptimized.sv and generated/optimized.sv")
	cmd.Flags().StringVar(&f.module, "module", "", "Top module name (default: first module in the gold file)")
}

func (f *designFlags) request() (tracer.Request, error) {
	gold, gate := f.gold, f.gate
	if f.dir != "" && (gold == "" || gate == "") {
		g, o, err := config.DesignPair(f.dir)
		if err != nil {
			return tracer.Request{}, usageError(err)
		}
		if gold == "" {
			gold = g
		}
		if gate == "" {
			gate = o
		}
	}
	if gold == "" || gate == "" {
		return tracer.Request{}, usageError(fmt.Errorf("both --gold and --gate are required (or --dir)"))
	}
	if f.module != "" && !verilog.ValidModuleName(f.module) {
		return tracer.Request{}, usageError(fmt.Errorf("invalid module name %q", f.module))
	}
	return tracer.Request{GoldPath: gold, GatePath: gate, Module: f.module}, nil
}
