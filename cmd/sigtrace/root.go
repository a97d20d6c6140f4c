package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/sigtrace/internal/config"
	"github.com/robert-at-pretension-io/sigtrace/internal/ctxlog"
)

type globalOptions struct {
	configPath  string
	logLevel    string
	logFormat   string
	timingPath  string
	metricsPath string
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "sigtrace",
		Short:         "Trace optimized Verilog signals to their Chisel source with equivalence proofs",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.logFormat {
			case "text", "json":
			default:
				return usageError(fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", opts.logFormat))
			}
			switch opts.logLevel {
			case "debug", "info", "warn", "error":
			default:
				return usageError(fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", opts.logLevel))
			}
			logger := ctxlog.New(opts.logLevel, opts.logFormat, stderr)
			cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
			return nil
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Configuration file (default: search ./sigtrace.json, ./.sigtrace.json, ./sigtrace.yaml, ~/.config/sigtrace/config.json)")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "Logging level: 'debug', 'info', 'warn', 'error'")
	pf.StringVar(&opts.logFormat, "log-format", "text", "Log output format: 'text' or 'json'")
	pf.StringVar(&opts.timingPath, "timing", "", "Write per-stage timing as JSON lines to this file")
	pf.StringVar(&opts.metricsPath, "metrics-file", "", "Write Prometheus metrics in textfile format to this file")

	root.AddCommand(
		newTraceCmd(opts),
		newDiscoverCmd(opts),
		newModulesCmd(),
		newCatalogueCmd(opts),
		newInitCmd(),
	)
	return root
}

func (o *globalOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}
