package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/sigtrace/internal/design"
	"github.com/robert-at-pretension-io/sigtrace/internal/report"
	"github.com/robert-at-pretension-io/sigtrace/internal/resolve"
	"github.com/robert-at-pretension-io/sigtrace/internal/tracer"
	"github.com/robert-at-pretension-io/sigtrace/internal/validator"
)

func newTraceCmd(opts *globalOptions) *cobra.Command {
	var (
		files    designFlags
		loc      string
		bounded  bool
		depth    int
		perPair  bool
		workers  int
		jsonMode bool
	)
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Find the gold signals equivalent to the gate signal at a location",
		Long: `Resolve a gate source location (LINE.START-END, columns 1-based and inclusive)
to the wire it produced, prove it against every gold signal of the same width,
and list the proven signals with their Chisel source.

Example:
  sigtrace trace --gold unoptimized.sv --gate optimized.sv --loc 21.23-39`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			req, err := files.request()
			if err != nil {
				return err
			}
			location, err := design.ParseLocation(loc)
			if err != nil {
				return usageError(err)
			}

			s, err := openSession(ctx, opts, workers)
			if err != nil {
				return err
			}
			defer s.close(ctx)

			strategy, err := s.strategy(cmd, bounded, depth)
			if err != nil {
				return err
			}

			r, err := s.tracer.Trace(ctx, tracer.TraceRequest{
				Request:  req,
				Location: location,
				Strategy: strategy,
				PerPair:  perPair,
			})
			if err != nil {
				var resErr *resolve.ResolutionError
				if errors.As(err, &resErr) {
					if werr := writeResolutionFailure(cmd, s, resErr, jsonMode); werr != nil {
						return werr
					}
				}
				return classify(err)
			}

			if jsonMode {
				err = report.RenderJSON(cmd.OutOrStdout(), r)
			} else {
				err = report.Render(cmd.OutOrStdout(), r)
			}
			if err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
			if r.Summary.Proven == 0 {
				return &ExitError{Code: ExitNotProven}
			}
			return nil
		},
	}
	files.register(cmd)
	cmd.Flags().StringVar(&loc, "loc", "", "Gate location as LINE.START-END, e.g. 21.23-39")
	cmd.Flags().BoolVar(&bounded, "bounded", false, "Use bounded model checking instead of k-induction")
	cmd.Flags().IntVar(&depth, "depth", 0, "Unroll depth (default from config, 2)")
	cmd.Flags().BoolVar(&perPair, "per-pair", false, "Prove each candidate in its own backend run")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent backend runs with --per-pair (default from config, else CPU count)")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output the report as JSON")
	_ = cmd.MarkFlagRequired("loc")
	return cmd
}

// writeResolutionFailure lists the gate signals that do carry provenance so
// the caller can pick a location that resolves.
func writeResolutionFailure(cmd *cobra.Command, s *session, resErr *resolve.ResolutionError, jsonMode bool) error {
	if !jsonMode {
		_ = report.RenderResolutionError(cmd.OutOrStdout(), resErr)
		return nil
	}
	doc := report.NewResolutionFailure(resErr)
	if err := s.tracer.Validator.Validate(validator.Failure, doc); err != nil {
		return fmt.Errorf("output contract: %w", err)
	}
	if err := report.RenderJSON(cmd.OutOrStdout(), doc); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
