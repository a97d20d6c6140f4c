package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/sigtrace/internal/discovery"
	"github.com/robert-at-pretension-io/sigtrace/internal/tracer"
)

func newDiscoverCmd(opts *globalOptions) *cobra.Command {
	var (
		files    designFlags
		bounded  bool
		depth    int
		workers  int
		jsonMode bool
	)
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Prove every gate signal against every same-width gold signal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			req, err := files.request()
			if err != nil {
				return err
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

			r, err := s.tracer.Discover(ctx, tracer.DiscoverRequest{Request: req, Strategy: strategy})
			if err != nil {
				return classify(err)
			}

			if jsonMode {
				err = discovery.RenderJSON(cmd.OutOrStdout(), r)
			} else {
				err = discovery.Render(cmd.OutOrStdout(), r)
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
	cmd.Flags().BoolVar(&bounded, "bounded", false, "Use bounded model checking instead of k-induction")
	cmd.Flags().IntVar(&depth, "depth", 0, "Unroll depth (default from config, 2)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent backend runs (default from config, else CPU count)")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output the report as JSON")
	return cmd
}
