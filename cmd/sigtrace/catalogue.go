package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/sigtrace/internal/design"
	"github.com/robert-at-pretension-io/sigtrace/internal/report"
	"github.com/robert-at-pretension-io/sigtrace/internal/validator"
)

func newCatalogueCmd(opts *globalOptions) *cobra.Command {
	var (
		files    designFlags
		jsonMode bool
	)
	cmd := &cobra.Command{
		Use:     "catalogue",
		Aliases: []string{"catalog"},
		Short:   "List the signals of the elaborated comparison circuit",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			req, err := files.request()
			if err != nil {
				return err
			}
			s, err := openSession(ctx, opts, 0)
			if err != nil {
				return err
			}
			defer s.close(ctx)

			d, err := s.tracer.Prepare(ctx, req)
			if err != nil {
				return classify(err)
			}

			if jsonMode {
				if err := s.tracer.Validator.Validate(validator.Catalogue, d.Catalogue); err != nil {
					return classify(fmt.Errorf("output contract: %w", err))
				}
				return report.RenderJSON(cmd.OutOrStdout(), d.Catalogue)
			}
			renderCatalogue(cmd.OutOrStdout(), d.Module, d.Catalogue)
			return nil
		},
	}
	files.register(cmd)
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output as JSON")
	return cmd
}

func renderCatalogue(w io.Writer, module string, cat design.Catalogue) {
	fmt.Fprintf(w, "Module %s\n", module)
	for _, side := range []design.Side{design.Gold, design.Gate} {
		signals := cat.Side(side)
		fmt.Fprintf(w, "\n%s signals (%d):\n", side, len(signals))
		for _, sig := range signals {
			fmt.Fprintf(w, "  %-30s %-5d %-8s %s\n", sig.DisplayName(), sig.Width, sig.Kind, sig.ShortSrc())
		}
	}
	fmt.Fprintf(w, "\nunattributed wires: %d\n", cat.Unattributed)
}
