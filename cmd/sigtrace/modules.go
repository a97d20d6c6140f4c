package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/sigtrace/internal/design"
	"github.com/robert-at-pretension-io/sigtrace/internal/report"
	"github.com/robert-at-pretension-io/sigtrace/internal/verilog"
)

type moduleListing struct {
	File    string   `json:"file"`
	Primary string   `json:"primary"`
	Others  []string `json:"others"`
}

func newModulesCmd() *cobra.Command {
	var jsonMode bool
	cmd := &cobra.Command{
		Use:   "modules FILE",
		Short: "List the modules declared in a Verilog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := design.ReadSnapshot(args[0])
			if err != nil {
				return classify(err)
			}
			primary, err := verilog.DetectPrimaryModule(snap)
			if err != nil {
				return classify(err)
			}
			listing := moduleListing{
				File:    snap.Path,
				Primary: primary,
				Others:  verilog.ListOtherModules(snap, primary),
			}
			if listing.Others == nil {
				listing.Others = []string{}
			}

			out := cmd.OutOrStdout()
			if jsonMode {
				return report.RenderJSON(out, listing)
			}
			fmt.Fprintf(out, "Primary module: %s\n", listing.Primary)
			if len(listing.Others) > 0 {
				fmt.Fprintf(out, "Other modules:  %s\n", strings.Join(listing.Others, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output as JSON")
	return cmd
}
