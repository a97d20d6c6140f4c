package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/sigtrace/internal/config"
)

func newInitCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sigtrace.json configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			// Check if file already exists
			if _, err := os.Stat(configPath); err == nil {
				fmt.Fprintf(out, "Config file %s already exists. Overwrite? [y/N]: ", configPath)
				response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				response = strings.TrimSpace(response)
				if response != "y" && response != "Y" {
					fmt.Fprintln(out, "Aborted.")
					return nil
				}
			}

			cfg := config.DefaultConfig()
			if err := cfg.Save(configPath); err != nil {
				return &ExitError{Code: ExitUsage, Err: fmt.Errorf("creating config: %w", err)}
			}

			fmt.Fprintf(out, "Created %s\n", configPath)
			fmt.Fprintln(out, "\nEdit this file to configure:")
			fmt.Fprintln(out, "  - The yosys binary and backend timeouts")
			fmt.Fprintln(out, "  - The default proof mode and depth")
			fmt.Fprintln(out, "  - Scala source roots for report excerpts")
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "path", "sigtrace.json", "Where to write the configuration")
	return cmd
}
