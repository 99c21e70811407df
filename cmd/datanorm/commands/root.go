package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "datanorm",
		Short: "datanorm - statistical data normalization toolkit",
		Long: `datanorm normalizes published statistical data files into harmonized
tables.

Features:
  - Recursive variable substitution in YAML configuration trees
  - Vocabulary harmonization through label maps and hierarchies
  - A five-stage tabular loading pipeline with pluggable adjustments
  - Dataset descriptors with policy checks (OPA/rego)
  - A SQLite cache for processed datasets`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newResolveCommand())
	rootCmd.AddCommand(newLabelsCommand())
	rootCmd.AddCommand(newLoadCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newCacheCommand())

	return rootCmd
}
