package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/datanorm/datanorm/pkg/resolve"
)

func newResolveCommand() *cobra.Command {
	var (
		maxPasses int
		separator string
	)

	cmd := &cobra.Command{
		Use:   "resolve <file>",
		Short: "Resolve variable references in a YAML file",
		Long: `Resolve ${a/b/c} variable references in a YAML configuration tree
and print the fully resolved tree.

Resolution repeats until a fixed point is reached; circular references
fail once the pass budget is exhausted.`,
		Example: `  # Resolve a config file
  datanorm resolve config.yaml

  # Allow deeper reference chains
  datanorm resolve --max-passes 50 config.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []resolve.Option{
				resolve.WithMaxPasses(maxPasses),
				resolve.WithSeparator(separator),
			}
			resolved, err := resolve.ResolveFile(args[0], opts...)
			if err != nil {
				return err
			}

			var out []byte
			if jsonOutput {
				out, err = json.MarshalIndent(resolved, "", "  ")
			} else {
				out, err = yaml.Marshal(resolved)
			}
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().IntVar(&maxPasses, "max-passes", resolve.DefaultMaxPasses, "resolution pass budget")
	cmd.Flags().StringVar(&separator, "separator", resolve.DefaultSeparator, "path segment separator")

	return cmd
}
