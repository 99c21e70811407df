package commands

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/datanorm/datanorm/pkg/descriptor"
	"github.com/datanorm/datanorm/pkg/policy"
	"github.com/datanorm/datanorm/pkg/telemetry"
)

func newValidateCommand() *cobra.Command {
	var (
		key         string
		policyPaths []string
		enforcing   bool
	)

	cmd := &cobra.Command{
		Use:   "validate <descriptors.yaml>",
		Short: "Validate dataset descriptors against policies",
		Long: `Load dataset descriptors from a YAML file, resolve variable
references, validate their structure and evaluate them against the
built-in policies plus any custom rego or JSON policy files.

In advisory mode (the default) violations are reported but the command
succeeds. With --enforcing, error and critical violations fail the
command.`,
		Example: `  # Validate with the built-in policies
  datanorm validate descriptors.yaml

  # Fail the build on error-severity violations
  datanorm validate --enforcing descriptors.yaml

  # Add custom policies from a directory
  datanorm validate --policies ./policies descriptors.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			descriptors, err := descriptor.LoadAll(args[0], key)
			if err != nil {
				return err
			}
			log.Info().Int("descriptors", len(descriptors)).Msg("descriptors loaded")

			mode := policy.ModeAdvisory
			if enforcing {
				mode = policy.ModeEnforcing
			}
			engine, err := policy.NewEngine(log.Logger, mode)
			if err != nil {
				return err
			}
			events, err := telemetry.NewEventPublisher(telemetry.EventsConfig{Enabled: true})
			if err != nil {
				return err
			}
			events.Subscribe(func(ev telemetry.Event) {
				log.Warn().Str("dataset", ev.Dataset).Msg(ev.Message)
			}, telemetry.FilterByType(telemetry.EventTypePolicyViolation))
			engine.SetEvents(events)
			if len(policyPaths) > 0 {
				if err := engine.LoadPolicies(ctx, policyPaths); err != nil {
					return err
				}
			}

			result, err := engine.EvaluateAll(ctx, descriptors)
			if err != nil {
				return err
			}

			if jsonOutput {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			} else {
				printResult(cmd, descriptors, result)
			}

			if !result.Allowed {
				return fmt.Errorf("%d policy violation(s) in enforcing mode", len(result.Violations))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", descriptor.DefaultDatasetsKey, "top-level key holding the descriptor list")
	cmd.Flags().StringArrayVar(&policyPaths, "policies", nil, "policy file or directory (repeatable)")
	cmd.Flags().BoolVar(&enforcing, "enforcing", false, "fail on error-severity violations")

	return cmd
}

func printResult(cmd *cobra.Command, descriptors map[string]*descriptor.Descriptor, result *policy.Result) {
	out := cmd.OutOrStdout()

	keys := make([]string, 0, len(descriptors))
	for k := range descriptors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "dataset: %s\n", k)
	}

	fmt.Fprintf(out, "\npolicies evaluated: %d\n", len(result.EvaluatedPolicies))
	if len(result.Violations) == 0 {
		fmt.Fprintln(out, "no violations")
		return
	}

	fmt.Fprintf(out, "violations: %d\n", len(result.Violations))
	for _, v := range result.Violations {
		fmt.Fprintf(out, "  [%s] %s: %s (policy %s)\n", v.Severity, v.Dataset, v.Message, v.Policy)
		if v.Remediation != "" {
			fmt.Fprintf(out, "      remediation: %s\n", v.Remediation)
		}
	}
}
