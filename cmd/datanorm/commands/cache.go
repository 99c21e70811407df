package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/datanorm/datanorm/pkg/cache"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and evict processed dataset cache entries",
	}

	cmd.AddCommand(newCacheListCommand())
	cmd.AddCommand(newCacheEvictCommand())

	return cmd
}

func newCacheListCommand() *cobra.Command {
	var (
		dbPath string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached dataset entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openCache(ctx, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(ctx, limit, offset)
			if err != nil {
				return err
			}

			if jsonOutput {
				data, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-24s %-32s %8s  %s\n", "LOADER", "SELECTOR", "ROWS", "CREATED")
			for _, e := range entries {
				fmt.Fprintf(out, "%-24s %-32s %8d  %s\n",
					e.Loader, e.Selector, e.Rows, e.CreatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to the SQLite cache database")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "entries to skip")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func newCacheEvictCommand() *cobra.Command {
	var (
		dbPath     string
		loaderName string
		selector   string
		olderThan  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "evict",
		Short: "Evict cache entries",
		Example: `  # Evict one entry
  datanorm cache evict --db /tmp/datanorm.db --loader balances --selector "region=FR&year=2024"

  # Evict everything older than a week
  datanorm cache evict --db /tmp/datanorm.db --older-than 168h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openCache(ctx, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if olderThan > 0 {
				n, err := store.EvictOlderThan(ctx, time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "evicted %d entries\n", n)
				return nil
			}

			if loaderName == "" || selector == "" {
				return fmt.Errorf("either --older-than or both --loader and --selector are required")
			}
			if err := store.Evict(ctx, loaderName, selector); err != nil {
				if errors.Is(err, cache.ErrNotFound) {
					return fmt.Errorf("no cache entry for loader %q selector %q", loaderName, selector)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "evicted 1 entry")
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to the SQLite cache database")
	cmd.Flags().StringVar(&loaderName, "loader", "", "loader name of the entry to evict")
	cmd.Flags().StringVar(&selector, "selector", "", "canonical selector of the entry to evict")
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "evict all entries older than this duration")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}
