package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/datanorm/datanorm/pkg/cache"
	"github.com/datanorm/datanorm/pkg/config"
	"github.com/datanorm/datanorm/pkg/frame"
	"github.com/datanorm/datanorm/pkg/loader"
)

func newLoadCommand() *cobra.Command {
	var (
		name         string
		section      string
		option       string
		selectorArgs []string
		dtypeArgs    []string
		indexColumns []string
		cachePath    string
		watch        bool
	)

	cmd := &cobra.Command{
		Use:   "load <config.ini>",
		Short: "Run a tabular load from CSV sources",
		Long: `Load raw CSV files named by an INI source configuration, run them
through the tabular pipeline and print the processed table.

The selector fills {key} placeholders in the configured path patterns.
With --watch the command keeps running and reprints the table whenever
a raw file changes.`,
		Example: `  # Load the 2024 balances for France
  datanorm load sources.ini --section balances --selector region=FR --selector year=2024

  # Coerce and index columns, cache the result
  datanorm load sources.ini --section balances --selector region=FR \
    --dtype value=float --index region --index year --cache /tmp/datanorm.db

  # Keep reloading on raw file changes
  datanorm load sources.ini --section balances --selector region=FR --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.New(config.Options{File: args[0]})
			if err != nil {
				return err
			}

			sel := loader.Selector{}
			for _, kv := range selectorArgs {
				key, value, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("invalid selector %q, want key=value", kv)
				}
				sel[key] = value
			}

			dtypes := map[string]frame.DType{}
			for _, kv := range dtypeArgs {
				col, dt, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("invalid dtype %q, want column=type", kv)
				}
				dtypes[col] = frame.DType(dt)
			}

			opts := loader.Options{
				Name:         name,
				DTypes:       dtypes,
				IndexColumns: indexColumns,
			}
			if opts.Name == "" {
				opts.Name = section
			}

			if cachePath != "" {
				store, err := openCache(ctx, cachePath)
				if err != nil {
					return err
				}
				defer store.Close()
				opts.Cache = store
			}

			src := &loader.CSVSource{Section: section, Option: option}
			l, err := loader.NewTabularLoader(src, cfg, opts)
			if err != nil {
				return err
			}

			if watch {
				return watchLoad(cmd, l, sel)
			}

			result, err := l.Load(ctx, sel)
			if err != nil {
				return err
			}
			printFrame(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "loader name (defaults to the section)")
	cmd.Flags().StringVar(&section, "section", "", "config section naming the source")
	cmd.Flags().StringVar(&option, "option", "paths", "section option listing path patterns")
	cmd.Flags().StringArrayVar(&selectorArgs, "selector", nil, "selector entry as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&dtypeArgs, "dtype", nil, "column coercion as column=type (repeatable)")
	cmd.Flags().StringArrayVar(&indexColumns, "index", nil, "column to promote to row identity (repeatable)")
	cmd.Flags().StringVar(&cachePath, "cache", "", "path to a SQLite cache database")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload when raw files change")
	_ = cmd.MarkFlagRequired("section")

	return cmd
}

// openCache opens, migrates and health-checks a cache store.
func openCache(ctx context.Context, path string) (*cache.Store, error) {
	store, err := cache.NewStore(cache.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// watchLoad runs an initial load, then blocks reprinting on every change
// until the command's context is cancelled.
func watchLoad(cmd *cobra.Command, l *loader.TabularLoader, sel loader.Selector) error {
	ctx := cmd.Context()

	result, err := l.Load(ctx, sel)
	if err != nil {
		return err
	}
	printFrame(cmd, result)

	w := loader.NewWatcher(l, log.Logger)
	err = w.Watch(ctx, sel, func(f *frame.Frame, err error) {
		if err != nil {
			log.Error().Err(err).Msg("reload failed")
			return
		}
		printFrame(cmd, f)
	})
	if err != nil {
		return err
	}
	defer w.Stop()

	log.Info().Msg("watching raw files, press Ctrl+C to stop")
	<-ctx.Done()
	return nil
}

// printFrame renders a processed table as tab-separated text.
func printFrame(cmd *cobra.Command, f *frame.Frame) {
	out := cmd.OutOrStdout()

	levels := f.IndexLevels()
	header := append(append([]string{}, levels...), f.Columns()...)
	fmt.Fprintln(out, strings.Join(header, "\t"))

	columns := make([][]string, 0, len(header))
	for _, name := range levels {
		s, err := f.IndexLevel(name)
		if err != nil {
			continue
		}
		columns = append(columns, s.Strings())
	}
	for _, name := range f.Columns() {
		s, err := f.Column(name)
		if err != nil {
			continue
		}
		columns = append(columns, s.Strings())
	}

	for i := 0; i < f.NumRows(); i++ {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j] = col[i]
		}
		fmt.Fprintln(out, strings.Join(row, "\t"))
	}
}
