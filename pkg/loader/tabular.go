package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/datanorm/datanorm/pkg/cache"
	"github.com/datanorm/datanorm/pkg/config"
	"github.com/datanorm/datanorm/pkg/frame"
	"github.com/datanorm/datanorm/pkg/labels"
	"github.com/datanorm/datanorm/pkg/telemetry"
)

// FrameFunc is a whole-table adjustment. It receives the current table and
// returns the adjusted one.
type FrameFunc func(*frame.Frame) (*frame.Frame, error)

// SeriesFunc is a single-column adjustment. It must depend only on its own
// column's values; no ordering guarantee is made across columns.
type SeriesFunc func(*frame.Series) (*frame.Series, error)

// Processor turns a raw table into a processed one for a representation.
type Processor func(ctx context.Context, raw *frame.Frame) (*frame.Frame, error)

// Options configures a TabularLoader. All defaults are resolved once at
// construction; the loader never patches itself afterwards.
type Options struct {
	// Name identifies the loader in logs, metrics and cache entries.
	Name string `validate:"required"`

	// Representation selects which bound processor Load runs. Defaults to
	// Table.
	Representation Representation

	// DTypes maps column names to target types for the coercion stage.
	// Unmapped columns pass through unchanged.
	DTypes map[string]frame.DType

	// IndexColumns are promoted to row identity after adjustments. Empty
	// leaves the default positional identity.
	IndexColumns []string

	// PreAdjust are whole-table transforms applied left to right before
	// column adjustments.
	PreAdjust []FrameFunc

	// ColumnAdjust maps column names to ordered transform lists. The table
	// is compacted after each column's list completes.
	ColumnAdjust map[string][]SeriesFunc

	// PostAdjust are whole-table transforms applied after column
	// adjustments.
	PostAdjust []FrameFunc

	// Processors binds additional representations beyond Table, which is
	// always bound to the five-stage tabular pipeline.
	Processors map[Representation]Processor

	// Cache, when set, persists processed tables per loader and selector
	// and serves repeat loads without re-running the pipeline.
	Cache *cache.Store

	// Telemetry, when set, instruments loads with logs, spans, metrics and
	// events.
	Telemetry *telemetry.Telemetry
}

var validate = validator.New()

// TabularLoader runs the locate, read, process pipeline for one source.
// Each loader owns its configuration and adjustment lists exclusively.
type TabularLoader struct {
	source     Source
	cfg        *config.SourceConfig
	opts       Options
	processors map[Representation]Processor
}

// NewTabularLoader constructs a loader for a source and its configuration.
func NewTabularLoader(source Source, cfg *config.SourceConfig, opts Options) (*TabularLoader, error) {
	if source == nil {
		return nil, pipelineErr(KindConfiguration, "construct", fmt.Errorf("source is required"))
	}
	if cfg == nil {
		return nil, pipelineErr(KindConfiguration, "construct", fmt.Errorf("source config is required"))
	}
	if err := validate.Struct(opts); err != nil {
		return nil, pipelineErr(KindConfiguration, "construct", err)
	}
	if !opts.Representation.Valid() {
		return nil, pipelineErr(KindConfiguration, "construct",
			fmt.Errorf("unknown representation %d", int(opts.Representation)))
	}

	l := &TabularLoader{
		source:     source,
		cfg:        cfg,
		opts:       opts,
		processors: make(map[Representation]Processor, len(opts.Processors)+1),
	}
	for repr, p := range opts.Processors {
		l.processors[repr] = p
	}
	l.processors[Table] = l.processTabular
	return l, nil
}

// Name returns the loader's name.
func (l *TabularLoader) Name() string { return l.opts.Name }

// Load runs the pipeline for a selector: locate raw files, read them,
// process the result. When a cache is configured, a previously processed
// table for the same selector is returned directly.
func (l *TabularLoader) Load(ctx context.Context, sel Selector) (*frame.Frame, error) {
	runID := uuid.New().String()
	if l.opts.Telemetry != nil {
		ctx = l.opts.Telemetry.WithContext(ctx)
	}
	ctx = telemetry.WithLoadContext(ctx, runID, l.opts.Name)

	result, err := l.load(ctx, runID, sel)
	rows := 0
	if result != nil {
		rows = result.NumRows()
	}
	if err != nil && l.opts.Telemetry != nil {
		l.opts.Telemetry.Metrics.RecordError(string(KindOf(err)))
	}
	telemetry.EndLoadContext(ctx, runID, l.opts.Name, rows, err)
	return result, err
}

func (l *TabularLoader) load(ctx context.Context, runID string, sel Selector) (*frame.Frame, error) {
	tel := telemetry.FromTelemetryContext(ctx)
	key := cache.CanonicalSelector(sel)

	if l.opts.Cache != nil {
		cached, _, err := l.opts.Cache.Get(ctx, l.opts.Name, key)
		switch {
		case err == nil:
			if tel != nil {
				tel.Metrics.RecordCacheHit(l.opts.Name)
			}
			return cached, nil
		case errors.Is(err, cache.ErrNotFound):
			if tel != nil {
				tel.Metrics.RecordCacheMiss(l.opts.Name)
			}
		default:
			return nil, pipelineErr(KindIO, "cache", err)
		}
	}

	var paths []string
	err := telemetry.RecordStageOperation(ctx, l.opts.Name, "locate", func(ctx context.Context) error {
		var err error
		paths, err = l.source.RawDataPaths(l.cfg, sel)
		if err != nil {
			return classify(KindConfiguration, "locate", err)
		}
		for _, p := range paths {
			if _, err := os.Stat(p); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return pipelineErr(KindConfiguration, "locate",
						fmt.Errorf("raw file %s: %w", p, err))
				}
				return pipelineErr(KindIO, "locate", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var raw *frame.Frame
	err = telemetry.RecordStageOperation(ctx, l.opts.Name, "read", func(ctx context.Context) error {
		var err error
		raw, err = l.source.ReadRawData(paths, l.cfg)
		if err != nil {
			return classify(KindIO, "read", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	processed, err := l.Process(ctx, raw, l.opts.Representation)
	if err != nil {
		return nil, err
	}

	if l.opts.Cache != nil {
		if _, err := l.opts.Cache.Put(ctx, l.opts.Name, key, runID, processed); err != nil {
			return nil, pipelineErr(KindIO, "cache", err)
		}
	}
	return processed, nil
}

// Process runs the processor bound to the given representation over a raw
// table. Requesting an unbound representation returns a RepresentationError.
func (l *TabularLoader) Process(ctx context.Context, raw *frame.Frame, repr Representation) (*frame.Frame, error) {
	p, ok := l.processors[repr]
	if !ok {
		return nil, pipelineErr(KindConfiguration, "process", &RepresentationError{Requested: repr})
	}
	return p(ctx, raw)
}

// processTabular is the Table processor: coerce, global pre, per-column,
// global post, index.
func (l *TabularLoader) processTabular(ctx context.Context, raw *frame.Frame) (*frame.Frame, error) {
	var f *frame.Frame
	err := telemetry.RecordStageOperation(ctx, l.opts.Name, "coerce", func(context.Context) error {
		var err error
		f, err = raw.CoerceTypes(l.opts.DTypes)
		if err != nil {
			return pipelineErr(KindConfiguration, "coerce", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = telemetry.RecordStageOperation(ctx, l.opts.Name, "pre_adjust", func(context.Context) error {
		for i, fn := range l.opts.PreAdjust {
			adjusted, err := fn(f)
			if err != nil {
				return classify(KindConfiguration, fmt.Sprintf("pre_adjust[%d]", i), err)
			}
			f = adjusted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = telemetry.RecordStageOperation(ctx, l.opts.Name, "column_adjust", func(context.Context) error {
		// Iteration order across columns is unspecified by contract;
		// sorting keeps the output reproducible anyway.
		names := make([]string, 0, len(l.opts.ColumnAdjust))
		for name := range l.opts.ColumnAdjust {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			col, err := f.Column(name)
			if err != nil {
				return pipelineErr(KindConfiguration, "column_adjust", err)
			}
			for i, fn := range l.opts.ColumnAdjust[name] {
				adjusted, err := fn(col)
				if err != nil {
					return classify(KindConfiguration,
						fmt.Sprintf("column_adjust[%s][%d]", name, i), err)
				}
				col = adjusted
			}
			if err := f.SetColumn(col.Rename(name)); err != nil {
				return pipelineErr(KindConfiguration, "column_adjust", err)
			}
			f.Compact()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = telemetry.RecordStageOperation(ctx, l.opts.Name, "post_adjust", func(context.Context) error {
		for i, fn := range l.opts.PostAdjust {
			adjusted, err := fn(f)
			if err != nil {
				return classify(KindConfiguration, fmt.Sprintf("post_adjust[%d]", i), err)
			}
			f = adjusted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = telemetry.RecordStageOperation(ctx, l.opts.Name, "index", func(context.Context) error {
		if err := f.SetIndex(l.opts.IndexColumns); err != nil {
			return pipelineErr(KindConfiguration, "index", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// classify wraps err as a PipelineError of the fallback kind unless it is
// already classified or carries a known domain error.
func classify(fallback ErrorKind, op string, err error) error {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return err
	}
	var te *labels.TranslationError
	if errors.As(err, &te) {
		return pipelineErr(KindTranslation, op, err)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return pipelineErr(KindConfiguration, op, err)
	}
	return pipelineErr(fallback, op, err)
}
