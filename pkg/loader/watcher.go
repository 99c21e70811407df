package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/datanorm/datanorm/pkg/cache"
	"github.com/datanorm/datanorm/pkg/frame"
)

// reloadDelay debounces bursts of file system events into one reload.
const reloadDelay = 500 * time.Millisecond

// Watcher re-runs a loader when its raw files change on disk.
type Watcher struct {
	loader  *TabularLoader
	logger  zerolog.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for a loader.
func NewWatcher(loader *TabularLoader, logger zerolog.Logger) *Watcher {
	return &Watcher{
		loader: loader,
		logger: logger.With().Str("component", "raw-file-watcher").Str("loader", loader.Name()).Logger(),
	}
}

// Watch locates the loader's raw files for a selector, watches them, and
// re-runs Load on change. The result of each re-run is handed to onChange.
// Watch returns immediately; watching stops when ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context, sel Selector, onChange func(*frame.Frame, error)) error {
	paths, err := w.loader.source.RawDataPaths(w.loader.cfg, sel)
	if err != nil {
		return classify(KindConfiguration, "watch", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	w.watcher = watcher

	for _, p := range paths {
		if err := watcher.Add(p); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
	}
	if tel := w.loader.opts.Telemetry; tel != nil {
		tel.Metrics.SetWatchedFiles(float64(len(paths)))
	}

	go w.processEvents(ctx, sel, onChange)

	w.logger.Info().Int("files", len(paths)).Msg("watching raw files")
	return nil
}

// processEvents handles file system events and triggers debounced reloads.
func (w *Watcher) processEvents(ctx context.Context, sel Selector, onChange func(*frame.Frame, error)) {
	var reloadTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			_ = w.watcher.Close()
			if tel := w.loader.opts.Telemetry; tel != nil {
				tel.Metrics.SetWatchedFiles(0)
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("raw file changed")
			if tel := w.loader.opts.Telemetry; tel != nil {
				_ = tel.Events.PublishRawFileChanged(w.loader.Name(), event.Name)
			}

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(reloadDelay, func() {
				w.reload(ctx, sel, onChange)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("watcher error")
		}
	}
}

// reload evicts any cached result and re-runs the load.
func (w *Watcher) reload(ctx context.Context, sel Selector, onChange func(*frame.Frame, error)) {
	w.logger.Info().Msg("reloading after raw file change")

	if c := w.loader.opts.Cache; c != nil {
		err := c.Evict(ctx, w.loader.Name(), cache.CanonicalSelector(sel))
		if err != nil && !errors.Is(err, cache.ErrNotFound) {
			w.logger.Warn().Err(err).Msg("failed to evict stale cache entry")
		}
	}

	f, err := w.loader.Load(ctx, sel)
	if err != nil {
		w.logger.Error().Err(err).Msg("reload failed")
	} else {
		w.logger.Info().Int("rows", f.NumRows()).Msg("reload complete")
	}
	if onChange != nil {
		onChange(f, err)
	}
}

// Stop stops watching for file changes.
func (w *Watcher) Stop() error {
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
