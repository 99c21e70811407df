package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the datanorm pipeline.
type Metrics struct {
	config MetricsConfig

	// Load metrics
	loadsStarted   *prometheus.CounterVec
	loadsCompleted *prometheus.CounterVec
	loadDuration   *prometheus.HistogramVec

	// Pipeline stage metrics
	stageDuration *prometheus.HistogramVec
	rowsProcessed *prometheus.CounterVec

	// Label harmonization metrics
	translations      *prometheus.CounterVec
	translationMisses *prometheus.CounterVec

	// Cache metrics
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// Error metrics
	errorsByKind *prometheus.CounterVec

	// System metrics
	activeLoads  prometheus.Gauge
	watchedFiles prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// No-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		loadsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "loads_started_total",
				Help:      "Total number of dataset loads started",
			},
			[]string{"loader"},
		),
		loadsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "loads_completed_total",
				Help:      "Total number of dataset loads completed",
			},
			[]string{"loader", "status"},
		),
		loadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "load_duration_seconds",
				Help:      "Duration of dataset loads in seconds",
				Buckets:   buckets,
			},
			[]string{"loader", "status"},
		),

		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   buckets,
			},
			[]string{"loader", "stage"},
		),
		rowsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_processed_total",
				Help:      "Total number of rows produced by the pipeline",
			},
			[]string{"loader"},
		),

		translations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "translations_total",
				Help:      "Total number of values translated between axes",
			},
			[]string{"labelset"},
		),
		translationMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "translation_misses_total",
				Help:      "Total number of values with no vocabulary entry",
			},
			[]string{"labelset", "axis"},
		),

		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of processed-dataset cache hits",
			},
			[]string{"loader"},
		),
		cacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of processed-dataset cache misses",
			},
			[]string{"loader"},
		),

		errorsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors by kind",
			},
			[]string{"kind"},
		),

		activeLoads: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_loads",
				Help:      "Current number of in-flight loads",
			},
		),
		watchedFiles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "watched_files",
				Help:      "Current number of raw files under watch",
			},
		),
	}

	registry.MustRegister(
		m.loadsStarted,
		m.loadsCompleted,
		m.loadDuration,
		m.stageDuration,
		m.rowsProcessed,
		m.translations,
		m.translationMisses,
		m.cacheHits,
		m.cacheMisses,
		m.errorsByKind,
		m.activeLoads,
		m.watchedFiles,
	)

	return m, nil
}

// Load Metrics

// RecordLoadStarted increments the counter for started loads.
func (m *Metrics) RecordLoadStarted(loader string) {
	if m.loadsStarted == nil {
		return
	}
	m.loadsStarted.WithLabelValues(loader).Inc()
	m.activeLoads.Inc()
}

// RecordLoadCompleted records a completed load with its status and duration.
func (m *Metrics) RecordLoadCompleted(loader, status string, duration time.Duration) {
	if m.loadsCompleted == nil {
		return
	}
	m.loadsCompleted.WithLabelValues(loader, status).Inc()
	m.loadDuration.WithLabelValues(loader, status).Observe(duration.Seconds())
	m.activeLoads.Dec()
}

// Stage Metrics

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(loader, stage string, duration time.Duration) {
	if m.stageDuration == nil {
		return
	}
	m.stageDuration.WithLabelValues(loader, stage).Observe(duration.Seconds())
}

// AddRowsProcessed counts rows produced by a load.
func (m *Metrics) AddRowsProcessed(loader string, rows int) {
	if m.rowsProcessed == nil {
		return
	}
	m.rowsProcessed.WithLabelValues(loader).Add(float64(rows))
}

// Translation Metrics

// RecordTranslation counts translated values for a label set.
func (m *Metrics) RecordTranslation(labelset string, values int) {
	if m.translations == nil {
		return
	}
	m.translations.WithLabelValues(labelset).Add(float64(values))
}

// RecordTranslationMiss counts a value with no vocabulary entry.
func (m *Metrics) RecordTranslationMiss(labelset, axis string) {
	if m.translationMisses == nil {
		return
	}
	m.translationMisses.WithLabelValues(labelset, axis).Inc()
}

// Cache Metrics

// RecordCacheHit counts a processed-dataset cache hit.
func (m *Metrics) RecordCacheHit(loader string) {
	if m.cacheHits == nil {
		return
	}
	m.cacheHits.WithLabelValues(loader).Inc()
}

// RecordCacheMiss counts a processed-dataset cache miss.
func (m *Metrics) RecordCacheMiss(loader string) {
	if m.cacheMisses == nil {
		return
	}
	m.cacheMisses.WithLabelValues(loader).Inc()
}

// Error Metrics

// RecordError records an error by kind (configuration, resolution,
// translation, io).
func (m *Metrics) RecordError(kind string) {
	if m.errorsByKind == nil {
		return
	}
	m.errorsByKind.WithLabelValues(kind).Inc()
}

// System Metrics

// SetWatchedFiles sets the current number of raw files under watch.
func (m *Metrics) SetWatchedFiles(count float64) {
	if m.watchedFiles == nil {
		return
	}
	m.watchedFiles.Set(count)
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
