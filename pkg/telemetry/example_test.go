package telemetry_test

import (
	"context"
	"fmt"
	"time"

	"github.com/datanorm/datanorm/pkg/telemetry"
)

// Example_basicSetup demonstrates basic telemetry setup.
func Example_basicSetup() {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceName = "datanorm"
	cfg.ServiceVersion = "1.0.0"

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	if err := tel.StartMetricsServer(); err != nil {
		panic(err)
	}

	ctx := tel.WithContext(context.Background())

	logger := telemetry.FromContext(ctx)
	logger.Info("Application started")

	// Output can vary, so we don't specify output for this example
}

// Example_loadRun demonstrates instrumenting a dataset load.
func Example_loadRun() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Logging.Output = "stdout"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	runID := "run-123"
	ctx = telemetry.WithLoadContext(ctx, runID, "balances")

	err := telemetry.RecordStageOperation(ctx, "balances", "coerce", func(ctx context.Context) error {
		logger := telemetry.FromContext(ctx).WithStage("coerce")
		logger.Debug("coercing column dtypes")
		return nil
	})

	telemetry.EndLoadContext(ctx, runID, "balances", 1200, err)
}

// Example_events demonstrates subscribing to load events.
func Example_events() {
	cfg := telemetry.DefaultConfig()
	cfg.Events.EnableAsync = false
	cfg.Logging.Output = "stdout"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	done := make(chan struct{})
	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Println(event.Type)
		close(done)
	}, telemetry.FilterByType(telemetry.EventTypeLoadFailed))

	_ = tel.Events.PublishLoadFailed("run-123", "balances", "raw file missing")

	select {
	case <-done:
	case <-time.After(time.Second):
	}

	// Output: load.failed
}
