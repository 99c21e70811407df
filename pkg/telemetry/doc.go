// Package telemetry provides observability instrumentation for datanorm:
// structured logging (zerolog), distributed tracing (OpenTelemetry),
// Prometheus metrics, and an async event stream for load-run auditing.
//
// Initialize once at startup:
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// Components pick their instruments out of the context:
//
//	log := telemetry.FromContext(ctx).NewComponentLogger("loader")
//	log.WithLoader("balances").Info("load started")
package telemetry
