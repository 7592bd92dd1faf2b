// Package telemetry wires OpenTelemetry tracing and metrics for dartrag.
//
// A MeterProvider is always installed with an otel Prometheus reader, so
// every instrument registered through otel.Meter shows up at /metrics. When
// telemetry is enabled, spans and metrics are also pushed to an OTLP
// collector over gRPC or HTTP.
//
//	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version), logger)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//	e.GET("/metrics", echo.WrapHandler(tel.Handler()))
//
// Exporter failures degrade the instance rather than failing startup.
//
// Tests use NewTestTelemetry to record spans and metrics in memory.
package telemetry
