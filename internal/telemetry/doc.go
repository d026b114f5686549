// Package telemetry provides OpenTelemetry instrumentation for the convergence controller.
//
// # Overview
//
// This package implements distributed tracing and metrics collection using the
// OpenTelemetry Go SDK. It exports telemetry data to an OTEL Collector, which
// forwards to VictoriaMetrics (metrics, logs, traces).
//
// # Usage
//
// Create telemetry instance:
//
//	cfg := telemetry.NewDefaultConfig()
//	tel, err := telemetry.New(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(ctx)
//
// Use tracer and meter, or the round helpers in rounds.go:
//
//	tracer := tel.Tracer("convergence.round")
//	ctx, span := tracer.Start(ctx, "convergence.round")
//	defer span.End()
//
//	meter := tel.Meter("convergence.round")
//	gauges := telemetry.NewStabilityGauges(meter)
//	gauges.Record(ctx, contradictionRatio, decisionReuseRate, planSimilarity, goalConvergence, overall)
//
// # Configuration
//
// Config is built in code from NewDefaultConfig. The config file carries
// only the observability section, which cmd/converge and internal/durable
// copy into Enabled and ServiceName:
//
//	observability:
//	  enable_telemetry: true
//	  service_name: "convergence"
//
// Endpoint, sampling, metrics and shutdown settings keep their
// NewDefaultConfig values unless set in code.
//
// # Error Handling
//
// Telemetry failures do not crash the application. If telemetry cannot be
// initialized, the instance degrades gracefully and returns no-op providers.
//
// # Testing
//
// Use TestTelemetry for tests:
//
//	tt := telemetry.NewTestTelemetry()
//	tracer := tt.Tracer("test")
//	_, span := tracer.Start(ctx, "test-span")
//	span.End()
//	tt.AssertSpanExists(t, "test-span")
//
package telemetry
