// Package telemetry defines how membership operations are observed.
//
// The engine starts one Span per operation through an injected Observer and
// records named steps on it ("preflight.passed", "transaction.submitted",
// "verification.confirmed" and so on). Implementations translate that into
// their own medium:
//
//   - LogObserver writes slog records
//   - TraceObserver opens OpenTelemetry spans
//   - MetricsObserver feeds Prometheus counters and histograms
//   - pkg/journal persists one row per finished operation
//
// Multi combines several observers and Noop discards everything, which is the
// engine default.
//
//	obs := telemetry.Multi(
//		telemetry.NewLogObserver(log),
//		telemetry.NewTraceObserver(provider.Tracer()),
//		telemetry.NewMetricsObserver(registry),
//	)
//
// Attributes are slog.Attr values so the helpers in pkg/logger can be reused for
// every backend.
package telemetry
