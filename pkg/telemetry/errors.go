package telemetry

import "errors"

// ErrTracingDisabled is returned by NewProvider when no exporter endpoint is configured.
var ErrTracingDisabled = errors.New("telemetry: tracing disabled, no OTLP endpoint configured")
