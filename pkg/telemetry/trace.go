package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/creatorkit/membership"

// TraceObserver opens an OpenTelemetry span per operation.
type TraceObserver struct {
	tracer trace.Tracer
}

// NewTraceObserver creates a TraceObserver. A nil tracer uses the global provider.
func NewTraceObserver(tracer trace.Tracer) *TraceObserver {
	if tracer == nil {
		tracer = otel.GetTracerProvider().Tracer(tracerName)
	}
	return &TraceObserver{tracer: tracer}
}

func (o *TraceObserver) Start(ctx context.Context, op Operation, attrs ...slog.Attr) (context.Context, Span) {
	ctx, span := o.tracer.Start(ctx, "membership."+string(op),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("membership.operation", string(op))),
		trace.WithAttributes(otelAttrs(attrs)...),
	)
	return ctx, traceSpan{span: span}
}

type traceSpan struct {
	span trace.Span
}

func (s traceSpan) Event(name string, attrs ...slog.Attr) {
	s.span.AddEvent(name, trace.WithAttributes(otelAttrs(attrs)...))
}

func (s traceSpan) SetAttrs(attrs ...slog.Attr) {
	s.span.SetAttributes(otelAttrs(attrs)...)
}

func (s traceSpan) End(outcome Outcome, err error) {
	s.span.SetAttributes(attribute.String("membership.outcome", string(outcome)))
	switch {
	case err != nil && outcome == OutcomeFailed:
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	case err != nil:
		// Rejections leave the status unset.
		s.span.AddEvent("rejected", trace.WithAttributes(attribute.String("error", err.Error())))
	default:
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

func otelAttrs(attrs []slog.Attr) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		if a.Equal(slog.Attr{}) {
			continue
		}
		key := "membership." + a.Key
		v := a.Value.Resolve()
		switch v.Kind() {
		case slog.KindInt64:
			out = append(out, attribute.Int64(key, v.Int64()))
		case slog.KindUint64:
			out = append(out, attribute.Int64(key, int64(v.Uint64())))
		case slog.KindBool:
			out = append(out, attribute.Bool(key, v.Bool()))
		case slog.KindFloat64:
			out = append(out, attribute.Float64(key, v.Float64()))
		default:
			out = append(out, attribute.String(key, v.String()))
		}
	}
	return out
}
