package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsObserver counts operations and their durations in Prometheus.
type MetricsObserver struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	events     *prometheus.CounterVec
	now        func() time.Time
}

// NewMetricsObserver registers the membership collectors on reg.
// It panics if they are already registered there.
func NewMetricsObserver(reg prometheus.Registerer) *MetricsObserver {
	o := &MetricsObserver{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "membership",
			Name:      "operations_total",
			Help:      "Total number of membership operations by outcome",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "membership",
			Name:      "operation_duration_seconds",
			Help:      "Duration of membership operations in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "membership",
			Name:      "operation_events_total",
			Help:      "Total number of steps recorded inside membership operations",
		}, []string{"operation", "event"}),
		now: time.Now,
	}
	reg.MustRegister(o.operations, o.duration, o.events)
	return o
}

// Operations exposes the outcome counter, mainly for tests.
func (o *MetricsObserver) Operations() *prometheus.CounterVec { return o.operations }

// Events exposes the step counter, mainly for tests.
func (o *MetricsObserver) Events() *prometheus.CounterVec { return o.events }

func (o *MetricsObserver) Start(ctx context.Context, op Operation, _ ...slog.Attr) (context.Context, Span) {
	return ctx, &metricsSpan{o: o, op: string(op), start: o.now()}
}

type metricsSpan struct {
	o     *MetricsObserver
	op    string
	start time.Time
}

func (s *metricsSpan) Event(name string, _ ...slog.Attr) {
	s.o.events.WithLabelValues(s.op, name).Inc()
}

func (s *metricsSpan) SetAttrs(...slog.Attr) {}

func (s *metricsSpan) End(outcome Outcome, _ error) {
	s.o.operations.WithLabelValues(s.op, string(outcome)).Inc()
	s.o.duration.WithLabelValues(s.op).Observe(s.o.now().Sub(s.start).Seconds())
}
