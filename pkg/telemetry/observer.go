package telemetry

import (
	"context"
	"log/slog"
)

// Operation names an engine entry point.
type Operation string

const (
	OpJoin      Operation = "join"
	OpRenew     Operation = "renew"
	OpCancel    Operation = "cancel"
	OpPreflight Operation = "preflight"
	OpStatus    Operation = "status"
)

// Outcome classifies how an operation finished.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
	OutcomeNotFound Outcome = "not_found"
)

// Observer receives the lifecycle of every engine operation. Implementations
// must be safe for concurrent use and must not fail the operation they observe.
type Observer interface {
	Start(ctx context.Context, op Operation, attrs ...slog.Attr) (context.Context, Span)
}

// Span is one observed operation.
type Span interface {
	// Event records a named step inside the operation.
	Event(name string, attrs ...slog.Attr)
	// SetAttrs attaches attributes learned after Start, such as a stream id.
	SetAttrs(attrs ...slog.Attr)
	// End finishes the span. It must be called exactly once.
	End(outcome Outcome, err error)
}

// Noop returns an Observer that records nothing.
func Noop() Observer { return noopObserver{} }

type noopObserver struct{}

func (noopObserver) Start(ctx context.Context, _ Operation, _ ...slog.Attr) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) Event(string, ...slog.Attr) {}
func (noopSpan) SetAttrs(...slog.Attr)      {}
func (noopSpan) End(Outcome, error)         {}

// Multi fans every call out to all observers in order. Nil observers are skipped.
func Multi(observers ...Observer) Observer {
	clean := make([]Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			clean = append(clean, o)
		}
	}
	switch len(clean) {
	case 0:
		return Noop()
	case 1:
		return clean[0]
	}
	return multiObserver(clean)
}

type multiObserver []Observer

func (m multiObserver) Start(ctx context.Context, op Operation, attrs ...slog.Attr) (context.Context, Span) {
	spans := make(multiSpan, 0, len(m))
	for _, o := range m {
		var span Span
		ctx, span = o.Start(ctx, op, attrs...)
		spans = append(spans, span)
	}
	return ctx, spans
}

type multiSpan []Span

func (m multiSpan) Event(name string, attrs ...slog.Attr) {
	for _, s := range m {
		s.Event(name, attrs...)
	}
}

func (m multiSpan) SetAttrs(attrs ...slog.Attr) {
	for _, s := range m {
		s.SetAttrs(attrs...)
	}
}

func (m multiSpan) End(outcome Outcome, err error) {
	for i := len(m) - 1; i >= 0; i-- {
		m[i].End(outcome, err)
	}
}
