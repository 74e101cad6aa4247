package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/creatorkit/membership/pkg/logger"
)

// LogObserver writes operation lifecycles to a slog.Logger.
type LogObserver struct {
	log *slog.Logger
	now func() time.Time
}

// NewLogObserver creates a LogObserver. A nil logger uses slog.Default.
func NewLogObserver(log *slog.Logger) *LogObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LogObserver{log: log, now: time.Now}
}

func (o *LogObserver) Start(ctx context.Context, op Operation, attrs ...slog.Attr) (context.Context, Span) {
	s := &logSpan{
		ctx:   ctx,
		log:   o.log.With(logger.Operation(string(op))),
		now:   o.now,
		start: o.now(),
		attrs: append([]slog.Attr(nil), attrs...),
	}
	s.log.LogAttrs(ctx, slog.LevelDebug, "operation started", attrs...)
	return ctx, s
}

type logSpan struct {
	ctx   context.Context
	log   *slog.Logger
	now   func() time.Time
	start time.Time

	mu    sync.Mutex
	attrs []slog.Attr
}

func (s *logSpan) Event(name string, attrs ...slog.Attr) {
	s.log.LogAttrs(s.ctx, slog.LevelDebug, name, attrs...)
}

func (s *logSpan) SetAttrs(attrs ...slog.Attr) {
	s.mu.Lock()
	s.attrs = append(s.attrs, attrs...)
	s.mu.Unlock()
}

func (s *logSpan) End(outcome Outcome, err error) {
	s.mu.Lock()
	attrs := append(s.attrs, logger.Outcome(string(outcome)), logger.Duration(s.now().Sub(s.start)), logger.Error(err))
	s.mu.Unlock()

	level := slog.LevelInfo
	switch outcome {
	case OutcomeRejected, OutcomeNotFound:
		level = slog.LevelWarn
	case OutcomeFailed:
		level = slog.LevelError
	}
	s.log.LogAttrs(s.ctx, level, "operation finished", attrs...)
}
