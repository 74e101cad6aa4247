package logger

import (
	"context"
	"log/slog"
)

type operationIDKey struct{}

// WithOperationID stores the correlation id for the current engine operation.
// Loggers built by New attach it to every record logged with that context.
func WithOperationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operationIDKey{}, id)
}

// OperationIDFromContext returns the id stored by WithOperationID.
func OperationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(operationIDKey{}).(string)
	return id, ok && id != ""
}

func extractOperationID(ctx context.Context) (slog.Attr, bool) {
	if id, ok := OperationIDFromContext(ctx); ok {
		return OperationID(id), true
	}
	return slog.Attr{}, false
}
