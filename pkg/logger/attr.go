package logger

import (
	"fmt"
	"log/slog"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error records err under the key "error". A nil error yields an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// Subscriber records the subscriber identity under "subscriber".
func Subscriber(id fmt.Stringer) slog.Attr {
	return stringer("subscriber", id)
}

// Target records the membership target, "platform" or a creator identity, under "target".
func Target(target fmt.Stringer) slog.Attr {
	return stringer("target", target)
}

// StreamID records a payment stream identifier under "stream_id".
// An empty id yields an empty Attr.
func StreamID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("stream_id", id)
}

// Signature records a submitted transaction signature under "signature".
func Signature(sig string) slog.Attr {
	if sig == "" {
		return slog.Attr{}
	}
	return slog.String("signature", sig)
}

// Operation records the engine operation name under "operation".
func Operation(name string) slog.Attr {
	return slog.String("operation", name)
}

// OperationID records the per-call correlation id under "operation_id".
func OperationID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("operation_id", id)
}

// Amount records an amount in base units under "amount".
func Amount(units uint64) slog.Attr {
	return slog.Uint64("amount", units)
}

// Outcome records an operation outcome under "outcome".
func Outcome(outcome string) slog.Attr {
	return slog.String("outcome", outcome)
}

// Duration records a duration under "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func stringer(key string, v fmt.Stringer) slog.Attr {
	if v == nil {
		return slog.Attr{}
	}
	return slog.String(key, v.String())
}
