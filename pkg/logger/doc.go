// Package logger builds the structured slog loggers used across the module.
//
// New returns a *slog.Logger configured through functional options. The
// handler is wrapped so attributes carried in the context, most importantly the
// operation id set by WithOperationID, land on every record without callers
// passing them around.
//
//	log := logger.New(logger.WithEnvironment("production", "membership-api"))
//	ctx = logger.WithOperationID(ctx, uuid.NewString())
//	log.InfoContext(ctx, "membership joined",
//		logger.Subscriber(subscriber),
//		logger.Target(target),
//		logger.StreamID(streamID),
//		logger.Amount(amount),
//	)
//
// The attribute helpers keep key names consistent between packages. Helpers for
// optional values return an empty slog.Attr, which slog drops.
package logger
