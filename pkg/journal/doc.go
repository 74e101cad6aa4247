// Package journal keeps a PostgreSQL audit trail of membership operations.
//
// Store implements telemetry.Observer: every finished join, renew or cancel
// becomes one membership_operations row carrying the outcome, the steps the
// operation went through, the stream and signature it produced and the error,
// if any. Combine it with the log, trace and metrics observers:
//
//	journal := journal.NewStore(pool, journal.WithSkip(telemetry.OpStatus))
//	obs := telemetry.Multi(telemetry.NewLogObserver(log), journal)
//
// The schema ships in Migrations.
package journal
