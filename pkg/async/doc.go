// Package async runs independent reads concurrently and collects their results.
//
// The membership engine uses it to issue the configuration read and the
// subscription record read of a preflight check in parallel:
//
//	cfgF := async.Go(ctx, func(ctx context.Context) (*Config, error) { return reader.Config(ctx, target) })
//	recF := async.Go(ctx, func(ctx context.Context) (*Record, error) { return reader.Record(ctx, sub, target) })
//
//	cfg, cfgErr := cfgF.Await(ctx)
//	rec, recErr := recF.Await(ctx)
package async
