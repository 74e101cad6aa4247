// Package redis connects to Redis and exposes it as a shared cache.Store.
//
// Connect retries the initial ping according to Config, which is populated from
// REDIS_* environment variables:
//
//	cfg, err := config.Load[redis.Config]()
//	client, err := redis.Connect(ctx, cfg)
//	defer client.Close()
//
//	store := redis.NewStore(client, cfg.KeyPrefix, 30*time.Second)
//	svc := membership.NewService(engineCfg, records, streams, submitter,
//		membership.WithCache(store))
//
// Healthcheck adapts the client to a readiness probe. Command failures are
// joined with ErrCommandFailed; a missing key is reported as a miss, not an
// error.
package redis
