// Command membership-api serves membership records, streams and resolved
// membership status over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/creatorkit/membership/pkg/cache"
	"github.com/creatorkit/membership/pkg/config"
	"github.com/creatorkit/membership/pkg/httpserver"
	"github.com/creatorkit/membership/pkg/journal"
	"github.com/creatorkit/membership/pkg/ledger"
	"github.com/creatorkit/membership/pkg/logger"
	"github.com/creatorkit/membership/pkg/membership"
	"github.com/creatorkit/membership/pkg/pg"
	"github.com/creatorkit/membership/pkg/readapi"
	"github.com/creatorkit/membership/pkg/redis"
	"github.com/creatorkit/membership/pkg/stream"
	"github.com/creatorkit/membership/pkg/telemetry"
)

// appConfig holds what the read-only API needs. It does not load
// membership.Config: the stream program and funding settings only matter to
// the mutation paths this binary does not serve.
type appConfig struct {
	ProgramID        ledger.PublicKey `env:"MEMBERSHIP_PROGRAM_ID,required"`
	CacheTTL         time.Duration    `env:"MEMBERSHIP_CACHE_TTL" envDefault:"30s"`
	RedisEnabled     bool             `env:"REDIS_ENABLED" envDefault:"false"`
	JournalEnabled   bool             `env:"JOURNAL_ENABLED" envDefault:"false"`
	CacheCapacity    int              `env:"CACHE_CAPACITY" envDefault:"10000"`
	ReadinessTimeout time.Duration    `env:"READINESS_TIMEOUT" envDefault:"2s"`
}

// Validate implements config.Validator.
func (c *appConfig) Validate() error {
	var errs []error
	if c.ProgramID.IsZero() {
		errs = append(errs, errors.New("program id is required"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("cache ttl must be positive, got %s", c.CacheTTL))
	}
	if c.CacheCapacity <= 0 {
		errs = append(errs, fmt.Errorf("cache capacity must be positive, got %d", c.CacheCapacity))
	}
	return errors.Join(errs...)
}

func main() {
	logCfg, err := config.Load[logger.Config]()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(logCfg.Options()...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil {
		log.Error("membership-api stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	app, err := config.Load[appConfig]()
	if err != nil {
		return err
	}
	httpCfg, err := config.Load[httpserver.Config]()
	if err != nil {
		return err
	}
	rpcCfg, err := config.Load[ledger.RPCConfig]()
	if err != nil {
		return err
	}
	streamCfg, err := config.Load[stream.Config]()
	if err != nil {
		return err
	}
	tracingCfg, err := config.Load[telemetry.TracingConfig]()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	observers := []telemetry.Observer{
		telemetry.NewLogObserver(log),
		telemetry.NewMetricsObserver(registry),
	}

	provider, err := telemetry.NewProvider(ctx, tracingCfg)
	switch {
	case errors.Is(err, telemetry.ErrTracingDisabled):
		log.InfoContext(ctx, "tracing disabled")
	case err != nil:
		return err
	default:
		defer shutdown(log, "tracer provider", provider.Shutdown)
		observers = append(observers, telemetry.NewTraceObserver(provider.Tracer()))
	}

	evictions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "membership_cache_evictions_total",
		Help: "Query cache entries dropped by capacity or expiry.",
	})
	registry.MustRegister(evictions)

	var checks []httpserver.Check
	var store cache.Store = cache.NewMemoryStore(app.CacheCapacity, app.CacheTTL,
		cache.WithEvictCallback(func(string) { evictions.Inc() }))
	if app.RedisEnabled {
		redisCfg, err := config.Load[redis.Config]()
		if err != nil {
			return err
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer shutdown(log, "redis", func(context.Context) error { return client.Close() })
		store = redis.NewStore(client, redisCfg.KeyPrefix, app.CacheTTL)
		checks = append(checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)})
	}

	routerOpts := []readapi.Option{
		readapi.WithCache(store, app.CacheTTL),
		readapi.WithLogger(log),
		readapi.WithObserver(telemetry.Multi(observers...)),
	}
	if app.JournalEnabled {
		pgCfg, err := config.Load[pg.Config]()
		if err != nil {
			return err
		}
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := pg.Migrate(ctx, pool, journal.Migrations, journal.MigrationsDir, pgCfg, log); err != nil {
			return err
		}
		routerOpts = append(routerOpts, readapi.WithOperations(journal.NewStore(pool, journal.WithLogger(log))))
		checks = append(checks, httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)})
	}

	rpc, err := ledger.NewRPCClient(rpcCfg)
	if err != nil {
		return err
	}
	streams, err := stream.NewClient(streamCfg)
	if err != nil {
		return err
	}
	addrs := membership.NewAddresses(app.ProgramID)
	records := membership.NewLedgerRecords(rpc, addrs)
	resolver := membership.NewStatusResolver(addrs, records, streams, store, app.CacheTTL, time.Now, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Get("/healthz", httpserver.HealthHandler(log, app.ReadinessTimeout))
	r.Get("/readyz", httpserver.HealthHandler(log, app.ReadinessTimeout, checks...))
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Mount("/", readapi.NewRouter(records, streams, resolver, routerOpts...))

	log.InfoContext(ctx, "starting membership-api",
		slog.String("addr", httpCfg.Addr),
		slog.Bool("redis", app.RedisEnabled),
		slog.Bool("journal", app.JournalEnabled),
	)
	return httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log)).Run(ctx, r)
}

func shutdown(log *slog.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error("shutdown failed", logger.Component(name), logger.Error(err))
	}
}
