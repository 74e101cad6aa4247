// Package pg opens PostgreSQL pools with pgx/v5 and applies goose migrations.
//
// Config is populated from PG_* environment variables. Connect retries the
// first ping with a linearly growing delay, Healthcheck adapts the pool to a
// readiness probe and Migrate runs embedded migrations:
//
//	//go:embed migrations/*.sql
//	var migrations embed.FS
//
//	pool, err := pg.Connect(ctx, cfg)
//	err = pg.Migrate(ctx, pool, migrations, "migrations", cfg, log)
//
// IsDuplicateKeyError classifies unique-constraint violations.
package pg
