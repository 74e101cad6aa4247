// Package config loads typed configuration from environment variables.
//
// It wraps github.com/caarlos0/env/v11 for struct-tag parsing and
// github.com/joho/godotenv for optional .env files. Unlike a lazily cached
// global, Load parses on every call; the process loads each config struct once
// in main and passes it by value to the components that need it.
//
// # Usage
//
//	type Config struct {
//		Addr     string        `env:"HTTP_ADDR" envDefault:":8080"`
//		Timeout  time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
//		Endpoint string        `env:"LEDGER_RPC_URL,required"`
//	}
//
//	cfg := config.MustLoad[Config]()
//
// Structs implementing Validator are validated after parsing and the failure is
// reported as ErrInvalidConfig. Tests pass an explicit map via WithEnvironment
// so they do not depend on, or mutate, the process environment.
package config
