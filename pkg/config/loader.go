package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Validator is implemented by config structs that check cross-field constraints
// after parsing.
type Validator interface {
	Validate() error
}

type options struct {
	envFiles    []string
	prefix      string
	environment map[string]string
}

// Option configures a single Load call.
type Option func(*options)

// WithEnvFiles loads the given .env files before parsing. Missing files are an error,
// unlike the implicit ".env" which is optional.
func WithEnvFiles(files ...string) Option {
	return func(o *options) { o.envFiles = append(o.envFiles, files...) }
}

// WithPrefix prepends prefix to every env key of the struct.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithEnvironment parses from the given map instead of the process environment.
// No .env file is read when it is set.
func WithEnvironment(environment map[string]string) Option {
	return func(o *options) { o.environment = environment }
}

// Load parses environment variables into a new T using its `env` struct tags.
//
// Every call parses afresh; callers load configuration once at start-up and pass
// the values down explicitly.
//
//	type StreamConfig struct {
//		BaseURL string        `env:"STREAM_API_URL,required"`
//		Timeout time.Duration `env:"STREAM_API_TIMEOUT" envDefault:"10s"`
//	}
//
//	cfg, err := config.Load[StreamConfig]()
func Load[T any](opts ...Option) (T, error) {
	var cfg T
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.environment == nil {
		if len(o.envFiles) > 0 {
			if err := godotenv.Load(o.envFiles...); err != nil {
				return cfg, errors.Join(ErrLoadingEnvFile, err)
			}
		} else {
			// The default .env file is optional.
			_ = godotenv.Load()
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      o.prefix,
		Environment: o.environment,
	}); err != nil {
		return cfg, errors.Join(ErrParsingConfig, err)
	}

	if v, ok := any(&cfg).(Validator); ok {
		if err := v.Validate(); err != nil {
			return cfg, errors.Join(ErrInvalidConfig, err)
		}
	}

	return cfg, nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](opts ...Option) T {
	cfg, err := Load[T](opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
	return cfg
}
