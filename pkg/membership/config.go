package membership

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/creatorkit/membership/pkg/cache"
	"github.com/creatorkit/membership/pkg/ledger"
	"github.com/creatorkit/membership/pkg/logger"
)

// Config is the engine configuration. It is loaded once at start-up and passed
// by value to NewService.
type Config struct {
	ProgramID       ledger.PublicKey `env:"MEMBERSHIP_PROGRAM_ID,required"`
	StreamProgramID ledger.PublicKey `env:"STREAM_PROGRAM_ID,required"`

	// FeeBufferBps is added on top of every funded amount to cover streaming fees.
	FeeBufferBps uint64 `env:"MEMBERSHIP_FEE_BUFFER_BPS" envDefault:"30"`

	// SettleDelay is how long Cancel waits before unwrapping the refund.
	SettleDelay time.Duration `env:"MEMBERSHIP_SETTLE_DELAY" envDefault:"2s"`

	VerifyInitialInterval time.Duration `env:"MEMBERSHIP_VERIFY_INITIAL_INTERVAL" envDefault:"1s"`
	VerifyMaxInterval     time.Duration `env:"MEMBERSHIP_VERIFY_MAX_INTERVAL" envDefault:"8s"`
	VerifyAttempts        uint64        `env:"MEMBERSHIP_VERIFY_ATTEMPTS" envDefault:"6"`

	CacheTTL time.Duration `env:"MEMBERSHIP_CACHE_TTL" envDefault:"30s"`
}

// DefaultConfig returns the production defaults for the given programs.
func DefaultConfig(program, streamProgram ledger.PublicKey) Config {
	return Config{
		ProgramID:             program,
		StreamProgramID:       streamProgram,
		FeeBufferBps:          DefaultFeeBufferBps,
		SettleDelay:           2 * time.Second,
		VerifyInitialInterval: time.Second,
		VerifyMaxInterval:     8 * time.Second,
		VerifyAttempts:        6,
		CacheTTL:              30 * time.Second,
	}
}

// Validate implements config.Validator.
func (c *Config) Validate() error {
	var errs []error
	if c.ProgramID.IsZero() {
		errs = append(errs, errors.New("program id is required"))
	}
	if c.StreamProgramID.IsZero() {
		errs = append(errs, errors.New("stream program id is required"))
	}
	if c.FeeBufferBps > bpsDenominator {
		errs = append(errs, fmt.Errorf("fee buffer %d bps exceeds 100%%", c.FeeBufferBps))
	}
	if c.VerifyAttempts == 0 {
		errs = append(errs, errors.New("at least one verification attempt is required"))
	}
	if c.VerifyMaxInterval < c.VerifyInitialInterval {
		errs = append(errs, errors.New("verify max interval is shorter than the initial interval"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("cache ttl must be positive, got %s", c.CacheTTL))
	}
	return errors.Join(errs...)
}

// ConfigResolver reads subscription configs, serving repeated reads from the
// query cache.
type ConfigResolver struct {
	records RecordReader
	cache   cache.Store
	ttl     time.Duration
	log     *slog.Logger
}

func NewConfigResolver(records RecordReader, store cache.Store, ttl time.Duration, log *slog.Logger) *ConfigResolver {
	return &ConfigResolver{records: records, cache: store, ttl: ttl, log: log}
}

// Resolve returns the target's config, or nil when the target has none.
func (r *ConfigResolver) Resolve(ctx context.Context, target Target) (*SubscriptionConfig, error) {
	key := ConfigKey(target)
	if raw, ok, err := r.cache.Get(ctx, key); err != nil {
		r.log.WarnContext(ctx, "config cache read failed", logger.Target(target), logger.Error(err))
	} else if ok {
		var cfg SubscriptionConfig
		if err := json.Unmarshal(raw, &cfg); err == nil {
			return &cfg, nil
		}
	}
	return r.Refresh(ctx, target)
}

// Refresh reads the config from its source and refreshes the cache entry.
// A missing config is never cached.
func (r *ConfigResolver) Refresh(ctx context.Context, target Target) (*SubscriptionConfig, error) {
	cfg, err := r.records.SubscriptionConfig(ctx, target)
	if err != nil || cfg == nil {
		return nil, err
	}
	if raw, err := json.Marshal(cfg); err == nil {
		if err := r.cache.Set(ctx, ConfigKey(target), raw, r.ttl); err != nil {
			r.log.WarnContext(ctx, "config cache write failed", logger.Target(target), logger.Error(err))
		}
	}
	return cfg, nil
}
