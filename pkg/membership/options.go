package membership

import (
	"log/slog"
	"time"

	"github.com/creatorkit/membership/pkg/cache"
	"github.com/creatorkit/membership/pkg/telemetry"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*service)

// WithLogger sets the engine logger. Defaults to discarding.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithObserver sets the operation observer. Defaults to telemetry.Noop.
func WithObserver(o telemetry.Observer) ServiceOption {
	return func(s *service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithCache sets the query cache shared with other readers, for example a
// Redis store. Defaults to a process-local MemoryStore.
func WithCache(store cache.Store) ServiceOption {
	return func(s *service) {
		if store != nil {
			s.cache = store
		}
	}
}

// WithClock overrides the time source used for stream liveness.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithKeyGenerator overrides how new stream key pairs are created.
func WithKeyGenerator(gen KeyGenerator) ServiceOption {
	return func(s *service) {
		if gen != nil {
			s.newKey = gen
		}
	}
}

// WithResubscribePolicy sets how platform re-subscribes treat unreadable
// previous streams. Defaults to ResubscribeStrict.
func WithResubscribePolicy(p ResubscribePolicy) ServiceOption {
	return func(s *service) { s.policy = p }
}
