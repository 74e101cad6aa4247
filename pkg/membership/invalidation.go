package membership

import (
	"context"
	"log/slog"

	"github.com/creatorkit/membership/pkg/cache"
	"github.com/creatorkit/membership/pkg/ledger"
	"github.com/creatorkit/membership/pkg/logger"
)

const keyPrefix = "membership:"

// ConfigKey caches a target's subscription config.
func ConfigKey(target Target) string {
	return keyPrefix + "config:" + target.String()
}

// StatusKey caches the resolved status of subscriber for target.
func StatusKey(subscriber ledger.PublicKey, target Target) string {
	return keyPrefix + "status:" + subscriber.String() + ":" + target.String()
}

// RecordKey caches the subscription record of subscriber for target.
func RecordKey(subscriber ledger.PublicKey, target Target) string {
	return keyPrefix + "record:" + subscriber.String() + ":" + target.String()
}

// SenderStreamsKey caches the streams funded by sender.
func SenderStreamsKey(sender ledger.PublicKey) string {
	return keyPrefix + "streams:" + sender.String()
}

// StreamKey caches a single stream.
func StreamKey(id ledger.PublicKey) string {
	return keyPrefix + "stream:" + id.String()
}

// Invalidator drops the cached queries a mutation made stale.
type Invalidator struct {
	cache cache.Store
	log   *slog.Logger
}

func NewInvalidator(store cache.Store, log *slog.Logger) *Invalidator {
	return &Invalidator{cache: store, log: log}
}

// Keys lists exactly the keys a join, renew or cancel of subscriber's membership
// of target can change. streamID may be zero when unknown.
func (i *Invalidator) Keys(subscriber ledger.PublicKey, target Target, streamID ledger.PublicKey) []string {
	keys := []string{
		StatusKey(subscriber, target),
		RecordKey(subscriber, target),
		SenderStreamsKey(subscriber),
	}
	if !streamID.IsZero() {
		keys = append(keys, StreamKey(streamID))
	}
	return keys
}

// Invalidate deletes the affected keys. Cache failures are logged and never
// fail the mutation that triggered them.
func (i *Invalidator) Invalidate(ctx context.Context, subscriber ledger.PublicKey, target Target, streamID ledger.PublicKey) []string {
	keys := i.Keys(subscriber, target, streamID)
	if err := i.cache.Delete(ctx, keys...); err != nil {
		i.log.WarnContext(ctx, "cache invalidation failed",
			logger.Subscriber(subscriber), logger.Target(target), logger.Error(err))
	}
	return keys
}
