package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/creatorkit/membership/pkg/cache"
)

var _ cache.Store = (*Store)(nil)

// Store is a cache.Store backed by Redis, shared by every replica of a
// service. Entries expire through Redis TTLs.
type Store struct {
	db         redis.UniversalClient
	prefix     string
	defaultTTL time.Duration
}

// NewStore wraps client. defaultTTL applies to Set calls with a zero ttl and
// must be positive.
func NewStore(client redis.UniversalClient, prefix string, defaultTTL time.Duration) *Store {
	if client == nil {
		panic("redis: client is required")
	}
	if defaultTTL <= 0 {
		panic("redis: default ttl must be positive")
	}
	return &Store{db: client, prefix: prefix, defaultTTL: defaultTTL}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.db.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Join(ErrCommandFailed, err)
	}
	return val, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if err := s.db.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return errors.Join(ErrCommandFailed, err)
	}
	return nil
}

// Delete removes keys in a single DEL. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.prefix + k
	}
	if err := s.db.Del(ctx, full...).Err(); err != nil {
		return errors.Join(ErrCommandFailed, err)
	}
	return nil
}
