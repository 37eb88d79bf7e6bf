package kv

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-storefront/pkg/interfaces"
)

// Redis stores values in a redis server under an optional key prefix.
type Redis struct {
	client redis.Cmdable
	prefix string
}

var _ interfaces.KeyValueStore = (*Redis)(nil)

// NewRedis wraps client. Every key is stored as prefix+key.
func NewRedis(client redis.Cmdable, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeError(err, "redis get failed", key)
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return storeError(err, "redis set failed", key)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = r.prefix + key
	}
	if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
		return storeError(err, "redis delete failed", keys[0])
	}
	return nil
}

func storeError(err error, message, key string) error {
	return goerrors.Wrap(err, goerrors.CategoryExternal, message).
		WithTextCode("KV_UNAVAILABLE").
		WithMetadata(map[string]any{"key": key})
}

// Ping verifies the connection.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "redis ping failed").WithTextCode("KV_UNAVAILABLE")
	}
	return nil
}
