package interfaces

import (
	"context"
	"time"
)

// KeyValueStore persists opaque values for the cart and consent stores.
// Get reports false when the key is absent. A zero ttl keeps the value
// until it is deleted.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
