package cart

import (
	"context"
	"encoding/json"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-storefront/internal/kv"
	"github.com/goliatone/go-storefront/pkg/interfaces"
)

// DefaultTTL keeps an idle cart for thirty days.
const DefaultTTL = 30 * 24 * time.Hour

// Store persists carts by id.
type Store interface {
	Load(ctx context.Context, id string) (Cart, bool, error)
	Save(ctx context.Context, id string, cart Cart) error
	Delete(ctx context.Context, id string) error
}

// KVStore keeps the cart lines as JSON under cart:<id> and the open flag
// under cart:<id>:open.
type KVStore struct {
	kv  interfaces.KeyValueStore
	ttl time.Duration
}

var _ Store = (*KVStore)(nil)

// NewKVStore builds a store over any key-value backend. ttl <= 0 uses
// DefaultTTL.
func NewKVStore(backend interfaces.KeyValueStore, ttl time.Duration) *KVStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &KVStore{kv: backend, ttl: ttl}
}

// NewMemoryStore returns a process-local store.
func NewMemoryStore() *KVStore {
	return NewKVStore(kv.NewMemory(nil), DefaultTTL)
}

// NewRedisStore returns a store backed by redis.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *KVStore {
	return NewKVStore(kv.NewRedis(client, ""), ttl)
}

func (s *KVStore) Load(ctx context.Context, id string) (Cart, bool, error) {
	raw, found, err := s.kv.Get(ctx, itemsKey(id))
	if err != nil {
		return Cart{}, false, err
	}
	var cart Cart
	if found {
		if err := json.Unmarshal(raw, &cart); err != nil {
			return Cart{}, false, goerrors.Wrap(err, goerrors.CategoryInternal, "decode stored cart").
				WithMetadata(map[string]any{"cart_id": id})
		}
	}
	flag, open, err := s.kv.Get(ctx, openKey(id))
	if err != nil {
		return Cart{}, false, err
	}
	cart.Open = open && string(flag) == "1"
	return cart, found, nil
}

func (s *KVStore) Save(ctx context.Context, id string, cart Cart) error {
	if cart.Items == nil {
		cart.Items = []Item{}
	}
	raw, err := json.Marshal(cart)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "encode cart")
	}
	if err := s.kv.Set(ctx, itemsKey(id), raw, s.ttl); err != nil {
		return err
	}
	if cart.Open {
		return s.kv.Set(ctx, openKey(id), []byte("1"), s.ttl)
	}
	return s.kv.Delete(ctx, openKey(id))
}

func (s *KVStore) Delete(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, itemsKey(id), openKey(id))
}

func itemsKey(id string) string { return "cart:" + id }

func openKey(id string) string { return "cart:" + id + ":open" }
