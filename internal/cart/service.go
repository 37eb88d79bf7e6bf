package cart

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-storefront/internal/logging"
	"github.com/goliatone/go-storefront/pkg/interfaces"
)

const lockStripes = 64

// ErrInvalidID is returned for cart ids that are not UUIDs.
var ErrInvalidID = errors.New("cart: invalid cart id")

// Service applies cart operations against a Store. Each mutation loads the
// stored cart, applies the change and saves the whole cart. If the load
// fails nothing is written. Mutations on the same id are serialised.
type Service struct {
	store  Store
	logger interfaces.Logger

	stripes [lockStripes]sync.Mutex
}

// NewService builds a Service over store.
func NewService(store Store, logger interfaces.Logger) *Service {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Service{store: store, logger: logger}
}

// NewID returns a fresh cart id.
func (s *Service) NewID() string {
	return uuid.NewString()
}

// Get returns the stored cart for id. A missing cart is empty.
func (s *Service) Get(ctx context.Context, id string) (Cart, error) {
	if err := validateID(id); err != nil {
		return Cart{}, err
	}
	cart, _, err := s.store.Load(ctx, id)
	return cart, err
}

func (s *Service) AddItem(ctx context.Context, id string, item Item, qty int) (Cart, error) {
	return s.mutate(ctx, id, "add", func(c *Cart) error {
		return c.Add(item, qty)
	})
}

func (s *Service) RemoveItem(ctx context.Context, id, itemID, size string) (Cart, error) {
	return s.mutate(ctx, id, "remove", func(c *Cart) error {
		c.Remove(itemID, size)
		return nil
	})
}

func (s *Service) UpdateQuantity(ctx context.Context, id, itemID string, qty int, size string) (Cart, error) {
	return s.mutate(ctx, id, "update_quantity", func(c *Cart) error {
		c.UpdateQuantity(itemID, qty, size)
		return nil
	})
}

func (s *Service) Clear(ctx context.Context, id string) (Cart, error) {
	return s.mutate(ctx, id, "clear", func(c *Cart) error {
		c.Clear()
		return nil
	})
}

// SetOpen records whether the cart sheet is shown.
func (s *Service) SetOpen(ctx context.Context, id string, open bool) (Cart, error) {
	return s.mutate(ctx, id, "set_open", func(c *Cart) error {
		c.Open = open
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, id, op string, apply func(*Cart) error) (Cart, error) {
	if err := validateID(id); err != nil {
		return Cart{}, err
	}
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	cart, _, err := s.store.Load(ctx, id)
	if err != nil {
		s.logger.WithContext(ctx).Error("cart.load_failed", "cart_id", id, "op", op, "error", err)
		return Cart{}, err
	}
	if err := apply(&cart); err != nil {
		return cart, err
	}
	if err := s.store.Save(ctx, id, cart); err != nil {
		s.logger.WithContext(ctx).Error("cart.save_failed", "cart_id", id, "op", op, "error", err)
		return Cart{}, err
	}
	s.logger.WithContext(ctx).Debug("cart.updated", "cart_id", id, "op", op, "items", cart.TotalItems())
	return cart, nil
}

func (s *Service) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.stripes[h.Sum32()%lockStripes]
}

func validateID(id string) error {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return ErrInvalidID
	}
	return nil
}
