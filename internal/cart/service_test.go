package cart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

type flakyStore struct {
	Store
	loadErr error
	saves   atomic.Int64
}

func (f *flakyStore) Load(ctx context.Context, id string) (Cart, bool, error) {
	if f.loadErr != nil {
		return Cart{}, false, f.loadErr
	}
	return f.Store.Load(ctx, id)
}

func (f *flakyStore) Save(ctx context.Context, id string, cart Cart) error {
	f.saves.Add(1)
	return f.Store.Save(ctx, id, cart)
}

func TestServiceMutationsPersist(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)
	ctx := context.Background()
	id := svc.NewID()

	if _, err := svc.AddItem(ctx, id, shirt("M"), 1); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := svc.UpdateQuantity(ctx, id, "prod_shirt", 4, "M"); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if _, err := svc.SetOpen(ctx, id, true); err != nil {
		t.Fatalf("SetOpen: %v", err)
	}
	cart, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cart.TotalItems() != 4 || !cart.Open {
		t.Fatalf("unexpected cart %+v", cart)
	}

	if _, err := svc.RemoveItem(ctx, id, "prod_shirt", "M"); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	cart, _ = svc.Clear(ctx, id)
	if cart.TotalItems() != 0 || !cart.Open {
		t.Fatalf("expected empty open cart, got %+v", cart)
	}
}

func TestServiceDoesNotWriteAfterFailedLoad(t *testing.T) {
	store := &flakyStore{Store: NewMemoryStore(), loadErr: errors.New("redis down")}
	svc := NewService(store, nil)
	id := svc.NewID()

	if _, err := svc.AddItem(context.Background(), id, shirt(""), 1); err == nil {
		t.Fatal("expected load error")
	}
	if store.saves.Load() != 0 {
		t.Fatalf("expected no writes, got %d", store.saves.Load())
	}
}

func TestServiceRejectsInvalidIDs(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)
	if _, err := svc.Get(context.Background(), "../etc"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestServiceCurrencyMismatchKeepsStoredCart(t *testing.T) {
	store := &flakyStore{Store: NewMemoryStore()}
	svc := NewService(store, nil)
	ctx := context.Background()
	id := svc.NewID()

	_, _ = svc.AddItem(ctx, id, shirt(""), 1)
	if _, err := svc.AddItem(ctx, id, Item{ID: "mug", Currency: "EUR", Price: 5}, 1); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
	if store.saves.Load() != 1 {
		t.Fatalf("expected only the first add to be saved, got %d", store.saves.Load())
	}
}

func TestServiceSerialisesConcurrentAdds(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)
	ctx := context.Background()
	id := svc.NewID()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.AddItem(ctx, id, shirt("S"), 1)
		}()
	}
	wg.Wait()

	cart, _ := svc.Get(ctx, id)
	if cart.TotalItems() != 25 {
		t.Fatalf("expected 25 items, got %d", cart.TotalItems())
	}
}
