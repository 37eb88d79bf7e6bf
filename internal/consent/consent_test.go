package consent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-storefront/internal/kv"
)

func TestStoreLifecycle(t *testing.T) {
	now := time.Date(2025, 5, 4, 9, 30, 0, 0, time.UTC)
	store := NewStore(kv.NewMemory(nil), 0, func() time.Time { return now })
	ctx := context.Background()

	if ok, err := store.HasConsented(ctx, "visitor-1"); err != nil || ok {
		t.Fatalf("expected no consent yet, ok=%v err=%v", ok, err)
	}

	record, err := store.Save(ctx, "visitor-1", Preferences{Analytics: true})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !record.Preferences.Necessary || !record.Timestamp.Equal(now) {
		t.Fatalf("unexpected record %+v", record)
	}

	got, found, err := store.Get(ctx, "visitor-1")
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if got.Preferences != record.Preferences || !got.Timestamp.Equal(record.Timestamp) {
		t.Fatalf("expected %+v, got %+v", record, got)
	}

	if err := store.Reset(ctx, "visitor-1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if ok, _ := store.HasConsented(ctx, "visitor-1"); ok {
		t.Fatal("expected consent to be reset")
	}
}

func TestStoreRequiresVisitor(t *testing.T) {
	store := NewStore(kv.NewMemory(nil), 0, nil)
	if _, err := store.Save(context.Background(), " ", Preferences{}); !errors.Is(err, ErrMissingVisitor) {
		t.Fatalf("expected ErrMissingVisitor, got %v", err)
	}
}

func TestStoreUsesConsentKeysInRedis(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewStore(kv.NewRedis(client, ""), time.Hour, nil)

	if _, err := store.Save(context.Background(), "v", Preferences{Marketing: true}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !server.Exists("cookie-consent-preferences:v") || !server.Exists("cookie-consent-timestamp:v") {
		t.Fatalf("unexpected keys %v", server.Keys())
	}
	got, found, err := store.Get(context.Background(), "v")
	if err != nil || !found || !got.Preferences.Marketing {
		t.Fatalf("unexpected record %+v found=%v err=%v", got, found, err)
	}
}
