package payments

import (
	"context"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestCatalogProduct(t *testing.T) {
	f := newFakeStripe(t)
	catalog := NewCatalog(f.client(), CatalogConfig{}, nil)

	view, err := catalog.Product(context.Background(), "prod_shirt", "sv-se")
	if err != nil {
		t.Fatalf("Product: %v", err)
	}
	if view.Product.Name != "Shirt" || view.Product.Metadata["fit"] != "regular" {
		t.Fatalf("unexpected product %+v", view.Product)
	}
	if view.Price.ID != "price_shirt" || view.Price.Amount != 299 || view.Price.Currency != "sek" {
		t.Fatalf("unexpected price %+v", view.Price)
	}
	if !strings.HasSuffix(view.Price.Formatted, "kr") {
		t.Fatalf("expected swedish formatting, got %q", view.Price.Formatted)
	}
}

func TestCatalogCachesLookups(t *testing.T) {
	f := newFakeStripe(t)
	catalog := NewCatalog(f.client(), CatalogConfig{}, nil)
	ctx := context.Background()

	_, _ = catalog.Product(ctx, "prod_shirt", "en-us")
	requests := f.requests.Load()
	_, _ = catalog.Product(ctx, "prod_shirt", "sv-se")
	if f.requests.Load() != requests {
		t.Fatalf("expected cached lookup, got %d extra requests", f.requests.Load()-requests)
	}
	if catalog.Cached() != 1 {
		t.Fatalf("expected one cached product, got %d", catalog.Cached())
	}

	catalog.Purge()
	_, _ = catalog.Product(ctx, "prod_shirt", "sv-se")
	if f.requests.Load() == requests {
		t.Fatal("expected purge to force a refetch")
	}
}

func TestCatalogErrors(t *testing.T) {
	f := newFakeStripe(t)
	catalog := NewCatalog(f.client(), CatalogConfig{}, nil)
	ctx := context.Background()

	_, err := catalog.Product(ctx, "prod_draft", "")
	if !HasTextCode(err, TextCodeNoActivePrice) || !goerrors.IsNotFound(err) {
		t.Fatalf("expected no active price, got %v", err)
	}

	_, err = catalog.Product(ctx, "prod_gone", "")
	if !goerrors.IsNotFound(err) || !strings.Contains(err.Error(), "No such product") {
		t.Fatalf("expected missing product, got %v", err)
	}

	unauthorised := NewCatalog(NewStripeClient(StripeConfig{SecretKey: "sk_wrong", BaseURL: f.server.URL}), CatalogConfig{}, nil)
	_, err = unauthorised.Product(ctx, "prod_shirt", "")
	if !goerrors.IsCategory(err, goerrors.CategoryExternal) {
		t.Fatalf("expected external error, got %v", err)
	}

	unconfigured := NewCatalog(NewStripeClient(StripeConfig{BaseURL: f.server.URL}), CatalogConfig{}, nil)
	if _, err = unconfigured.Product(ctx, "prod_shirt", ""); !HasTextCode(err, TextCodeNotConfigured) {
		t.Fatalf("expected not configured error, got %v", err)
	}
}

func TestCatalogBatchSettlesEveryID(t *testing.T) {
	f := newFakeStripe(t)
	catalog := NewCatalog(f.client(), CatalogConfig{BatchConcurrency: 2}, nil)

	result := catalog.Batch(context.Background(), []string{"prod_mug", "prod_draft", "prod_shirt", "prod_gone"}, "en-us")

	if len(result.Products) != 2 || result.Products[0].ProductID != "prod_mug" || result.Products[1].ProductID != "prod_shirt" {
		t.Fatalf("unexpected products %+v", result.Products)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("unexpected errors %+v", result.Errors)
	}
	if result.Errors[0].ProductID != "prod_draft" || result.Errors[0].Error != "No active prices found for product prod_draft" {
		t.Fatalf("unexpected first error %+v", result.Errors[0])
	}
	if result.Errors[1].ProductID != "prod_gone" || !strings.Contains(result.Errors[1].Error, "No such product") {
		t.Fatalf("unexpected second error %+v", result.Errors[1])
	}
}
