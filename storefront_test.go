package storefront_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	storefront "github.com/goliatone/go-storefront"
	"github.com/goliatone/go-storefront/internal/document"
	"github.com/goliatone/go-storefront/pkg/testsupport"
)

func testConfig(t *testing.T) storefront.Config {
	t.Helper()
	cfg := storefront.DefaultConfig()
	cfg.Site.URL = "https://shop.example.com"
	cfg.Storage.DSN = "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	cfg := storefront.DefaultConfig()
	cfg.Locales.Default = "de-de"
	if err := cfg.Validate(); !errors.Is(err, storefront.ErrDefaultLocaleUnsupported) {
		t.Fatalf("expected ErrDefaultLocaleUnsupported, got %v", err)
	}

	cfg = storefront.DefaultConfig()
	cfg.Cart.Store = "memcached"
	if err := cfg.Validate(); !errors.Is(err, storefront.ErrCartStoreUnsupported) {
		t.Fatalf("expected ErrCartStoreUnsupported, got %v", err)
	}
}

func TestNewRequiresContentSource(t *testing.T) {
	_, err := storefront.New(context.Background(), testConfig(t))
	if !errors.Is(err, storefront.ErrCMSRepositoryRequired) {
		t.Fatalf("expected ErrCMSRepositoryRequired, got %v", err)
	}
}

func TestModuleServesPages(t *testing.T) {
	reader := storefront.NewMemoryReader("sv-se",
		&storefront.Document{UID: "home", Type: document.TypePage, Lang: "sv-se", Data: document.PageData{
			PageTitle: "Hem", MetaTitle: "Kumpan",
		}},
	)
	module, err := storefront.New(context.Background(), testConfig(t),
		storefront.WithContentReader(reader),
		storefront.WithLoggerProvider(&testsupport.RecordingLogger{}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = module.Close() })

	rec := httptest.NewRecorder()
	module.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<title>Kumpan</title>") {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	module.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/saknas", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	scheduler, err := module.Scheduler()
	if err != nil || len(scheduler.Jobs()) != 2 {
		t.Fatalf("expected two jobs, got %v (%v)", scheduler, err)
	}
}
