package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-storefront/internal/cms"
	"github.com/goliatone/go-storefront/internal/document"
	"github.com/goliatone/go-storefront/internal/storage"
)

func TestDemoReaderDecodesBundledContent(t *testing.T) {
	reader, err := demoReader("sv-se")
	if err != nil {
		t.Fatalf("demoReader: %v", err)
	}
	ctx := context.Background()

	shirt, err := reader.GetByUID(ctx, document.TypePage, "linneskjorta", "sv-se")
	if err != nil {
		t.Fatalf("GetByUID: %v", err)
	}
	if shirt.Data.StripeProductID != "prod_demo_linen" || len(shirt.Data.Sizes) != 3 {
		t.Fatalf("unexpected product data %+v", shirt.Data)
	}
	if parent := shirt.ParentLink(); parent == nil || parent.UID != "kollektion" {
		t.Fatalf("expected kollektion parent, got %+v", parent)
	}

	if _, err := reader.GetByUID(ctx, document.TypePage, "saknas", "sv-se"); !cms.IsNoDocuments(err) {
		t.Fatalf("expected no documents error, got %v", err)
	}
}

func TestRunServesDemoContent(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "storefront.yaml")
	config := strings.Join([]string{
		"site:",
		"  url: https://demo.example.com",
		"storage:",
		"  dsn: file:cmd_run_demo?mode=memory&cache=shared",
		"jobs:",
		"  enabled: true",
		"logging:",
		"  provider: console",
		"  level: error",
	}, "\n")
	if err := os.WriteFile(configPath, []byte(config), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	original := listen
	t.Cleanup(func() { listen = original })

	var home, product, missing *httptest.ResponseRecorder
	var addr string
	listen = func(srv *http.Server) error {
		addr = srv.Addr
		home = httptest.NewRecorder()
		srv.Handler.ServeHTTP(home, httptest.NewRequest(http.MethodGet, "/", nil))
		product = httptest.NewRecorder()
		srv.Handler.ServeHTTP(product, httptest.NewRequest(http.MethodGet, "/kollektion/linneskjorta", nil))
		missing = httptest.NewRecorder()
		srv.Handler.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/linneskjorta", nil))
		return http.ErrServerClosed
	}

	if err := run(context.Background(), []string{"-config", configPath, "-demo", "-addr", ":4321"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if addr != ":4321" {
		t.Fatalf("expected -addr to override the config, got %q", addr)
	}
	if home.Code != http.StatusOK || !strings.Contains(home.Body.String(), "Vårens kollektion") {
		t.Fatalf("unexpected home page %d: %s", home.Code, home.Body.String())
	}
	if product.Code != http.StatusOK || !strings.Contains(product.Body.String(), `"@type":"FAQPage"`) {
		t.Fatalf("unexpected product page %d: %s", product.Code, product.Body.String())
	}
	if missing.Code != http.StatusNotFound || !strings.Contains(missing.Body.String(), "Sidan finns inte") {
		t.Fatalf("unexpected not found page %d: %s", missing.Code, missing.Body.String())
	}
}

func TestRunReportsListenErrors(t *testing.T) {
	original := listen
	t.Cleanup(func() { listen = original })
	t.Setenv("STOREFRONT_STORAGE_DSN", "file:cmd_run_listen?mode=memory&cache=shared")
	t.Setenv("STOREFRONT_JOBS_ENABLED", "false")

	boom := errors.New("address in use")
	listen = func(*http.Server) error { return boom }

	if err := run(context.Background(), []string{"-demo"}); !errors.Is(err, boom) {
		t.Fatalf("expected listen error, got %v", err)
	}
}

func TestRunRequiresContentSource(t *testing.T) {
	t.Setenv("STOREFRONT_STORAGE_DSN", "file:cmd_run_nocms?mode=memory&cache=shared")
	if err := run(context.Background(), nil); err == nil || !strings.Contains(err.Error(), "bootstrap") {
		t.Fatalf("expected bootstrap error, got %v", err)
	}
}

func TestRunPrintsRecentSubmissions(t *testing.T) {
	const dsn = "file:cmd_run_submissions?mode=memory&cache=shared"
	ctx := context.Background()

	ledger, err := storage.Open(storage.Config{DSN: dsn})
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = ledger.Close() })
	if err := ledger.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	base := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)
	for i, subject := range []string{"Older question", "Newer question"} {
		sub := storage.Submission{Subject: subject, ToAddress: "shop@example.com", ProviderID: subject, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if _, err := ledger.RecordSubmission(ctx, sub); err != nil {
			t.Fatalf("record %q: %v", subject, err)
		}
	}

	originalListen, originalStdout := listen, stdout
	t.Cleanup(func() { listen, stdout = originalListen, originalStdout })
	listen = func(*http.Server) error {
		t.Fatal("listing submissions must not start the server")
		return nil
	}
	var out bytes.Buffer
	stdout = &out
	t.Setenv("STOREFRONT_STORAGE_DSN", dsn)
	t.Setenv("STOREFRONT_JOBS_ENABLED", "false")

	if err := run(ctx, []string{"-demo", "-submissions", "1"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one submission line, got %q", out.String())
	}
	var got storage.Submission
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if got.Subject != "Newer question" || got.ToAddress != "shop@example.com" {
		t.Fatalf("unexpected submission %+v", got)
	}
}
