package runtimeconfig_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-storefront/internal/runtimeconfig"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned unexpected error: %v", err)
	}
	if cfg.CMS.Configured() {
		t.Fatal("default cms config must not be configured")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*runtimeconfig.Config)
		want   error
	}{
		{"blank site url", func(c *runtimeconfig.Config) { c.Site.URL = " " }, runtimeconfig.ErrSiteURLRequired},
		{"relative site url", func(c *runtimeconfig.Config) { c.Site.URL = "/shop" }, runtimeconfig.ErrSiteURLInvalid},
		{"no locales", func(c *runtimeconfig.Config) { c.Locales.Supported = nil }, runtimeconfig.ErrLocalesRequired},
		{"default outside set", func(c *runtimeconfig.Config) { c.Locales.Default = "en-us" }, runtimeconfig.ErrDefaultLocaleUnsupported},
		{"unknown cart store", func(c *runtimeconfig.Config) { c.Cart.Store = "postgres" }, runtimeconfig.ErrCartStoreUnsupported},
		{"redis without addr", func(c *runtimeconfig.Config) {
			c.Cart.Store = runtimeconfig.CartStoreRedis
			c.Redis.Addr = ""
		}, runtimeconfig.ErrRedisAddrRequired},
		{"postgres ledger", func(c *runtimeconfig.Config) { c.Storage.Driver = "postgres" }, runtimeconfig.ErrStorageDriverUnsupported},
		{"zero concurrency", func(c *runtimeconfig.Config) { c.Stripe.BatchConcurrency = 0 }, runtimeconfig.ErrBatchConcurrencyInvalid},
		{"unknown logger", func(c *runtimeconfig.Config) { c.Logging.Provider = "syslog" }, runtimeconfig.ErrLoggingProviderUnknown},
		{"bad level", func(c *runtimeconfig.Config) { c.Logging.Level = "loud" }, runtimeconfig.ErrLoggingLevelInvalid},
		{"bad format", func(c *runtimeconfig.Config) { c.Logging.Format = "xml" }, runtimeconfig.ErrLoggingFormatInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := runtimeconfig.DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestConfigValidateAllowsMissingCredentials(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Stripe.SecretKey = ""
	cfg.Mail.APIKey = ""
	cfg.Logging.Provider = "logrus"
	cfg.Logging.Format = "anything"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected credentials to be optional, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := runtimeconfig.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(runtimeconfig.DefaultConfig(), cfg); diff != "" {
		t.Fatalf("unexpected defaults (-want +got):\n%s", diff)
	}
}

func TestLoadFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storefront.yaml")
	content := []byte(`
site:
  url: https://shop.example.com
locales:
  supported: [sv-se, en-us]
  default: sv-se
  names:
    sv-se: Svenska
    en-us: English
cms:
  repository: from-file
  ref_ttl: 1m
cart:
  store: redis
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PRISMIC_REPOSITORY", "kumpan")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("NEXT_PUBLIC_SITE_URL", "https://env.example.com")
	t.Setenv("STOREFRONT_SERVER_ADDR", ":8080")
	t.Setenv("STOREFRONT_ROUTING_LOCALIZED_UIDS", "a, b")

	cfg, err := runtimeconfig.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CMS.Repository != "kumpan" {
		t.Fatalf("expected env repository, got %q", cfg.CMS.Repository)
	}
	if cfg.CMS.RefTTL != time.Minute {
		t.Fatalf("expected ref ttl from file, got %v", cfg.CMS.RefTTL)
	}
	if cfg.Stripe.SecretKey != "sk_test_123" {
		t.Fatalf("expected stripe key from env, got %q", cfg.Stripe.SecretKey)
	}
	if cfg.Site.URL != "https://env.example.com" {
		t.Fatalf("expected site url from env, got %q", cfg.Site.URL)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("expected prefixed env override, got %q", cfg.Server.Addr)
	}
	if diff := cmp.Diff([]string{"sv-se", "en-us"}, cfg.Locales.Supported); diff != "" {
		t.Fatalf("unexpected locales (-want +got):\n%s", diff)
	}
	if cfg.Locales.Names["en-us"] != "English" {
		t.Fatalf("unexpected names %v", cfg.Locales.Names)
	}
	if diff := cmp.Diff([]string{"a", "b"}, cfg.Routing.LocalizedUIDs); diff != "" {
		t.Fatalf("unexpected localized uids (-want +got):\n%s", diff)
	}
	if cfg.Cart.Store != runtimeconfig.CartStoreRedis {
		t.Fatalf("expected redis store, got %q", cfg.Cart.Store)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := runtimeconfig.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
