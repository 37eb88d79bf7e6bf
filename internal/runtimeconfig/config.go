package runtimeconfig

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	ErrSiteURLRequired          = errors.New("storefront config: site url is required")
	ErrSiteURLInvalid           = errors.New("storefront config: site url must be absolute")
	ErrLocalesRequired          = errors.New("storefront config: at least one locale is required")
	ErrDefaultLocaleUnsupported = errors.New("storefront config: default locale is not in the supported set")
	ErrCMSRepositoryRequired    = errors.New("storefront config: cms repository or endpoint is required")
	ErrCartStoreUnsupported     = errors.New("storefront config: cart store must be memory or redis")
	ErrRedisAddrRequired        = errors.New("storefront config: redis address is required for the redis cart store")
	ErrStorageDriverUnsupported = errors.New("storefront config: storage driver is not supported")
	ErrBatchConcurrencyInvalid  = errors.New("storefront config: batch concurrency must be positive")
	ErrLoggingProviderUnknown   = errors.New("storefront config: logging provider is invalid")
	ErrLoggingLevelInvalid      = errors.New("storefront config: logging level is invalid")
	ErrLoggingFormatInvalid     = errors.New("storefront config: logging format is invalid")
)

const (
	CartStoreMemory = "memory"
	CartStoreRedis  = "redis"
)

// Config aggregates every setting of the storefront.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Site    SiteConfig    `mapstructure:"site"`
	Locales LocalesConfig `mapstructure:"locales"`
	Routing RoutingConfig `mapstructure:"routing"`
	CMS     CMSConfig     `mapstructure:"cms"`
	Stripe  StripeConfig  `mapstructure:"stripe"`
	Mail    MailConfig    `mapstructure:"mail"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Cart    CartConfig    `mapstructure:"cart"`
	Consent ConsentConfig `mapstructure:"consent"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Storage StorageConfig `mapstructure:"storage"`
	Jobs    JobsConfig    `mapstructure:"jobs"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type SiteConfig struct {
	URL string `mapstructure:"url"`
}

// LocalesConfig replaces the built-in locale table.
type LocalesConfig struct {
	Supported []string          `mapstructure:"supported"`
	Default   string            `mapstructure:"default"`
	Names     map[string]string `mapstructure:"names"`
}

// RoutingConfig lists uids that only resolve in the default locale, on top
// of documents flagged localized_slug.
type RoutingConfig struct {
	LocalizedUIDs []string `mapstructure:"localized_uids"`
}

type CMSConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`
	Repository  string        `mapstructure:"repository"`
	AccessToken string        `mapstructure:"access_token"`
	RefTTL      time.Duration `mapstructure:"ref_ttl"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Configured reports whether a repository or endpoint is set. A host that
// injects its own content reader does not need either.
func (c CMSConfig) Configured() bool {
	return strings.TrimSpace(c.Repository) != "" || strings.TrimSpace(c.Endpoint) != ""
}

// StripeConfig is optional at boot; requests report a missing key.
type StripeConfig struct {
	SecretKey        string        `mapstructure:"secret_key"`
	PublishableKey   string        `mapstructure:"publishable_key"`
	APIVersion       string        `mapstructure:"api_version"`
	BaseURL          string        `mapstructure:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	ProductCacheTTL  time.Duration `mapstructure:"product_cache_ttl"`
	ProductCacheSize int           `mapstructure:"product_cache_size"`
	BatchConcurrency int           `mapstructure:"batch_concurrency"`
}

// MailConfig is optional at boot; the contact endpoint reports what is missing.
type MailConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	From    string `mapstructure:"from"`
	To      string `mapstructure:"to"`
	Subject string `mapstructure:"subject"`
}

type CacheConfig struct {
	Hreflang HreflangCacheConfig `mapstructure:"hreflang"`
}

type HreflangCacheConfig struct {
	TTL  time.Duration `mapstructure:"ttl"`
	Size int           `mapstructure:"size"`
}

type CartConfig struct {
	Store string        `mapstructure:"store"`
	TTL   time.Duration `mapstructure:"ttl"`
}

type ConsentConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type JobsConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	SitemapSpec      string `mapstructure:"sitemap_spec"`
	CatalogPurgeSpec string `mapstructure:"catalog_purge_spec"`
}

type LoggingConfig struct {
	Provider  string `mapstructure:"provider"`
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	AddSource bool   `mapstructure:"add_source"`
}

// DefaultConfig mirrors the original site's behaviour: one Swedish locale,
// in-memory carts and a local sqlite ledger.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":3000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Site: SiteConfig{URL: "http://localhost:3000"},
		Locales: LocalesConfig{
			Supported: []string{"sv-se"},
			Default:   "sv-se",
			Names:     map[string]string{"sv-se": "Svenska"},
		},
		Routing: RoutingConfig{
			LocalizedUIDs: []string{"om-kumpan-starter", "var-historia"},
		},
		CMS: CMSConfig{
			RefTTL:  30 * time.Second,
			Timeout: 10 * time.Second,
		},
		Stripe: StripeConfig{
			APIVersion:       "2025-07-30.basil",
			BaseURL:          "https://api.stripe.com",
			Timeout:          15 * time.Second,
			ProductCacheTTL:  5 * time.Minute,
			ProductCacheSize: 512,
			BatchConcurrency: 8,
		},
		Mail: MailConfig{
			BaseURL: "https://api.resend.com",
			Subject: "New Contact Form Submission",
		},
		Cache: CacheConfig{
			Hreflang: HreflangCacheConfig{TTL: 5 * time.Minute, Size: 1024},
		},
		Cart: CartConfig{
			Store: CartStoreMemory,
			TTL:   30 * 24 * time.Hour,
		},
		Consent: ConsentConfig{TTL: 365 * 24 * time.Hour},
		Redis:   RedisConfig{Addr: "localhost:6379"},
		Storage: StorageConfig{
			Driver: "sqlite3",
			DSN:    "file:storefront.db?cache=shared",
		},
		Jobs: JobsConfig{
			Enabled:          true,
			SitemapSpec:      "@every 15m",
			CatalogPurgeSpec: "@every 1h",
		},
		Logging: LoggingConfig{
			Provider: "gologger",
			Level:    "info",
			Format:   "json",
		},
	}
}

// Validate performs consistency checks. Payment and mail credentials are
// not required here.
func (cfg Config) Validate() error {
	site := strings.TrimSpace(cfg.Site.URL)
	if site == "" {
		return ErrSiteURLRequired
	}
	if parsed, err := url.Parse(site); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%w: %s", ErrSiteURLInvalid, site)
	}

	if len(cfg.Locales.Supported) == 0 {
		return ErrLocalesRequired
	}
	def := normalizeLocale(cfg.Locales.Default)
	found := false
	for _, code := range cfg.Locales.Supported {
		if normalizeLocale(code) == def {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrDefaultLocaleUnsupported, cfg.Locales.Default)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Cart.Store)) {
	case CartStoreMemory:
	case CartStoreRedis:
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			return ErrRedisAddrRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrCartStoreUnsupported, cfg.Cart.Store)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("%w: %q", ErrStorageDriverUnsupported, cfg.Storage.Driver)
	}

	if cfg.Stripe.BatchConcurrency <= 0 {
		return ErrBatchConcurrencyInvalid
	}

	provider := normalizeProvider(cfg.Logging.Provider)
	if !isSupportedProvider(provider) {
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, cfg.Logging.Provider)
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if provider == "gologger" {
		if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}
	return nil
}

func normalizeLocale(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func normalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return "gologger"
	}
	return provider
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger", "logrus":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
