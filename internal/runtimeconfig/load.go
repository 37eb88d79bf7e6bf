package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces the automatic environment overrides, so
// server.addr is read from STOREFRONT_SERVER_ADDR.
const EnvPrefix = "STOREFRONT"

// flatEnv keeps the variable names of the original deployment working.
var flatEnv = map[string][]string{
	"site.url":               {"SITE_URL", "NEXT_PUBLIC_SITE_URL"},
	"stripe.secret_key":      {"STRIPE_SECRET_KEY"},
	"stripe.publishable_key": {"NEXT_PUBLIC_STRIPE_PUBLISHABLE_KEY"},
	"mail.api_key":           {"RESEND_API_KEY"},
	"mail.from":              {"FROM_EMAIL"},
	"mail.to":                {"TO_EMAIL"},
	"mail.subject":           {"EMAIL_SUBJECT"},
	"cms.repository":         {"PRISMIC_REPOSITORY"},
	"cms.access_token":       {"PRISMIC_ACCESS_TOKEN"},
	"redis.addr":             {"REDIS_ADDR"},
}

// Load reads configuration from defaults, an optional file and the
// environment, in increasing order of precedence. When path is empty a
// storefront.yaml in the working directory is used if present.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range flatEnv {
		// explicit names are not prefixed; the prefixed form still wins
		args := append([]string{key, EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(args...); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("storefront")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Locales.Supported = splitList(cfg.Locales.Supported)
	cfg.Routing.LocalizedUIDs = splitList(cfg.Routing.LocalizedUIDs)
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)

	v.SetDefault("site.url", cfg.Site.URL)

	v.SetDefault("locales.supported", cfg.Locales.Supported)
	v.SetDefault("locales.default", cfg.Locales.Default)
	v.SetDefault("locales.names", cfg.Locales.Names)
	v.SetDefault("routing.localized_uids", cfg.Routing.LocalizedUIDs)

	v.SetDefault("cms.endpoint", cfg.CMS.Endpoint)
	v.SetDefault("cms.repository", cfg.CMS.Repository)
	v.SetDefault("cms.access_token", cfg.CMS.AccessToken)
	v.SetDefault("cms.ref_ttl", cfg.CMS.RefTTL)
	v.SetDefault("cms.timeout", cfg.CMS.Timeout)

	v.SetDefault("stripe.secret_key", cfg.Stripe.SecretKey)
	v.SetDefault("stripe.publishable_key", cfg.Stripe.PublishableKey)
	v.SetDefault("stripe.api_version", cfg.Stripe.APIVersion)
	v.SetDefault("stripe.base_url", cfg.Stripe.BaseURL)
	v.SetDefault("stripe.timeout", cfg.Stripe.Timeout)
	v.SetDefault("stripe.product_cache_ttl", cfg.Stripe.ProductCacheTTL)
	v.SetDefault("stripe.product_cache_size", cfg.Stripe.ProductCacheSize)
	v.SetDefault("stripe.batch_concurrency", cfg.Stripe.BatchConcurrency)

	v.SetDefault("mail.api_key", cfg.Mail.APIKey)
	v.SetDefault("mail.base_url", cfg.Mail.BaseURL)
	v.SetDefault("mail.from", cfg.Mail.From)
	v.SetDefault("mail.to", cfg.Mail.To)
	v.SetDefault("mail.subject", cfg.Mail.Subject)

	v.SetDefault("cache.hreflang.ttl", cfg.Cache.Hreflang.TTL)
	v.SetDefault("cache.hreflang.size", cfg.Cache.Hreflang.Size)

	v.SetDefault("cart.store", cfg.Cart.Store)
	v.SetDefault("cart.ttl", cfg.Cart.TTL)
	v.SetDefault("consent.ttl", cfg.Consent.TTL)

	v.SetDefault("redis.addr", cfg.Redis.Addr)
	v.SetDefault("redis.password", cfg.Redis.Password)
	v.SetDefault("redis.db", cfg.Redis.DB)

	v.SetDefault("storage.driver", cfg.Storage.Driver)
	v.SetDefault("storage.dsn", cfg.Storage.DSN)

	v.SetDefault("jobs.enabled", cfg.Jobs.Enabled)
	v.SetDefault("jobs.sitemap_spec", cfg.Jobs.SitemapSpec)
	v.SetDefault("jobs.catalog_purge_spec", cfg.Jobs.CatalogPurgeSpec)

	v.SetDefault("logging.provider", cfg.Logging.Provider)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.add_source", cfg.Logging.AddSource)
}

// splitList accepts both real lists and a single comma separated entry,
// which is how lists arrive from the environment.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
