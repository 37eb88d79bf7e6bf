package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-storefront/internal/breadcrumbs"
	"github.com/goliatone/go-storefront/internal/cart"
	"github.com/goliatone/go-storefront/internal/cms"
	"github.com/goliatone/go-storefront/internal/consent"
	"github.com/goliatone/go-storefront/internal/hreflang"
	storefronthttp "github.com/goliatone/go-storefront/internal/http"
	"github.com/goliatone/go-storefront/internal/jobs"
	"github.com/goliatone/go-storefront/internal/kv"
	"github.com/goliatone/go-storefront/internal/locales"
	"github.com/goliatone/go-storefront/internal/logging"
	"github.com/goliatone/go-storefront/internal/logging/console"
	"github.com/goliatone/go-storefront/internal/logging/gologger"
	"github.com/goliatone/go-storefront/internal/logging/logrusadapter"
	"github.com/goliatone/go-storefront/internal/mailer"
	"github.com/goliatone/go-storefront/internal/markdown"
	"github.com/goliatone/go-storefront/internal/payments"
	"github.com/goliatone/go-storefront/internal/routing"
	"github.com/goliatone/go-storefront/internal/runtimeconfig"
	"github.com/goliatone/go-storefront/internal/sitemap"
	"github.com/goliatone/go-storefront/internal/slices"
	"github.com/goliatone/go-storefront/internal/storage"
	"github.com/goliatone/go-storefront/pkg/interfaces"
)

const runHistoryLimit = 100

// lazy builds a value once and remembers the outcome, error included.
type lazy[T any] struct {
	once  sync.Once
	value T
	err   error
}

func (l *lazy[T]) get(build func() (T, error)) (T, error) {
	l.once.Do(func() {
		l.value, l.err = build()
	})
	return l.value, l.err
}

// Container wires the storefront services from configuration. Services are
// built on first use. Collaborators passed as options replace the ones the
// container would otherwise build from config.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	now            func() time.Time

	locales *locales.Table
	reader  cms.Reader
	gateway payments.Gateway
	sender  mailer.Sender
	redis   redis.UniversalClient
	ledger  *storage.Ledger

	closeMu sync.Mutex
	closers []func() error

	singles    lazy[*cms.Singles]
	alternates lazy[*hreflang.Generator]
	store      lazy[interfaces.KeyValueStore]
	carts      lazy[*cart.Service]
	consent    lazy[*consent.Store]
	catalog    lazy[*payments.Catalog]
	ledgerOnce lazy[*storage.Ledger]
	checkout   lazy[*payments.Checkout]
	relay      lazy[*mailer.Relay]
	sitemap    lazy[*sitemap.Cache]
	pages      lazy[*markdown.Pages]
	registry   lazy[*slices.Registry]
	runs       lazy[*jobs.InMemoryRunRecorder]
	scheduler  lazy[*jobs.Scheduler]
	server     lazy[*storefronthttp.Server]
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithLoggerProvider overrides the provider selected by logging.provider.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithContentReader replaces the CMS client, which makes the cms section
// of the configuration optional.
func WithContentReader(reader cms.Reader) Option {
	return func(c *Container) {
		c.reader = reader
	}
}

// WithStripeClient replaces the payment API client.
func WithStripeClient(gateway payments.Gateway) Option {
	return func(c *Container) {
		c.gateway = gateway
	}
}

// WithMailSender replaces the Resend client.
func WithMailSender(sender mailer.Sender) Option {
	return func(c *Container) {
		c.sender = sender
	}
}

// WithRedisClient supplies the client used by the redis cart store. The
// caller keeps ownership and closes it.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(c *Container) {
		c.redis = client
	}
}

// WithClock overrides the wall clock used by caches, stores and jobs.
func WithClock(now func() time.Time) Option {
	return func(c *Container) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLedger supplies a migrated ledger. The caller keeps ownership.
func WithLedger(ledger *storage.Ledger) Option {
	return func(c *Container) {
		c.ledger = ledger
	}
}

// NewContainer validates cfg and prepares the collaborators that every
// request needs. Everything else is built on first use.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Container{Config: cfg, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if err := c.configureLoggerProvider(); err != nil {
		return nil, err
	}

	table, err := locales.New(cfg.Locales.Supported, cfg.Locales.Default, cfg.Locales.Names)
	if err != nil {
		return nil, fmt.Errorf("storefront locales: %w", err)
	}
	c.locales = table

	if c.reader == nil {
		if !cfg.CMS.Configured() {
			return nil, runtimeconfig.ErrCMSRepositoryRequired
		}
		client := cms.NewClient(cms.Config{
			Endpoint:    cfg.CMS.Endpoint,
			Repository:  cfg.CMS.Repository,
			AccessToken: cfg.CMS.AccessToken,
			RefTTL:      cfg.CMS.RefTTL,
			Timeout:     cfg.CMS.Timeout,
		}, cms.WithLogger(logging.CMSLogger(c.loggerProvider)), cms.WithClock(c.now))
		c.reader = client
		c.onClose(client.Close)
	}

	if c.redis == nil && strings.EqualFold(strings.TrimSpace(cfg.Cart.Store), runtimeconfig.CartStoreRedis) {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		c.redis = client
		c.onClose(client.Close)
	}
	return c, nil
}

func (c *Container) configureLoggerProvider() error {
	if c.loggerProvider != nil {
		return nil
	}
	cfg := c.Config.Logging
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "console":
		level := console.ParseLevel(cfg.Level)
		c.loggerProvider = console.NewProvider(console.Options{MinLevel: &level})
	case "logrus":
		provider, err := logrusadapter.NewProvider(logrusadapter.Config{Level: cfg.Level, Format: cfg.Format})
		if err != nil {
			return err
		}
		c.loggerProvider = provider
	default:
		provider, err := gologger.NewProvider(gologger.Config{Level: cfg.Level, Format: cfg.Format, AddSource: cfg.AddSource})
		if err != nil {
			return err
		}
		c.loggerProvider = provider
	}
	return nil
}

func (c *Container) onClose(fn func() error) {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	c.closers = append(c.closers, fn)
}

// Close releases what the container opened, newest first. Injected
// collaborators are left to their owners.
func (c *Container) Close() error {
	c.closeMu.Lock()
	closers := c.closers
	c.closers = nil
	c.closeMu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

func (c *Container) Locales() *locales.Table {
	return c.locales
}

func (c *Container) ContentReader() cms.Reader {
	return c.reader
}

func (c *Container) Singles() *cms.Singles {
	singles, _ := c.singles.get(func() (*cms.Singles, error) {
		return cms.NewSingles(c.reader, c.locales.Default(), logging.CMSLogger(c.loggerProvider)), nil
	})
	return singles
}

// Alternates returns the cached hreflang generator.
func (c *Container) Alternates() (*hreflang.Generator, error) {
	return c.alternates.get(func() (*hreflang.Generator, error) {
		return hreflang.New(hreflang.Config{
			SiteURL:  c.Config.Site.URL,
			TTL:      c.Config.Cache.Hreflang.TTL,
			Capacity: c.Config.Cache.Hreflang.Size,
		}, hreflang.Dependencies{
			Reader:  c.reader,
			Locales: c.locales,
			Logger:  logging.HreflangLogger(c.loggerProvider),
		}, hreflang.WithClock(c.now))
	})
}

// KeyValueStore is shared by carts and consent records: redis when the
// cart store is redis, process memory otherwise.
func (c *Container) KeyValueStore() interfaces.KeyValueStore {
	store, _ := c.store.get(func() (interfaces.KeyValueStore, error) {
		if c.redis != nil {
			return kv.NewRedis(c.redis, ""), nil
		}
		return kv.NewMemory(c.now), nil
	})
	return store
}

func (c *Container) Carts() *cart.Service {
	carts, _ := c.carts.get(func() (*cart.Service, error) {
		var store cart.Store
		if c.redis != nil {
			store = cart.NewRedisStore(c.redis, c.Config.Cart.TTL)
		} else {
			store = cart.NewKVStore(c.KeyValueStore(), c.Config.Cart.TTL)
		}
		return cart.NewService(store, logging.CartLogger(c.loggerProvider)), nil
	})
	return carts
}

func (c *Container) Consent() *consent.Store {
	store, _ := c.consent.get(func() (*consent.Store, error) {
		return consent.NewStore(c.KeyValueStore(), c.Config.Consent.TTL, c.now), nil
	})
	return store
}

// Gateway returns the payment API client. Without a secret key the client
// still builds and every call reports the missing configuration.
func (c *Container) Gateway() payments.Gateway {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.gateway == nil {
		client := payments.NewStripeClient(payments.StripeConfig{
			SecretKey:  c.Config.Stripe.SecretKey,
			APIVersion: c.Config.Stripe.APIVersion,
			BaseURL:    c.Config.Stripe.BaseURL,
			Timeout:    c.Config.Stripe.Timeout,
		})
		c.gateway = client
		c.closers = append(c.closers, client.Close)
	}
	return c.gateway
}

func (c *Container) Catalog() *payments.Catalog {
	catalog, _ := c.catalog.get(func() (*payments.Catalog, error) {
		return payments.NewCatalog(c.Gateway(), payments.CatalogConfig{
			CacheTTL:         c.Config.Stripe.ProductCacheTTL,
			CacheSize:        c.Config.Stripe.ProductCacheSize,
			BatchConcurrency: c.Config.Stripe.BatchConcurrency,
		}, logging.PaymentsLogger(c.loggerProvider)), nil
	})
	return catalog
}

// Ledger returns the order and submission ledger, opening and migrating the
// configured database on first use.
func (c *Container) Ledger(ctx context.Context) (*storage.Ledger, error) {
	return c.ledgerOnce.get(func() (*storage.Ledger, error) {
		if c.ledger != nil {
			return c.ledger, nil
		}
		logger := logging.StorageLogger(c.loggerProvider)
		ledger, err := storage.Open(storage.Config{Driver: c.Config.Storage.Driver, DSN: c.Config.Storage.DSN})
		if err != nil {
			return nil, err
		}
		if err := ledger.Migrate(ctx); err != nil {
			_ = ledger.Close()
			return nil, err
		}
		c.onClose(ledger.Close)
		logger.WithContext(ctx).Info("storage.ledger.ready", "driver", c.Config.Storage.Driver)
		return ledger, nil
	})
}

func (c *Container) Checkout(ctx context.Context) (*payments.Checkout, error) {
	return c.checkout.get(func() (*payments.Checkout, error) {
		ledger, err := c.Ledger(ctx)
		if err != nil {
			return nil, err
		}
		return payments.NewCheckout(c.Gateway(), ledger, logging.PaymentsLogger(c.loggerProvider)), nil
	})
}

// ContactRelay builds the relay. Without an API key the relay answers every
// submission with the missing key message, injected sender or not.
func (c *Container) ContactRelay(ctx context.Context) (*mailer.Relay, error) {
	return c.relay.get(func() (*mailer.Relay, error) {
		ledger, err := c.Ledger(ctx)
		if err != nil {
			return nil, err
		}
		var sender mailer.Sender
		switch {
		case c.sender != nil:
			sender = c.sender
		case strings.TrimSpace(c.Config.Mail.APIKey) != "":
			client := mailer.NewResendClient(c.Config.Mail.APIKey, c.Config.Mail.BaseURL)
			c.onClose(client.Close)
			sender = client
		}
		return mailer.NewRelay(mailer.Config{
			APIKey:  c.Config.Mail.APIKey,
			From:    c.Config.Mail.From,
			To:      c.Config.Mail.To,
			Subject: c.Config.Mail.Subject,
		}, sender, ledger, logging.MailerLogger(c.loggerProvider)), nil
	})
}

func (c *Container) SitemapCache() (*sitemap.Cache, error) {
	return c.sitemap.get(func() (*sitemap.Cache, error) {
		alternates, err := c.Alternates()
		if err != nil {
			return nil, err
		}
		builder := sitemap.NewBuilder(c.Config.Site.URL, c.reader, alternates, c.locales,
			logging.SitemapLogger(c.loggerProvider), c.now)
		return sitemap.NewCache(builder), nil
	})
}

func (c *Container) Pages() (*markdown.Pages, error) {
	return c.pages.get(markdown.Embedded)
}

func (c *Container) SliceRegistry() *slices.Registry {
	registry, _ := c.registry.get(func() (*slices.Registry, error) {
		return slices.NewRegistry(logging.ModuleLogger(c.loggerProvider, "storefront.slices")), nil
	})
	return registry
}

func (c *Container) RunRecorder() *jobs.InMemoryRunRecorder {
	runs, _ := c.runs.get(func() (*jobs.InMemoryRunRecorder, error) {
		return jobs.NewInMemoryRunRecorder(runHistoryLimit), nil
	})
	return runs
}

// Scheduler returns the background jobs. The scheduler is not started.
func (c *Container) Scheduler() (*jobs.Scheduler, error) {
	return c.scheduler.get(func() (*jobs.Scheduler, error) {
		cache, err := c.SitemapCache()
		if err != nil {
			return nil, err
		}
		logger := logging.JobsLogger(c.loggerProvider)
		scheduler := jobs.NewScheduler(logger,
			jobs.WithRecorder(c.RunRecorder()),
			jobs.WithClock(c.now),
		)
		err = jobs.RegisterHandlers(scheduler.Registrar(),
			jobs.NewSitemapRefreshHandler(cache, logger, jobs.WithCronExpression(c.Config.Jobs.SitemapSpec)),
			jobs.NewCatalogPurgeHandler(c.Catalog(), logger, jobs.WithCronExpression(c.Config.Jobs.CatalogPurgeSpec)),
		)
		if err != nil {
			return nil, err
		}
		return scheduler, nil
	})
}

// Server assembles the HTTP surface from every service.
func (c *Container) Server(ctx context.Context) (*storefronthttp.Server, error) {
	return c.server.get(func() (*storefronthttp.Server, error) {
		alternates, err := c.Alternates()
		if err != nil {
			return nil, err
		}
		cache, err := c.SitemapCache()
		if err != nil {
			return nil, err
		}
		pages, err := c.Pages()
		if err != nil {
			return nil, err
		}
		ledger, err := c.Ledger(ctx)
		if err != nil {
			return nil, err
		}
		checkout, err := c.Checkout(ctx)
		if err != nil {
			return nil, err
		}
		relay, err := c.ContactRelay(ctx)
		if err != nil {
			return nil, err
		}
		return storefronthttp.NewServer(
			storefronthttp.WithSiteURL(c.Config.Site.URL),
			storefronthttp.WithLocales(c.locales),
			storefronthttp.WithContentReader(c.reader),
			storefronthttp.WithSingles(c.Singles()),
			storefronthttp.WithValidator(routing.NewValidator(c.locales, c.Config.Routing.LocalizedUIDs)),
			storefronthttp.WithAlternates(alternates),
			storefronthttp.WithBreadcrumbs(breadcrumbs.NewBuilder(c.locales)),
			storefronthttp.WithSliceRegistry(c.SliceRegistry()),
			storefronthttp.WithPages(pages),
			storefronthttp.WithSitemap(cache),
			storefronthttp.WithCatalog(c.Catalog()),
			storefronthttp.WithCheckout(checkout),
			storefronthttp.WithContactRelay(relay),
			storefronthttp.WithCarts(c.Carts()),
			storefronthttp.WithConsent(c.Consent()),
			storefronthttp.WithOrders(ledger),
			storefronthttp.WithLogger(logging.HTTPLogger(c.loggerProvider)),
		), nil
	})
}
