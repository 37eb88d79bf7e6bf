package storefront

import (
	"context"
	"net/http"

	"github.com/goliatone/go-storefront/internal/cms"
	"github.com/goliatone/go-storefront/internal/di"
	"github.com/goliatone/go-storefront/internal/document"
	"github.com/goliatone/go-storefront/internal/jobs"
	"github.com/goliatone/go-storefront/internal/runtimeconfig"
)

type (
	// Config aggregates every storefront setting.
	Config = runtimeconfig.Config
	// Option overrides a collaborator the module would build from Config.
	Option = di.Option
	// ContentReader fetches CMS documents.
	ContentReader = cms.Reader
	// Document is a CMS document.
	Document = document.Document
)

var (
	ErrSiteURLRequired          = runtimeconfig.ErrSiteURLRequired
	ErrSiteURLInvalid           = runtimeconfig.ErrSiteURLInvalid
	ErrLocalesRequired          = runtimeconfig.ErrLocalesRequired
	ErrDefaultLocaleUnsupported = runtimeconfig.ErrDefaultLocaleUnsupported
	ErrCMSRepositoryRequired    = runtimeconfig.ErrCMSRepositoryRequired
	ErrCartStoreUnsupported     = runtimeconfig.ErrCartStoreUnsupported
	ErrRedisAddrRequired        = runtimeconfig.ErrRedisAddrRequired
	ErrStorageDriverUnsupported = runtimeconfig.ErrStorageDriverUnsupported
	ErrLoggingProviderUnknown   = runtimeconfig.ErrLoggingProviderUnknown
)

var (
	WithLoggerProvider = di.WithLoggerProvider
	WithContentReader  = di.WithContentReader
	WithStripeClient   = di.WithStripeClient
	WithMailSender     = di.WithMailSender
	WithRedisClient    = di.WithRedisClient
	WithClock          = di.WithClock
	WithLedger         = di.WithLedger
)

// DefaultConfig returns the settings of a single locale shop with in-memory
// carts and a local sqlite ledger.
func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig reads path (optional) and STOREFRONT_* environment variables on
// top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	return runtimeconfig.Load(path)
}

// NewMemoryReader returns a ContentReader serving docs from memory.
func NewMemoryReader(masterLang string, docs ...*Document) ContentReader {
	return cms.NewMemoryReader(masterLang, docs...)
}

// Module is the storefront runtime facade.
type Module struct {
	container *di.Container
	handler   http.Handler
}

// New builds the module and its HTTP handler. The ledger database is opened
// and migrated here so a bad DSN fails at boot.
func New(ctx context.Context, cfg Config, opts ...Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	srv, err := container.Server(ctx)
	if err != nil {
		_ = container.Close()
		return nil, err
	}
	return &Module{container: container, handler: srv.Handler()}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Config returns the validated configuration.
func (m *Module) Config() Config {
	return m.container.Config
}

// Handler serves every storefront route.
func (m *Module) Handler() http.Handler {
	return m.handler
}

// Scheduler returns the background jobs, not yet started.
func (m *Module) Scheduler() (*jobs.Scheduler, error) {
	return m.container.Scheduler()
}

// Close releases connections opened by the module.
func (m *Module) Close() error {
	return m.container.Close()
}
