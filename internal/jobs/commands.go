package jobs

import (
	"context"
	"strings"
	"time"

	command "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-storefront/internal/logging"
	"github.com/goliatone/go-storefront/pkg/interfaces"
)

const (
	sitemapRefreshMessageType = "storefront.sitemap.refresh"
	catalogPurgeMessageType   = "storefront.catalog.purge"

	DefaultJobTimeout = 30 * time.Second

	textCodeValidation = "JOB_VALIDATION_FAILED"
	textCodeContext    = "JOB_CONTEXT_ERROR"
	textCodeExecute    = "JOB_EXECUTION_FAILED"
)

var (
	_ command.Commander[RefreshSitemapCommand] = (*SitemapRefreshHandler)(nil)
	_ command.Commander[PurgeCatalogCommand]   = (*CatalogPurgeHandler)(nil)
	_ Handler                                  = (*SitemapRefreshHandler)(nil)
	_ Handler                                  = (*CatalogPurgeHandler)(nil)
)

// RefreshSitemapCommand rebuilds the cached sitemap.
type RefreshSitemapCommand struct{}

// Type implements command.Message.
func (RefreshSitemapCommand) Type() string { return sitemapRefreshMessageType }

// Validate satisfies command.Message; there is no payload.
func (RefreshSitemapCommand) Validate() error { return nil }

// PurgeCatalogCommand empties the product cache.
type PurgeCatalogCommand struct{}

// Type implements command.Message.
func (PurgeCatalogCommand) Type() string { return catalogPurgeMessageType }

// Validate satisfies command.Message; there is no payload.
func (PurgeCatalogCommand) Validate() error { return nil }

// Refresher rebuilds a cached artefact.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Purger drops cached entries.
type Purger interface {
	Purge()
}

type handlerConfig struct {
	cronConfig command.HandlerConfig
	timeout    time.Duration
}

// HandlerOption customises a job handler.
type HandlerOption func(*handlerConfig)

// WithCronExpression overrides the handler's cron expression. Blank
// expressions keep the default.
func WithCronExpression(expression string) HandlerOption {
	return func(cfg *handlerConfig) {
		if trimmed := strings.TrimSpace(expression); trimmed != "" {
			cfg.cronConfig.Expression = trimmed
		}
	}
}

// WithTimeout bounds a single execution.
func WithTimeout(timeout time.Duration) HandlerOption {
	return func(cfg *handlerConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

func newHandlerConfig(expression string, opts []HandlerOption) handlerConfig {
	cfg := handlerConfig{
		cronConfig: command.HandlerConfig{Expression: expression},
		timeout:    DefaultJobTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// SitemapRefreshHandler rebuilds the sitemap cache.
type SitemapRefreshHandler struct {
	cache      Refresher
	logger     interfaces.Logger
	cronConfig command.HandlerConfig
	timeout    time.Duration
}

// NewSitemapRefreshHandler runs on DefaultSitemapSpec unless overridden.
func NewSitemapRefreshHandler(cache Refresher, logger interfaces.Logger, opts ...HandlerOption) *SitemapRefreshHandler {
	cfg := newHandlerConfig(DefaultSitemapSpec, opts)
	return &SitemapRefreshHandler{
		cache:      cache,
		logger:     ensureLogger(logger),
		cronConfig: cfg.cronConfig,
		timeout:    cfg.timeout,
	}
}

// Execute satisfies command.Commander[RefreshSitemapCommand].
func (h *SitemapRefreshHandler) Execute(ctx context.Context, msg RefreshSitemapCommand) error {
	ctx, cancel, err := prepare(ctx, msg, h.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	if err := h.cache.Refresh(ctx); err != nil {
		return wrapExecuteError(err)
	}
	h.logger.WithContext(ctx).Debug("jobs.sitemap.refreshed")
	return nil
}

func (h *SitemapRefreshHandler) JobName() string { return JobSitemapRefresh }

func (h *SitemapRefreshHandler) Run(ctx context.Context) error {
	return h.Execute(ctx, RefreshSitemapCommand{})
}

// CronHandler satisfies command.CronCommand.
func (h *SitemapRefreshHandler) CronHandler() func() error {
	return func() error {
		return h.Run(context.Background())
	}
}

// CronOptions satisfies command.CronCommand.
func (h *SitemapRefreshHandler) CronOptions() command.HandlerConfig {
	return h.cronConfig
}

// CatalogPurgeHandler empties the product cache so prices are fetched
// fresh.
type CatalogPurgeHandler struct {
	catalog    Purger
	logger     interfaces.Logger
	cronConfig command.HandlerConfig
	timeout    time.Duration
}

// NewCatalogPurgeHandler runs on DefaultCatalogPurgeSpec unless overridden.
func NewCatalogPurgeHandler(catalog Purger, logger interfaces.Logger, opts ...HandlerOption) *CatalogPurgeHandler {
	cfg := newHandlerConfig(DefaultCatalogPurgeSpec, opts)
	return &CatalogPurgeHandler{
		catalog:    catalog,
		logger:     ensureLogger(logger),
		cronConfig: cfg.cronConfig,
		timeout:    cfg.timeout,
	}
}

// Execute satisfies command.Commander[PurgeCatalogCommand].
func (h *CatalogPurgeHandler) Execute(ctx context.Context, msg PurgeCatalogCommand) error {
	ctx, cancel, err := prepare(ctx, msg, h.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	h.catalog.Purge()
	h.logger.WithContext(ctx).Debug("jobs.catalog.purged")
	return nil
}

func (h *CatalogPurgeHandler) JobName() string { return JobCatalogPurge }

func (h *CatalogPurgeHandler) Run(ctx context.Context) error {
	return h.Execute(ctx, PurgeCatalogCommand{})
}

// CronHandler satisfies command.CronCommand.
func (h *CatalogPurgeHandler) CronHandler() func() error {
	return func() error {
		return h.Run(context.Background())
	}
}

// CronOptions satisfies command.CronCommand.
func (h *CatalogPurgeHandler) CronOptions() command.HandlerConfig {
	return h.cronConfig
}

// prepare validates msg and applies the execution timeout.
func prepare(ctx context.Context, msg command.Message, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	if err := command.ValidateMessage(msg); err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryValidation, "job validation failed").
			WithTextCode(textCodeValidation)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryCommand, "job context error").
			WithTextCode(textCodeContext)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, cancel, nil
}

func wrapExecuteError(err error) error {
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryCommand, "job execution failed").
		WithTextCode(textCodeExecute)
}

func ensureLogger(logger interfaces.Logger) interfaces.Logger {
	if logger == nil {
		return logging.NoOp()
	}
	return logger
}
