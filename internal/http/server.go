package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/goliatone/go-storefront/internal/breadcrumbs"
	"github.com/goliatone/go-storefront/internal/cart"
	"github.com/goliatone/go-storefront/internal/cms"
	"github.com/goliatone/go-storefront/internal/consent"
	"github.com/goliatone/go-storefront/internal/document"
	"github.com/goliatone/go-storefront/internal/hreflang"
	"github.com/goliatone/go-storefront/internal/locales"
	"github.com/goliatone/go-storefront/internal/logging"
	"github.com/goliatone/go-storefront/internal/mailer"
	"github.com/goliatone/go-storefront/internal/markdown"
	"github.com/goliatone/go-storefront/internal/payments"
	"github.com/goliatone/go-storefront/internal/routing"
	"github.com/goliatone/go-storefront/internal/slices"
	"github.com/goliatone/go-storefront/internal/storage"
	"github.com/goliatone/go-storefront/pkg/interfaces"
)

// Alternates yields the hreflang entries of a page.
type Alternates interface {
	Generate(ctx context.Context, item *document.Document, locale string) ([]hreflang.Entry, error)
}

// ProductCatalog resolves products for the product endpoints.
type ProductCatalog interface {
	Product(ctx context.Context, productID, locale string) (payments.ProductView, error)
	Batch(ctx context.Context, productIDs []string, locale string) payments.BatchResult
}

// CheckoutCreator creates hosted checkout sessions.
type CheckoutCreator interface {
	CreateSession(ctx context.Context, req payments.CheckoutRequest, origin string) (payments.Session, error)
}

// ContactRelay sends contact form submissions.
type ContactRelay interface {
	Submit(ctx context.Context, sub mailer.Submission) (mailer.SendResult, error)
}

// SitemapSource returns the rendered sitemap document.
type SitemapSource interface {
	Get(ctx context.Context) ([]byte, error)
}

// OrderFinder looks up a recorded checkout session.
type OrderFinder interface {
	FindOrder(ctx context.Context, sessionID string) (storage.Order, error)
}

// Server registers the storefront routes.
type Server struct {
	siteURL     string
	locales     *locales.Table
	reader      cms.Reader
	singles     *cms.Singles
	validator   *routing.Validator
	alternates  Alternates
	breadcrumbs *breadcrumbs.Builder
	slices      *slices.Registry
	pages       *markdown.Pages
	sitemap     SitemapSource
	catalog     ProductCatalog
	checkout    CheckoutCreator
	contact     ContactRelay
	carts       *cart.Service
	consent     *consent.Store
	orders      OrderFinder
	logger      interfaces.Logger
	newID       func() string
}

// ServerOption mutates the Server configuration.
type ServerOption func(*Server)

// NewServer constructs a Server. Routes whose collaborator is not wired
// answer with a server error instead of panicking.
func NewServer(opts ...ServerOption) *Server {
	srv := &Server{
		locales: locales.Default(),
		logger:  logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(srv)
		}
	}
	if srv.validator == nil {
		srv.validator = routing.NewValidator(srv.locales, nil)
	}
	if srv.breadcrumbs == nil {
		srv.breadcrumbs = breadcrumbs.NewBuilder(srv.locales)
	}
	if srv.slices == nil {
		srv.slices = slices.NewRegistry(srv.logger)
	}
	if srv.singles == nil && srv.reader != nil {
		srv.singles = cms.NewSingles(srv.reader, srv.locales.Default(), srv.logger)
	}
	return srv
}

// WithSiteURL sets the absolute origin used for structured data.
func WithSiteURL(siteURL string) ServerOption {
	return func(s *Server) {
		s.siteURL = strings.TrimRight(strings.TrimSpace(siteURL), "/")
	}
}

// WithLocales replaces the built-in locale table.
func WithLocales(table *locales.Table) ServerOption {
	return func(s *Server) {
		if table != nil {
			s.locales = table
		}
	}
}

// WithContentReader wires the CMS reader and, unless set, the singles over it.
func WithContentReader(reader cms.Reader) ServerOption {
	return func(s *Server) {
		s.reader = reader
	}
}

// WithSingles wires the singleton document loader.
func WithSingles(singles *cms.Singles) ServerOption {
	return func(s *Server) {
		s.singles = singles
	}
}

// WithValidator wires the URL structure validator.
func WithValidator(validator *routing.Validator) ServerOption {
	return func(s *Server) {
		s.validator = validator
	}
}

// WithAlternates wires the hreflang generator.
func WithAlternates(alternates Alternates) ServerOption {
	return func(s *Server) {
		s.alternates = alternates
	}
}

// WithBreadcrumbs wires the breadcrumb builder.
func WithBreadcrumbs(builder *breadcrumbs.Builder) ServerOption {
	return func(s *Server) {
		s.breadcrumbs = builder
	}
}

// WithSliceRegistry wires the slice renderers.
func WithSliceRegistry(registry *slices.Registry) ServerOption {
	return func(s *Server) {
		s.slices = registry
	}
}

// WithPages wires the static markdown pages.
func WithPages(pages *markdown.Pages) ServerOption {
	return func(s *Server) {
		s.pages = pages
	}
}

// WithSitemap wires the sitemap source.
func WithSitemap(source SitemapSource) ServerOption {
	return func(s *Server) {
		s.sitemap = source
	}
}

// WithCatalog wires the product catalog.
func WithCatalog(catalog ProductCatalog) ServerOption {
	return func(s *Server) {
		s.catalog = catalog
	}
}

// WithCheckout wires checkout session creation.
func WithCheckout(checkout CheckoutCreator) ServerOption {
	return func(s *Server) {
		s.checkout = checkout
	}
}

// WithContactRelay wires the contact form relay.
func WithContactRelay(relay ContactRelay) ServerOption {
	return func(s *Server) {
		s.contact = relay
	}
}

// WithCarts wires the cart service.
func WithCarts(service *cart.Service) ServerOption {
	return func(s *Server) {
		s.carts = service
	}
}

// WithConsent wires the consent store.
func WithConsent(store *consent.Store) ServerOption {
	return func(s *Server) {
		s.consent = store
	}
}

// WithOrders wires the order ledger read by the success page.
func WithOrders(orders OrderFinder) ServerOption {
	return func(s *Server) {
		s.orders = orders
	}
}

// WithLogger sets the logger used for request and failure logs.
func WithLogger(logger interfaces.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRequestIDGenerator overrides how request ids are minted.
func WithRequestIDGenerator(fn func() string) ServerOption {
	return func(s *Server) {
		s.newID = fn
	}
}

// Register attaches every route to mux.
func (s *Server) Register(mux *http.ServeMux) {
	if s == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /api/contact", s.handleContact)

	mux.HandleFunc("POST /api/stripe/checkout", s.handleCheckout)
	mux.HandleFunc("GET /api/stripe/product/{productId}", s.handleProduct)
	mux.HandleFunc("POST /api/stripe/products/batch", s.handleProductBatch)

	mux.HandleFunc("POST /api/cart", s.handleCartCreate)
	mux.HandleFunc("GET /api/cart/{cartId}", s.handleCartGet)
	mux.HandleFunc("DELETE /api/cart/{cartId}", s.handleCartClear)
	mux.HandleFunc("POST /api/cart/{cartId}/items", s.handleCartAdd)
	mux.HandleFunc("PATCH /api/cart/{cartId}/items/{itemId}", s.handleCartUpdate)
	mux.HandleFunc("DELETE /api/cart/{cartId}/items/{itemId}", s.handleCartRemove)
	mux.HandleFunc("PUT /api/cart/{cartId}/open", s.handleCartOpen)

	mux.HandleFunc("GET /api/consent/{visitorId}", s.handleConsentGet)
	mux.HandleFunc("PUT /api/consent/{visitorId}", s.handleConsentSave)
	mux.HandleFunc("DELETE /api/consent/{visitorId}", s.handleConsentReset)

	mux.HandleFunc("GET /sitemap.xml", s.handleSitemap)
	mux.HandleFunc("GET /success", s.handleSuccess)
	mux.HandleFunc("GET /{path...}", s.handlePage)
}

// Handler returns the routes wrapped in the request middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	var handler http.Handler = mux
	handler = routing.Middleware(s.locales, handler)
	handler = s.accessLog(handler)
	handler = s.recoverPanics(handler)
	handler = s.requestID(handler)
	return handler
}

func unavailable(w http.ResponseWriter) {
	writeMessage(w, http.StatusServiceUnavailable, "Service unavailable")
}
