package payments

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-storefront/internal/locales"
	"github.com/goliatone/go-storefront/internal/logging"
	"github.com/goliatone/go-storefront/internal/money"
	"github.com/goliatone/go-storefront/pkg/interfaces"
)

const (
	DefaultProductCacheTTL  = 5 * time.Minute
	DefaultProductCacheSize = 512
	DefaultBatchConcurrency = 8
)

// ProductInfo is the public view of a product.
type ProductInfo struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Images      []string          `json:"images"`
	Metadata    map[string]string `json:"metadata"`
}

// PriceInfo is the default price of a product in currency units.
type PriceInfo struct {
	ID        string  `json:"id"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Formatted string  `json:"formatted"`
}

// ProductView pairs a product with its default price.
type ProductView struct {
	ProductID string      `json:"productId,omitempty"`
	Product   ProductInfo `json:"product"`
	Price     PriceInfo   `json:"price"`
}

// BatchError reports a product that could not be loaded.
type BatchError struct {
	ProductID string `json:"productId"`
	Error     string `json:"error"`
}

// BatchResult holds the settled results of a batch lookup.
type BatchResult struct {
	Products []ProductView `json:"products"`
	Errors   []BatchError  `json:"errors,omitempty"`
}

// CatalogConfig tunes caching and fan-out.
type CatalogConfig struct {
	CacheTTL         time.Duration
	CacheSize        int
	BatchConcurrency int
}

type cachedProduct struct {
	product Product
	prices  []Price
}

// Catalog resolves products and their default price, caching lookups per
// product id.
type Catalog struct {
	gateway     Gateway
	cache       *expirable.LRU[string, cachedProduct]
	concurrency int
	logger      interfaces.Logger
}

// NewCatalog builds a Catalog over gateway.
func NewCatalog(gateway Gateway, cfg CatalogConfig, logger interfaces.Logger) *Catalog {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultProductCacheTTL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultProductCacheSize
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = DefaultBatchConcurrency
	}
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Catalog{
		gateway:     gateway,
		cache:       expirable.NewLRU[string, cachedProduct](cfg.CacheSize, nil, cfg.CacheTTL),
		concurrency: cfg.BatchConcurrency,
		logger:      logger,
	}
}

// Product returns the product and its first active price formatted for
// locale. An empty locale formats as en-US.
func (c *Catalog) Product(ctx context.Context, productID, locale string) (ProductView, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return ProductView{}, goerrors.New("Product ID is required", goerrors.CategoryBadInput)
	}
	entry, err := c.lookup(ctx, productID)
	if err != nil {
		return ProductView{}, err
	}
	if len(entry.prices) == 0 {
		return ProductView{}, errNoActivePrice(productID)
	}
	return view(entry.product, entry.prices[0], locale), nil
}

// Batch looks up every id concurrently. Failures are reported per id and
// never fail the batch. Both lists keep the input order.
func (c *Catalog) Batch(ctx context.Context, productIDs []string, locale string) BatchResult {
	views := make([]*ProductView, len(productIDs))
	failures := make([]error, len(productIDs))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, id := range productIDs {
		g.Go(func() error {
			v, err := c.Product(ctx, id, locale)
			if err != nil {
				failures[i] = err
				return nil
			}
			v.ProductID = id
			views[i] = &v
			return nil
		})
	}
	_ = g.Wait()

	result := BatchResult{Products: make([]ProductView, 0, len(productIDs))}
	for i, id := range productIDs {
		if views[i] != nil {
			result.Products = append(result.Products, *views[i])
			continue
		}
		c.logger.WithContext(ctx).Warn("payments.batch.product_failed", "product_id", id, "error", failures[i])
		result.Errors = append(result.Errors, BatchError{ProductID: id, Error: batchMessage(id, failures[i])})
	}
	return result
}

// Purge empties the product cache.
func (c *Catalog) Purge() {
	c.cache.Purge()
}

// Cached reports how many products are cached.
func (c *Catalog) Cached() int {
	return c.cache.Len()
}

func (c *Catalog) lookup(ctx context.Context, productID string) (cachedProduct, error) {
	if entry, ok := c.cache.Get(productID); ok {
		return entry, nil
	}
	product, err := c.gateway.RetrieveProduct(ctx, productID)
	if err != nil {
		return cachedProduct{}, err
	}
	prices, err := c.gateway.ListActivePrices(ctx, productID)
	if err != nil {
		return cachedProduct{}, err
	}
	entry := cachedProduct{product: product, prices: prices}
	c.cache.Add(productID, entry)
	return entry, nil
}

func view(product Product, price Price, locale string) ProductView {
	amount := money.FromMinorUnits(price.UnitAmount)
	images := product.Images
	if images == nil {
		images = []string{}
	}
	return ProductView{
		Product: ProductInfo{
			ID:          product.ID,
			Name:        product.Name,
			Description: product.Description,
			Images:      images,
			Metadata:    product.Metadata,
		},
		Price: PriceInfo{
			ID:        price.ID,
			Amount:    amount,
			Currency:  price.Currency,
			Formatted: money.FormatPrice(amount, price.Currency, locales.FormatTag(locale)),
		},
	}
}

func batchMessage(productID string, err error) string {
	if HasTextCode(err, TextCodeNoActivePrice) {
		return "No active prices found for product " + productID
	}
	var perr *goerrors.Error
	if goerrors.As(err, &perr) && perr.Message != "" {
		return perr.Message
	}
	if err != nil {
		return err.Error()
	}
	return "Unknown error"
}
