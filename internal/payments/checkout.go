package payments

import (
	"context"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-storefront/internal/logging"
	"github.com/goliatone/go-storefront/internal/storage"
	"github.com/goliatone/go-storefront/pkg/interfaces"
)

// FallbackOrigin is used when neither the request nor the configuration
// names the site origin.
const FallbackOrigin = "http://localhost:3000"

// CheckoutItem is one product to buy.
type CheckoutItem struct {
	ProductID string            `json:"productId"`
	PriceID   string            `json:"priceId"`
	Quantity  int               `json:"quantity"`
	Metadata  map[string]string `json:"metadata"`
}

// Validate requires both ids.
func (i CheckoutItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.ProductID, validation.Required),
		validation.Field(&i.PriceID, validation.Required),
	)
}

// CheckoutRequest accepts either a list of items or the fields of a single
// item. CancelURL is honoured only when it is a non-empty string.
type CheckoutRequest struct {
	Items     *[]CheckoutItem   `json:"items"`
	ProductID string            `json:"productId"`
	PriceID   string            `json:"priceId"`
	Quantity  int               `json:"quantity"`
	Metadata  map[string]string `json:"metadata"`
	CancelURL any               `json:"cancelUrl"`
}

// OrderRecorder keeps a record of created sessions.
type OrderRecorder interface {
	RecordOrder(ctx context.Context, order storage.Order) error
}

// Checkout creates hosted checkout sessions.
type Checkout struct {
	gateway Gateway
	orders  OrderRecorder
	logger  interfaces.Logger
	now     func() time.Time
}

// NewCheckout builds a Checkout. orders may be nil.
func NewCheckout(gateway Gateway, orders OrderRecorder, logger interfaces.Logger) *Checkout {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Checkout{gateway: gateway, orders: orders, logger: logger, now: time.Now}
}

// items normalises the request into a validated item list.
func (r CheckoutRequest) items() ([]CheckoutItem, error) {
	var items []CheckoutItem
	if r.Items != nil {
		items = *r.Items
	} else {
		items = []CheckoutItem{{
			ProductID: r.ProductID,
			PriceID:   r.PriceID,
			Quantity:  r.Quantity,
			Metadata:  r.Metadata,
		}}
	}
	if len(items) == 0 {
		return nil, errNoItems()
	}
	for i := range items {
		items[i].ProductID = strings.TrimSpace(items[i].ProductID)
		items[i].PriceID = strings.TrimSpace(items[i].PriceID)
		if err := goerrors.ValidateWithOzzo(items[i].Validate, MessageMissingProduct); err != nil {
			err.Category = goerrors.CategoryBadInput
			return nil, err.WithTextCode(TextCodeMissingProduct).
				WithMetadata(map[string]any{"item_index": i})
		}
		if items[i].Quantity <= 0 {
			items[i].Quantity = 1
		}
	}
	return items, nil
}

// CreateSession validates req, prices every item and creates a session
// whose success and cancel URLs are rooted at origin.
func (c *Checkout) CreateSession(ctx context.Context, req CheckoutRequest, origin string) (Session, error) {
	items, err := req.items()
	if err != nil {
		return Session{}, err
	}

	lineItems := make([]LineItem, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			price, err := c.gateway.RetrievePrice(gctx, item.PriceID, true)
			if err != nil {
				return err
			}
			lineItems[i] = lineItem(item, price)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Session{}, err
	}

	cancelURL := origin + "?canceled=true"
	if custom, ok := req.CancelURL.(string); ok && custom != "" {
		cancelURL = custom
	}
	session, err := c.gateway.CreateCheckoutSession(ctx, SessionParams{
		LineItems:  lineItems,
		SuccessURL: origin + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  cancelURL,
		Metadata:   map[string]string{"items_count": strconv.Itoa(len(items))},
	})
	if err != nil {
		return Session{}, err
	}

	c.record(ctx, session, items, lineItems, cancelURL)
	return session, nil
}

func (c *Checkout) record(ctx context.Context, session Session, items []CheckoutItem, lines []LineItem, cancelURL string) {
	if c.orders == nil {
		return
	}
	order := storage.Order{
		SessionID:  session.ID,
		ItemsCount: len(items),
		CancelURL:  cancelURL,
		CreatedAt:  c.now().UTC(),
	}
	if len(lines) > 0 {
		order.Currency = strings.ToUpper(lines[0].Currency)
	}
	if err := c.orders.RecordOrder(ctx, order); err != nil {
		c.logger.WithContext(ctx).Error("payments.order.record_failed", "session_id", session.ID, "error", err)
	}
}

func lineItem(item CheckoutItem, price Price) LineItem {
	var product Product
	if price.Product != nil {
		product = *price.Product
	}
	size := item.Metadata["size"]
	name := product.Name
	if size != "" {
		name = product.Name + " - Size " + size
	}
	images := product.Images
	if images == nil {
		images = []string{}
	}
	return LineItem{
		Currency:    price.Currency,
		UnitAmount:  price.UnitAmount,
		Name:        name,
		Description: product.Description,
		Images:      images,
		Metadata: map[string]string{
			"original_product_id": item.ProductID,
			"size":                size,
		},
		Quantity: item.Quantity,
	}
}

// Origin picks the origin for checkout redirects: the request Origin
// header, then the configured site URL, then FallbackOrigin.
func Origin(header, siteURL string) string {
	for _, candidate := range []string{header, siteURL} {
		if candidate = strings.TrimRight(strings.TrimSpace(candidate), "/"); candidate != "" {
			return candidate
		}
	}
	return FallbackOrigin
}
