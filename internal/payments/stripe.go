package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"resty.dev/v3"
)

const (
	DefaultAPIBaseURL = "https://api.stripe.com"
	DefaultAPIVersion = "2025-07-30.basil"
)

// Gateway is the subset of the payment API the storefront uses.
type Gateway interface {
	RetrieveProduct(ctx context.Context, id string) (Product, error)
	ListActivePrices(ctx context.Context, productID string) ([]Price, error)
	RetrievePrice(ctx context.Context, id string, expandProduct bool) (Price, error)
	CreateCheckoutSession(ctx context.Context, params SessionParams) (Session, error)
}

// Product is a catalog product.
type Product struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Images      []string          `json:"images"`
	Metadata    map[string]string `json:"metadata"`
	Active      bool              `json:"active"`
}

// Price is a product price. Product is only set when the price was
// retrieved with the product expanded.
type Price struct {
	ID         string   `json:"id"`
	Currency   string   `json:"currency"`
	UnitAmount int64    `json:"unit_amount"`
	Active     bool     `json:"active"`
	ProductID  string   `json:"-"`
	Product    *Product `json:"-"`
}

func (p *Price) UnmarshalJSON(data []byte) error {
	type plain Price
	var raw struct {
		plain
		Product json.RawMessage `json:"product"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Price(raw.plain)
	if len(raw.Product) == 0 || string(raw.Product) == "null" {
		return nil
	}
	if raw.Product[0] == '"' {
		return json.Unmarshal(raw.Product, &p.ProductID)
	}
	var product Product
	if err := json.Unmarshal(raw.Product, &product); err != nil {
		return err
	}
	p.Product = &product
	p.ProductID = product.ID
	return nil
}

// LineItem is one checkout line priced inline.
type LineItem struct {
	Currency    string
	UnitAmount  int64
	Name        string
	Description string
	Images      []string
	Metadata    map[string]string
	Quantity    int
}

// SessionParams describes a hosted checkout session.
type SessionParams struct {
	LineItems  []LineItem
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// Session is a created checkout session.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type priceList struct {
	Data []Price `json:"data"`
}

// StripeConfig configures a StripeClient.
type StripeConfig struct {
	SecretKey  string
	APIVersion string
	BaseURL    string
	Timeout    time.Duration
}

// StripeClient talks to the payment API over form-encoded requests.
type StripeClient struct {
	http       *resty.Client
	configured bool
}

var _ Gateway = (*StripeClient)(nil)

// NewStripeClient builds a client. A client without a secret key fails
// every call with a configuration error.
func NewStripeClient(cfg StripeConfig) *StripeClient {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	version := cfg.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Stripe-Version", version).
		SetAuthToken(cfg.SecretKey)
	return &StripeClient{http: client, configured: strings.TrimSpace(cfg.SecretKey) != ""}
}

// Close releases idle connections.
func (c *StripeClient) Close() error {
	return c.http.Close()
}

func (c *StripeClient) RetrieveProduct(ctx context.Context, id string) (Product, error) {
	var product Product
	err := c.do(ctx, "retrieve product", func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", id).SetResult(&product).Get("/v1/products/{id}")
	})
	return product, err
}

func (c *StripeClient) ListActivePrices(ctx context.Context, productID string) ([]Price, error) {
	var list priceList
	err := c.do(ctx, "list prices", func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParam("product", productID).
			SetQueryParam("active", "true").
			SetResult(&list).
			Get("/v1/prices")
	})
	return list.Data, err
}

func (c *StripeClient) RetrievePrice(ctx context.Context, id string, expandProduct bool) (Price, error) {
	var price Price
	err := c.do(ctx, "retrieve price", func(r *resty.Request) (*resty.Response, error) {
		if expandProduct {
			r.SetQueryParam("expand[]", "product")
		}
		return r.SetPathParam("id", id).SetResult(&price).Get("/v1/prices/{id}")
	})
	return price, err
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, params SessionParams) (Session, error) {
	var session Session
	err := c.do(ctx, "create checkout session", func(r *resty.Request) (*resty.Response, error) {
		return r.SetFormDataFromValues(params.form()).SetResult(&session).Post("/v1/checkout/sessions")
	})
	return session, err
}

func (c *StripeClient) do(ctx context.Context, op string, send func(*resty.Request) (*resty.Response, error)) error {
	if !c.configured {
		return errNotConfigured()
	}
	var apiErr apiError
	resp, err := send(c.http.R().SetContext(ctx).SetError(&apiErr))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, op+" request failed").WithTextCode(TextCodeStripeFailure)
	}
	if resp.IsError() {
		return apiErr.toError(resp.StatusCode())
	}
	return nil
}

// form encodes the session with the bracketed keys the payment API
// expects for nested parameters.
func (p SessionParams) form() url.Values {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	for key, value := range p.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", key), value)
	}
	for i, item := range p.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		data := prefix + "[price_data]"
		form.Set(data+"[currency]", item.Currency)
		form.Set(data+"[unit_amount]", strconv.FormatInt(item.UnitAmount, 10))
		form.Set(data+"[product_data][name]", item.Name)
		if item.Description != "" {
			form.Set(data+"[product_data][description]", item.Description)
		}
		for j, image := range item.Images {
			form.Set(fmt.Sprintf("%s[product_data][images][%d]", data, j), image)
		}
		for key, value := range item.Metadata {
			form.Set(fmt.Sprintf("%s[product_data][metadata][%s]", data, key), value)
		}
		form.Set(prefix+"[quantity]", strconv.Itoa(item.Quantity))
	}
	return form
}
