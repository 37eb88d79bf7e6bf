package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-storefront/internal/cart"
	"github.com/goliatone/go-storefront/internal/consent"
	"github.com/goliatone/go-storefront/internal/kv"
	"github.com/goliatone/go-storefront/internal/mailer"
	"github.com/goliatone/go-storefront/internal/payments"
	"github.com/goliatone/go-storefront/pkg/testsupport"
)

const validCartID = "3f2b8a4e-1c2d-4e5f-9a8b-7c6d5e4f3a2b"

type fakeSender struct {
	mu     sync.Mutex
	emails []mailer.Email
	err    error
}

func (f *fakeSender) Send(_ context.Context, email mailer.Email) (mailer.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return mailer.SendResult{}, f.err
	}
	f.emails = append(f.emails, email)
	return mailer.SendResult{ID: "email_1"}, nil
}

type fakeCheckout struct {
	origin string
	req    payments.CheckoutRequest
	err    error
}

func (f *fakeCheckout) CreateSession(_ context.Context, req payments.CheckoutRequest, origin string) (payments.Session, error) {
	f.origin = origin
	f.req = req
	if f.err != nil {
		return payments.Session{}, f.err
	}
	return payments.Session{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1"}, nil
}

type fakeCatalog struct {
	mu      sync.Mutex
	views   map[string]payments.ProductView
	errs    map[string]error
	locales []string
}

func (f *fakeCatalog) Product(_ context.Context, productID, locale string) (payments.ProductView, error) {
	f.mu.Lock()
	f.locales = append(f.locales, locale)
	f.mu.Unlock()
	if err := f.errs[productID]; err != nil {
		return payments.ProductView{}, err
	}
	return f.views[productID], nil
}

func (f *fakeCatalog) Batch(ctx context.Context, productIDs []string, locale string) payments.BatchResult {
	result := payments.BatchResult{Products: []payments.ProductView{}}
	for _, id := range productIDs {
		view, err := f.Product(ctx, id, locale)
		if err != nil {
			result.Errors = append(result.Errors, payments.BatchError{ProductID: id, Error: err.Error()})
			continue
		}
		view.ProductID = id
		result.Products = append(result.Products, view)
	}
	return result
}

func shirtView() payments.ProductView {
	return payments.ProductView{
		Product: payments.ProductInfo{ID: "prod_shirt", Name: "Shirt"},
		Price:   payments.PriceInfo{ID: "price_shirt", Amount: 499, Currency: "sek", Formatted: "499 kr"},
	}
}

func TestContactRelaysSubmission(t *testing.T) {
	sender := &fakeSender{}
	relay := mailer.NewRelay(mailer.Config{APIKey: "re_test", From: "shop@example.com", To: "owner@example.com"}, sender, nil, nil)
	handler := NewServer(WithContactRelay(relay)).Handler()

	body := map[string]any{
		"formData":   map[string]any{"field-0": "Ada", "disclaimer": true},
		"formFields": []map[string]any{{"label": "Name"}},
	}
	rec := doJSONRequest(t, handler, http.MethodPost, "/api/contact", body, http.StatusOK)

	var resp contactResponse
	decodeJSONBody(t, rec, &resp)
	if !resp.Success || resp.Data.ID != "email_1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(sender.emails) != 1 || !strings.Contains(sender.emails[0].HTML, "<strong>Name:</strong> Ada") {
		t.Fatalf("unexpected emails %+v", sender.emails)
	}
}

func TestContactErrors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		relay := mailer.NewRelay(mailer.Config{From: "a@example.com", To: "b@example.com"}, &fakeSender{}, nil, nil)
		handler := NewServer(WithContactRelay(relay)).Handler()
		rec := doJSONRequest(t, handler, http.MethodPost, "/api/contact", map[string]any{}, http.StatusInternalServerError)
		if msg := errorMessage(t, rec); msg != mailer.MessageKeyMissing {
			t.Fatalf("unexpected error %q", msg)
		}
	})

	t.Run("send failure hides detail", func(t *testing.T) {
		logger := &testsupport.RecordingLogger{}
		sender := &fakeSender{err: errors.New("resend: 401 invalid api key re_secret")}
		relay := mailer.NewRelay(mailer.Config{APIKey: "re_test", From: "a@example.com", To: "b@example.com"}, sender, nil, nil)
		handler := NewServer(WithContactRelay(relay), WithLogger(logger)).Handler()
		rec := doJSONRequest(t, handler, http.MethodPost, "/api/contact", map[string]any{}, http.StatusInternalServerError)
		if msg := errorMessage(t, rec); msg != mailer.MessageSendFailed {
			t.Fatalf("unexpected error %q", msg)
		}
		if logger.Count("error") == 0 {
			t.Fatal("expected the failure to be logged")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		handler := NewServer(WithContactRelay(mailer.NewRelay(mailer.Config{}, nil, nil, nil))).Handler()
		doRawRequest(t, handler, http.MethodPost, "/api/contact", "{", http.StatusBadRequest)
	})
}

func TestCheckoutCreatesSession(t *testing.T) {
	checkout := &fakeCheckout{}
	handler := NewServer(WithCheckout(checkout), WithSiteURL("https://shop.example.com/")).Handler()

	body := map[string]any{"productId": "prod_shirt", "priceId": "price_shirt", "quantity": 2}
	rec := doJSONRequest(t, handler, http.MethodPost, "/api/stripe/checkout", body, http.StatusOK)

	var resp checkoutResponse
	decodeJSONBody(t, rec, &resp)
	if resp.SessionID != "cs_test_1" || resp.URL != "https://checkout.example/cs_test_1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if checkout.origin != "https://shop.example.com" {
		t.Fatalf("expected configured origin, got %q", checkout.origin)
	}
	if checkout.req.ProductID != "prod_shirt" || checkout.req.Quantity != 2 {
		t.Fatalf("unexpected request %+v", checkout.req)
	}
}

func TestCheckoutErrors(t *testing.T) {
	t.Run("no items", func(t *testing.T) {
		handler := NewServer(WithCheckout(payments.NewCheckout(nil, nil, nil))).Handler()
		rec := doJSONRequest(t, handler, http.MethodPost, "/api/stripe/checkout", map[string]any{"items": []any{}}, http.StatusBadRequest)
		if msg := errorMessage(t, rec); msg != payments.MessageNoItems {
			t.Fatalf("unexpected error %q", msg)
		}
	})

	t.Run("missing ids", func(t *testing.T) {
		handler := NewServer(WithCheckout(payments.NewCheckout(nil, nil, nil))).Handler()
		rec := doJSONRequest(t, handler, http.MethodPost, "/api/stripe/checkout", map[string]any{"productId": "prod_1"}, http.StatusBadRequest)
		if msg := errorMessage(t, rec); msg != payments.MessageMissingProduct {
			t.Fatalf("unexpected error %q", msg)
		}
	})

	t.Run("gateway failure", func(t *testing.T) {
		checkout := &fakeCheckout{err: goerrors.New("No such price: 'price_x'", goerrors.CategoryNotFound)}
		handler := NewServer(WithCheckout(checkout)).Handler()
		rec := doJSONRequest(t, handler, http.MethodPost, "/api/stripe/checkout", map[string]any{"productId": "p", "priceId": "price_x"}, http.StatusInternalServerError)
		if msg := errorMessage(t, rec); msg != messageCheckoutFailed {
			t.Fatalf("unexpected error %q", msg)
		}
	})
}

func TestProductEndpoint(t *testing.T) {
	catalog := &fakeCatalog{
		views: map[string]payments.ProductView{"prod_shirt": shirtView()},
		errs: map[string]error{
			"prod_free": goerrors.New(payments.MessageNoActivePrice, goerrors.CategoryNotFound).
				WithTextCode(payments.TextCodeNoActivePrice),
			"prod_gone": goerrors.New("No such product: 'prod_gone'", goerrors.CategoryNotFound).
				WithTextCode(payments.TextCodeStripeFailure),
			"prod_flaky": errors.New("connection reset by peer"),
			"prod_blank": goerrors.New(messageProductIDRequired, goerrors.CategoryBadInput),
		},
	}
	handler := NewServer(WithCatalog(catalog)).Handler()

	rec := doRawRequest(t, handler, http.MethodGet, "/api/stripe/product/prod_shirt", "", http.StatusOK)
	var view payments.ProductView
	decodeJSONBody(t, rec, &view)
	if view.Product.Name != "Shirt" || view.Price.Formatted != "499 kr" {
		t.Fatalf("unexpected view %+v", view)
	}
	if catalog.locales[0] != defaultProductLocale {
		t.Fatalf("expected default locale, got %q", catalog.locales[0])
	}

	doRawRequest(t, handler, http.MethodGet, "/api/stripe/product/prod_shirt?locale=sv-SE", "", http.StatusOK)
	if catalog.locales[1] != "sv-SE" {
		t.Fatalf("expected query locale, got %q", catalog.locales[1])
	}

	cases := []struct {
		id     string
		status int
		msg    string
	}{
		{"prod_free", http.StatusNotFound, payments.MessageNoActivePrice},
		{"prod_gone", http.StatusNotFound, messageProductNotFound},
		{"prod_flaky", http.StatusInternalServerError, messageProductFailed},
		{"prod_blank", http.StatusBadRequest, messageProductIDRequired},
	}
	for _, tc := range cases {
		rec := doRawRequest(t, handler, http.MethodGet, "/api/stripe/product/"+tc.id, "", tc.status)
		if msg := errorMessage(t, rec); msg != tc.msg {
			t.Fatalf("%s: expected %q got %q", tc.id, tc.msg, msg)
		}
	}
}

func TestProductBatch(t *testing.T) {
	catalog := &fakeCatalog{
		views: map[string]payments.ProductView{"prod_shirt": shirtView()},
		errs:  map[string]error{"prod_gone": errors.New("No such product")},
	}
	handler := NewServer(WithCatalog(catalog)).Handler()

	rec := doRawRequest(t, handler, http.MethodPost, "/api/stripe/products/batch", `{"productIds":"prod_shirt"}`, http.StatusBadRequest)
	if msg := errorMessage(t, rec); msg != messageBatchNotArray {
		t.Fatalf("unexpected error %q", msg)
	}

	rec = doRawRequest(t, handler, http.MethodPost, "/api/stripe/products/batch", `{"productIds":[]}`, http.StatusOK)
	if got := strings.TrimSpace(rec.Body.String()); got != `{"products":[]}` {
		t.Fatalf("unexpected empty batch body %s", got)
	}

	rec = doRawRequest(t, handler, http.MethodPost, "/api/stripe/products/batch", `{"productIds":["prod_shirt","prod_gone",7],"locale":"sv-SE"}`, http.StatusOK)
	var result payments.BatchResult
	decodeJSONBody(t, rec, &result)
	if len(result.Products) != 1 || result.Products[0].ProductID != "prod_shirt" {
		t.Fatalf("unexpected products %+v", result.Products)
	}
	if len(result.Errors) != 1 || result.Errors[0].ProductID != "prod_gone" {
		t.Fatalf("unexpected errors %+v", result.Errors)
	}

	rec = doRawRequest(t, handler, http.MethodPost, "/api/stripe/products/batch", `{"productIds":`, http.StatusInternalServerError)
	if msg := errorMessage(t, rec); msg != messageBatchFailed {
		t.Fatalf("unexpected error %q", msg)
	}
}

func TestCartLifecycle(t *testing.T) {
	handler := NewServer(WithCarts(cart.NewService(cart.NewMemoryStore(), nil))).Handler()

	rec := doRawRequest(t, handler, http.MethodPost, "/api/cart", "", http.StatusCreated)
	var created cartResponse
	decodeJSONBody(t, rec, &created)
	if created.CartID == "" || len(created.Items) != 0 || created.FormattedTotal != "" {
		t.Fatalf("unexpected new cart %+v", created)
	}
	base := "/api/cart/" + created.CartID

	shirt := cart.Item{ID: "prod_shirt", Name: "Shirt", Price: 499, Currency: "sek", PriceID: "price_shirt", Size: "M"}
	rec = doJSONRequest(t, handler, http.MethodPost, base+"/items", addItemRequest{Item: shirt, Quantity: 2}, http.StatusOK)
	var state cartResponse
	decodeJSONBody(t, rec, &state)
	if state.TotalItems != 2 || state.TotalPrice != 998 || state.FormattedTotal == "" {
		t.Fatalf("unexpected cart after add %+v", state)
	}

	dollars := cart.Item{ID: "prod_cap", Price: 20, Currency: "usd", PriceID: "price_cap"}
	doJSONRequest(t, handler, http.MethodPost, base+"/items", addItemRequest{Item: dollars}, http.StatusConflict)

	rec = doJSONRequest(t, handler, http.MethodPatch, base+"/items/prod_shirt?size=M", quantityRequest{Quantity: 5}, http.StatusOK)
	decodeJSONBody(t, rec, &state)
	if state.TotalItems != 5 {
		t.Fatalf("expected quantity 5, got %+v", state)
	}

	rec = doJSONRequest(t, handler, http.MethodPut, base+"/open", openRequest{IsOpen: true}, http.StatusOK)
	decodeJSONBody(t, rec, &state)
	if !state.IsOpen {
		t.Fatal("expected open cart")
	}

	rec = doRawRequest(t, handler, http.MethodGet, base, "", http.StatusOK)
	decodeJSONBody(t, rec, &state)
	if state.CartID != created.CartID || len(state.Items) != 1 || !state.IsOpen {
		t.Fatalf("unexpected stored cart %+v", state)
	}

	rec = doRawRequest(t, handler, http.MethodDelete, base+"/items/prod_shirt?size=M", "", http.StatusOK)
	decodeJSONBody(t, rec, &state)
	if len(state.Items) != 0 || state.TotalItems != 0 {
		t.Fatalf("expected empty cart, got %+v", state)
	}

	doJSONRequest(t, handler, http.MethodPost, base+"/items", addItemRequest{Item: shirt}, http.StatusOK)
	rec = doRawRequest(t, handler, http.MethodDelete, base, "", http.StatusOK)
	decodeJSONBody(t, rec, &state)
	if len(state.Items) != 0 {
		t.Fatalf("expected cleared cart, got %+v", state)
	}
}

func TestCartRejectsBadInput(t *testing.T) {
	handler := NewServer(WithCarts(cart.NewService(cart.NewMemoryStore(), nil))).Handler()

	doRawRequest(t, handler, http.MethodGet, "/api/cart/not-a-uuid", "", http.StatusBadRequest)

	rec := doRawRequest(t, handler, http.MethodPost, "/api/cart", "", http.StatusCreated)
	var created cartResponse
	decodeJSONBody(t, rec, &created)
	doJSONRequest(t, handler, http.MethodPost, "/api/cart/"+created.CartID+"/items", addItemRequest{}, http.StatusBadRequest)
	doRawRequest(t, handler, http.MethodPut, "/api/cart/"+created.CartID+"/open", "nope", http.StatusBadRequest)
}

func TestConsentLifecycle(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := consent.NewStore(kv.NewMemory(clock), 0, clock)
	handler := NewServer(WithConsent(store)).Handler()

	rec := doRawRequest(t, handler, http.MethodGet, "/api/consent/visitor-1", "", http.StatusOK)
	var resp consentResponse
	decodeJSONBody(t, rec, &resp)
	if resp.HasConsented || resp.Preferences != nil {
		t.Fatalf("expected no decision, got %+v", resp)
	}

	rec = doJSONRequest(t, handler, http.MethodPut, "/api/consent/visitor-1", consent.Preferences{Analytics: true}, http.StatusOK)
	decodeJSONBody(t, rec, &resp)
	if !resp.HasConsented || resp.Preferences == nil || !resp.Preferences.Necessary || !resp.Preferences.Analytics {
		t.Fatalf("unexpected saved consent %+v", resp)
	}
	if resp.Timestamp == nil || !resp.Timestamp.Equal(now) {
		t.Fatalf("unexpected timestamp %v", resp.Timestamp)
	}

	rec = doRawRequest(t, handler, http.MethodGet, "/api/consent/visitor-1", "", http.StatusOK)
	decodeJSONBody(t, rec, &resp)
	if !resp.HasConsented || resp.Preferences.Marketing {
		t.Fatalf("unexpected stored consent %+v", resp)
	}

	doRawRequest(t, handler, http.MethodDelete, "/api/consent/visitor-1", "", http.StatusNoContent)
	rec = doRawRequest(t, handler, http.MethodGet, "/api/consent/visitor-1", "", http.StatusOK)
	resp = consentResponse{}
	decodeJSONBody(t, rec, &resp)
	if resp.HasConsented {
		t.Fatalf("expected consent to be reset, got %+v", resp)
	}
}

func TestUnwiredRoutes(t *testing.T) {
	handler := NewServer().Handler()
	routes := []struct{ method, path, body string }{
		{http.MethodPost, "/api/cart", ""},
		{http.MethodGet, "/api/consent/v", ""},
		{http.MethodPost, "/api/stripe/checkout", "{}"},
		{http.MethodGet, "/api/stripe/product/prod_1", ""},
		{http.MethodPost, "/api/stripe/products/batch", `{"productIds":[]}`},
		{http.MethodPost, "/api/contact", "{}"},
		{http.MethodGet, "/sitemap.xml", ""},
	}
	for _, route := range routes {
		rec := doRawRequest(t, handler, route.method, route.path, route.body, http.StatusServiceUnavailable)
		if msg := errorMessage(t, rec); msg != "Service unavailable" {
			t.Fatalf("%s %s: unexpected error %q", route.method, route.path, msg)
		}
	}
}

type failingCartStore struct{}

func (failingCartStore) Load(context.Context, string) (cart.Cart, bool, error) {
	return cart.Cart{}, false, errors.New("redis: connection refused")
}

func (failingCartStore) Save(context.Context, string, cart.Cart) error { return nil }

func (failingCartStore) Delete(context.Context, string) error { return nil }

func TestCartStoreFailureHidesDetail(t *testing.T) {
	logger := &testsupport.RecordingLogger{}
	handler := NewServer(WithCarts(cart.NewService(failingCartStore{}, nil)), WithLogger(logger)).Handler()
	rec := doRawRequest(t, handler, http.MethodGet, "/api/cart/"+validCartID, "", http.StatusInternalServerError)
	if msg := errorMessage(t, rec); msg != messageCartFailed {
		t.Fatalf("unexpected error %q", msg)
	}
	if logger.Count("error") == 0 {
		t.Fatal("expected the store failure to be logged")
	}
}

func TestRequestBodyDecoding(t *testing.T) {
	handler := NewServer(WithCarts(cart.NewService(cart.NewMemoryStore(), nil))).Handler()
	base := "/api/cart/" + validCartID

	cases := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"empty", "", http.StatusBadRequest, messageInvalidBody},
		{"malformed", `{"item":`, http.StatusBadRequest, messageInvalidBody},
		{"mistyped", `{"quantity":"two"}`, http.StatusBadRequest, messageInvalidBody},
		{"too large", `{"item":{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}}`, http.StatusRequestEntityTooLarge, messageBodyTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRawRequest(t, handler, http.MethodPost, base+"/items", tc.body, tc.status)
			if msg := errorMessage(t, rec); msg != tc.msg {
				t.Fatalf("expected %q got %q", tc.msg, msg)
			}
		})
	}
}
