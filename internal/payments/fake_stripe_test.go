package payments

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeStripe struct {
	server   *httptest.Server
	requests atomic.Int64
	mu       sync.Mutex
	forms    []url.Values
	products map[string]map[string]any
	prices   map[string][]map[string]any
}

func newFakeStripe(t *testing.T) *fakeStripe {
	t.Helper()
	f := &fakeStripe{products: map[string]map[string]any{}, prices: map[string][]map[string]any{}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorised(w, r) {
			return
		}
		product, ok := f.products[r.PathValue("id")]
		if !ok {
			writeStripeError(w, http.StatusNotFound, "No such product: '"+r.PathValue("id")+"'", "resource_missing")
			return
		}
		writeStripeJSON(w, product)
	})
	mux.HandleFunc("GET /v1/prices", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorised(w, r) {
			return
		}
		if r.URL.Query().Get("active") != "true" {
			writeStripeError(w, http.StatusBadRequest, "active filter required", "parameter_missing")
			return
		}
		data := f.prices[r.URL.Query().Get("product")]
		if data == nil {
			data = []map[string]any{}
		}
		writeStripeJSON(w, map[string]any{"object": "list", "data": data})
	})
	mux.HandleFunc("GET /v1/prices/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorised(w, r) {
			return
		}
		for productID, prices := range f.prices {
			for _, price := range prices {
				if price["id"] != r.PathValue("id") {
					continue
				}
				out := map[string]any{}
				for k, v := range price {
					out[k] = v
				}
				out["product"] = productID
				if r.URL.Query().Get("expand[]") == "product" {
					out["product"] = f.products[productID]
				}
				writeStripeJSON(w, out)
				return
			}
		}
		writeStripeError(w, http.StatusNotFound, "No such price", "resource_missing")
	})
	mux.HandleFunc("POST /v1/checkout/sessions", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorised(w, r) {
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.forms = append(f.forms, r.PostForm)
		f.mu.Unlock()
		writeStripeJSON(w, map[string]any{"id": "cs_test_123", "url": "https://checkout.test/cs_test_123"})
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	f.products["prod_shirt"] = map[string]any{
		"id": "prod_shirt", "name": "Shirt", "description": "Organic cotton",
		"images": []string{"https://img.test/shirt.png"}, "metadata": map[string]string{"fit": "regular"},
	}
	f.prices["prod_shirt"] = []map[string]any{{"id": "price_shirt", "currency": "sek", "unit_amount": 29900, "active": true}}
	f.products["prod_mug"] = map[string]any{"id": "prod_mug", "name": "Mug", "images": []string{}}
	f.prices["prod_mug"] = []map[string]any{{"id": "price_mug", "currency": "sek", "unit_amount": 12900, "active": true}}
	f.products["prod_draft"] = map[string]any{"id": "prod_draft", "name": "Draft"}
	return f
}

func (f *fakeStripe) authorised(w http.ResponseWriter, r *http.Request) bool {
	f.requests.Add(1)
	if r.Header.Get("Authorization") != "Bearer sk_test" || r.Header.Get("Stripe-Version") == "" {
		writeStripeError(w, http.StatusUnauthorized, "Invalid API Key provided", "invalid_api_key")
		return false
	}
	return true
}

func (f *fakeStripe) client() *StripeClient {
	return NewStripeClient(StripeConfig{SecretKey: "sk_test", BaseURL: f.server.URL})
}

func (f *fakeStripe) lastForm(t *testing.T) url.Values {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.forms) == 0 {
		t.Fatal("no checkout session was created")
	}
	return f.forms[len(f.forms)-1]
}

func writeStripeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func writeStripeError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"message": message, "type": "invalid_request_error", "code": code},
	})
}
