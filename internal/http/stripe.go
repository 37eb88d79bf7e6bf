package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-storefront/internal/payments"
)

const (
	defaultProductLocale = "en-US"

	messageCheckoutFailed    = "Failed to create checkout session"
	messageProductNotFound   = "Product not found"
	messageProductFailed     = "Failed to fetch product information"
	messageProductIDRequired = "Product ID is required"
	messageBatchNotArray     = "productIds must be an array"
	messageBatchFailed       = "Failed to fetch products"
)

type checkoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type batchRequest struct {
	ProductIDs json.RawMessage `json:"productIds"`
	Locale     string          `json:"locale"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if s.checkout == nil {
		unavailable(w)
		return
	}
	var req payments.CheckoutRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	origin := payments.Origin(r.Header.Get("Origin"), s.siteURL)
	session, err := s.checkout.CreateSession(r.Context(), req, origin)
	if err != nil {
		if goerrors.IsCategory(err, goerrors.CategoryBadInput) || goerrors.IsValidation(err) {
			writeMessage(w, http.StatusBadRequest, messageOf(err, messageCheckoutFailed))
			return
		}
		s.logger.WithContext(r.Context()).Error("http.checkout.failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, messageCheckoutFailed)
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{SessionID: session.ID, URL: session.URL})
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		unavailable(w)
		return
	}
	productID := strings.TrimSpace(r.PathValue("productId"))
	if productID == "" {
		writeMessage(w, http.StatusBadRequest, messageProductIDRequired)
		return
	}
	locale := strings.TrimSpace(r.URL.Query().Get("locale"))
	if locale == "" {
		locale = defaultProductLocale
	}

	view, err := s.catalog.Product(r.Context(), productID, locale)
	switch {
	case err == nil:
		view.ProductID = ""
		writeJSON(w, http.StatusOK, view)
	case payments.HasTextCode(err, payments.TextCodeNoActivePrice):
		writeMessage(w, http.StatusNotFound, payments.MessageNoActivePrice)
	case goerrors.IsNotFound(err):
		writeMessage(w, http.StatusNotFound, messageProductNotFound)
	default:
		if status, _ := mapError(err, messageProductFailed); status >= http.StatusInternalServerError {
			s.logger.WithContext(r.Context()).Error("http.product.failed", "product_id", productID, "error", err)
		}
		writeError(w, err, messageProductFailed)
	}
}

func (s *Server) handleProductBatch(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		unavailable(w)
		return
	}
	var req batchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusInternalServerError, messageBatchFailed)
		return
	}
	ids, ok := productIDs(req.ProductIDs)
	if !ok {
		writeMessage(w, http.StatusBadRequest, messageBatchNotArray)
		return
	}
	if len(ids) == 0 {
		writeJSON(w, http.StatusOK, payments.BatchResult{Products: []payments.ProductView{}})
		return
	}
	locale := strings.TrimSpace(req.Locale)
	if locale == "" {
		locale = defaultProductLocale
	}
	result := s.catalog.Batch(r.Context(), ids, locale)
	if result.Products == nil {
		result.Products = []payments.ProductView{}
	}
	writeJSON(w, http.StatusOK, result)
}

// productIDs accepts only a JSON array. Entries that are not non-empty
// strings are ignored.
func productIDs(raw json.RawMessage) ([]string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var values []any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, false
	}
	ids := make([]string, 0, len(values))
	for _, value := range values {
		if id, ok := value.(string); ok && strings.TrimSpace(id) != "" {
			ids = append(ids, strings.TrimSpace(id))
		}
	}
	return ids, true
}
