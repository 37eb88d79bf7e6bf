package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/goliatone/go-storefront/internal/cart"
)

const messageCartFailed = "Failed to update cart"

type cartResponse struct {
	CartID         string      `json:"cartId"`
	Items          []cart.Item `json:"items"`
	IsOpen         bool        `json:"isOpen"`
	TotalItems     int         `json:"totalItems"`
	TotalPrice     float64     `json:"totalPrice"`
	FormattedTotal string      `json:"formattedTotal"`
}

type addItemRequest struct {
	Item     cart.Item `json:"item"`
	Quantity int       `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type openRequest struct {
	IsOpen bool `json:"isOpen"`
}

func (s *Server) cartView(r *http.Request, id string, c cart.Cart) cartResponse {
	items := c.Items
	if items == nil {
		items = []cart.Item{}
	}
	return cartResponse{
		CartID:         id,
		Items:          items,
		IsOpen:         c.Open,
		TotalItems:     c.TotalItems(),
		TotalPrice:     c.TotalPrice(),
		FormattedTotal: c.FormattedTotal(s.cartLocale(r)),
	}
}

// cartLocale reads ?locale= and falls back to the default locale.
func (s *Server) cartLocale(r *http.Request) string {
	if locale := strings.TrimSpace(r.URL.Query().Get("locale")); locale != "" {
		return locale
	}
	return s.locales.Default()
}

func (s *Server) writeCartError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidID):
		writeMessage(w, http.StatusBadRequest, "Invalid cart id")
	case errors.Is(err, cart.ErrInvalidItem):
		writeMessage(w, http.StatusBadRequest, "Item id is required")
	case errors.Is(err, cart.ErrCurrencyMismatch):
		writeMessage(w, http.StatusConflict, "Item currency does not match the cart")
	default:
		s.logger.WithContext(r.Context()).Error("http.cart.failed", "cart_id", r.PathValue("cartId"), "error", err)
		writeError(w, err, messageCartFailed)
	}
}

func (s *Server) handleCartCreate(w http.ResponseWriter, r *http.Request) {
	if s.carts == nil {
		unavailable(w)
		return
	}
	id := s.carts.NewID()
	writeJSON(w, http.StatusCreated, s.cartView(r, id, cart.Cart{}))
}

func (s *Server) handleCartGet(w http.ResponseWriter, r *http.Request) {
	if s.carts == nil {
		unavailable(w)
		return
	}
	id := r.PathValue("cartId")
	c, err := s.carts.Get(r.Context(), id)
	if err != nil {
		s.writeCartError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.cartView(r, id, c))
}

func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	if s.carts == nil {
		unavailable(w)
		return
	}
	var req addItemRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	id := r.PathValue("cartId")
	c, err := s.carts.AddItem(r.Context(), id, req.Item, req.Quantity)
	if err != nil {
		s.writeCartError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.cartView(r, id, c))
}

func (s *Server) handleCartUpdate(w http.ResponseWriter, r *http.Request) {
	if s.carts == nil {
		unavailable(w)
		return
	}
	var req quantityRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	id := r.PathValue("cartId")
	c, err := s.carts.UpdateQuantity(r.Context(), id, r.PathValue("itemId"), req.Quantity, r.URL.Query().Get("size"))
	if err != nil {
		s.writeCartError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.cartView(r, id, c))
}

func (s *Server) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	if s.carts == nil {
		unavailable(w)
		return
	}
	id := r.PathValue("cartId")
	c, err := s.carts.RemoveItem(r.Context(), id, r.PathValue("itemId"), r.URL.Query().Get("size"))
	if err != nil {
		s.writeCartError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.cartView(r, id, c))
}

func (s *Server) handleCartClear(w http.ResponseWriter, r *http.Request) {
	if s.carts == nil {
		unavailable(w)
		return
	}
	id := r.PathValue("cartId")
	c, err := s.carts.Clear(r.Context(), id)
	if err != nil {
		s.writeCartError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.cartView(r, id, c))
}

func (s *Server) handleCartOpen(w http.ResponseWriter, r *http.Request) {
	if s.carts == nil {
		unavailable(w)
		return
	}
	var req openRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	id := r.PathValue("cartId")
	c, err := s.carts.SetOpen(r.Context(), id, req.IsOpen)
	if err != nil {
		s.writeCartError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.cartView(r, id, c))
}
