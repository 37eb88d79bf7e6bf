// Package cart keeps shopping carts on the server, keyed by cart id.
package cart

import (
	"errors"
	"strings"

	"github.com/goliatone/go-storefront/internal/money"
)

var (
	// ErrCurrencyMismatch is returned when an item is priced in a different
	// currency than the items already in the cart.
	ErrCurrencyMismatch = errors.New("cart: item currency does not match cart currency")
	// ErrInvalidItem is returned for items without an id.
	ErrInvalidItem = errors.New("cart: item id is required")
)

// Item is one line of the cart. Lines are keyed by (ID, Size).
type Item struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Price    float64           `json:"price"`
	Currency string            `json:"currency"`
	PriceID  string            `json:"priceId"`
	Quantity int               `json:"quantity"`
	Size     string            `json:"size,omitempty"`
	Image    string            `json:"image,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Cart holds the lines of one cart and whether the cart sheet is open.
type Cart struct {
	Items []Item `json:"items"`
	Open  bool   `json:"-"`
}

// Add adds qty of item, merging with an existing line for the same
// (ID, Size). qty <= 0 adds one.
func (c *Cart) Add(item Item, qty int) error {
	if strings.TrimSpace(item.ID) == "" {
		return ErrInvalidItem
	}
	if qty <= 0 {
		qty = 1
	}
	if current := c.Currency(); current != "" && !strings.EqualFold(current, item.Currency) {
		return ErrCurrencyMismatch
	}
	if i := c.index(item.ID, item.Size); i >= 0 {
		c.Items[i].Quantity += qty
		return nil
	}
	item.Quantity = qty
	c.Items = append(c.Items, item)
	return nil
}

// Remove drops the line for (id, size).
func (c *Cart) Remove(id, size string) {
	if i := c.index(id, size); i >= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	}
}

// UpdateQuantity sets the quantity of (id, size). qty <= 0 removes the line.
func (c *Cart) UpdateQuantity(id string, qty int, size string) {
	if qty <= 0 {
		c.Remove(id, size)
		return
	}
	if i := c.index(id, size); i >= 0 {
		c.Items[i].Quantity = qty
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = nil
}

// TotalItems is the sum of line quantities.
func (c Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// TotalPrice is the sum of price times quantity.
func (c Cart) TotalPrice() float64 {
	total := 0.0
	for _, item := range c.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// Currency returns the upper-cased currency of the cart, or "" when empty.
func (c Cart) Currency() string {
	if len(c.Items) == 0 {
		return ""
	}
	return strings.ToUpper(c.Items[0].Currency)
}

// FormattedTotal renders TotalPrice for locale. An empty cart renders "".
func (c Cart) FormattedTotal(locale string) string {
	if len(c.Items) == 0 {
		return ""
	}
	return money.FormatPrice(c.TotalPrice(), c.Currency(), locale)
}

func (c Cart) index(id, size string) int {
	for i, item := range c.Items {
		if item.ID == id && item.Size == size {
			return i
		}
	}
	return -1
}
