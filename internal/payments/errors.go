package payments

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeNoActivePrice  = "NO_ACTIVE_PRICE"
	TextCodeMissingProduct = "MISSING_PRODUCT"
	TextCodeNoItems        = "NO_ITEMS"
	TextCodeStripeFailure  = "STRIPE_FAILURE"
	TextCodeNotConfigured  = "STRIPE_NOT_CONFIGURED"

	MessageNoActivePrice  = "No active prices found for this product"
	MessageMissingProduct = "Product ID and Price ID are required"
	MessageNoItems        = "No items provided"
)

func errNoActivePrice(productID string) error {
	return goerrors.New(MessageNoActivePrice, goerrors.CategoryNotFound).
		WithTextCode(TextCodeNoActivePrice).
		WithMetadata(map[string]any{"product_id": productID})
}

func errNoItems() error {
	return goerrors.New(MessageNoItems, goerrors.CategoryBadInput).WithTextCode(TextCodeNoItems)
}

func errNotConfigured() error {
	return goerrors.New("stripe secret key is not configured", goerrors.CategoryInternal).
		WithTextCode(TextCodeNotConfigured)
}

// HasTextCode reports whether err carries the payments text code.
func HasTextCode(err error, code string) bool {
	var perr *goerrors.Error
	if goerrors.As(err, &perr) {
		return perr.TextCode == code
	}
	return false
}

// apiError is the error envelope returned by the payment API.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
		Param   string `json:"param"`
	} `json:"error"`
}

func (e *apiError) toError(status int) error {
	message := strings.TrimSpace(e.Error.Message)
	if message == "" {
		message = "payment api request failed"
	}
	category := goerrors.CategoryExternal
	if e.Error.Code == "resource_missing" || strings.Contains(message, "No such product") {
		category = goerrors.CategoryNotFound
	}
	return goerrors.New(message, category).
		WithCode(status).
		WithTextCode(TextCodeStripeFailure).
		WithMetadata(map[string]any{"stripe_type": e.Error.Type, "stripe_code": e.Error.Code})
}
