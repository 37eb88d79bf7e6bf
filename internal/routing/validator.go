package routing

import (
	"strings"

	"github.com/goliatone/go-storefront/internal/document"
	"github.com/goliatone/go-storefront/internal/locales"
)

// Validator checks that a request path matches the structure of the page it
// resolved to. Mismatches are served as not found.
type Validator struct {
	table     *locales.Table
	localized map[string]struct{}
}

// NewValidator builds a validator. localizedUIDs lists uids that must not be
// served outside the default locale in addition to documents flagged with
// localized_slug.
func NewValidator(table *locales.Table, localizedUIDs []string) *Validator {
	set := make(map[string]struct{}, len(localizedUIDs))
	for _, uid := range localizedUIDs {
		if uid = strings.TrimSpace(uid); uid != "" {
			set[uid] = struct{}{}
		}
	}
	return &Validator{table: table, localized: set}
}

// Validate reports whether segments is a valid address for doc in locale.
//
// A page with a parent must be addressed with the parent uid as the
// second-to-last segment. Outside the default locale, a page whose slug is
// localized cannot be reached through its default-locale uid.
func (v *Validator) Validate(doc *document.Document, segments []string, locale string) bool {
	if doc == nil {
		return false
	}
	if parent := doc.ParentLink(); parent != nil {
		if len(segments) < 2 || segments[len(segments)-2] != parent.UID {
			return false
		}
	}

	if locale != "" && !v.table.IsDefault(locale) && len(segments) > 0 {
		last := segments[len(segments)-1]
		if doc.Data.LocalizedSlug && last == doc.UID {
			return false
		}
		if _, listed := v.localized[last]; listed {
			return false
		}
	}
	return true
}
