// Package cms reads page and single documents from the headless CMS.
package cms

import (
	"context"

	"github.com/goliatone/go-storefront/internal/document"
)

// Reader is the read-only view of the CMS used by the storefront.
// GetByUID and GetSingle return an error matching IsNoDocuments when
// nothing is published for the requested document.
type Reader interface {
	GetByUID(ctx context.Context, docType, uid, lang string) (*document.Document, error)
	GetSingle(ctx context.Context, docType, lang string) (*document.Document, error)
	GetAllByType(ctx context.Context, docType string) ([]*document.Document, error)
}
