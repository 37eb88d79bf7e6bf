// Package document models the CMS documents served by the storefront.
package document

import (
	"strings"
	"time"
	"unicode"
)

// MaxUIDLength bounds the path segments sent to the CMS as uids.
const MaxUIDLength = 256

const (
	TypePage         = "page"
	TypeNavbar       = "navbar"
	TypeFooter       = "footer"
	TypeCookieBanner = "cookie_banner"
	TypeFourOhFour   = "four_oh_four"
)

// Document is a single CMS document in one language.
type Document struct {
	ID                  string              `json:"id"`
	UID                 string              `json:"uid"`
	Type                string              `json:"type"`
	Lang                string              `json:"lang"`
	LastPublicationDate time.Time           `json:"last_publication_date"`
	AlternateLanguages  []AlternateLanguage `json:"alternate_languages"`
	Data                PageData            `json:"data"`
}

// AlternateLanguage points at the same document in another locale.
type AlternateLanguage struct {
	ID   string `json:"id"`
	UID  string `json:"uid"`
	Type string `json:"type"`
	Lang string `json:"lang"`
}

// PageData holds the fields the storefront reads from a document body.
// Fields that only some document types carry are left zero elsewhere.
type PageData struct {
	PageTitle       string         `json:"page_title"`
	MetaTitle       string         `json:"meta_title"`
	MetaDescription string         `json:"meta_description"`
	MetaImage       Image          `json:"meta_image"`
	Parent          *Link          `json:"parent,omitempty"`
	Slices          []Slice        `json:"slices"`
	StripeProductID string         `json:"stripe_product_id"`
	Sizes           []string       `json:"sizes"`
	PreviousPrice   float64        `json:"previous_price"`
	LocalizedSlug   bool           `json:"localized_slug"`
	Raw             map[string]any `json:"-"`
}

// Image is a CMS image field.
type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// Link is a content relationship. Parent links fetched with the document
// carry their own title and parent so ancestry can be walked without extra
// requests.
type Link struct {
	ID        string `json:"id"`
	UID       string `json:"uid"`
	Type      string `json:"type"`
	Lang      string `json:"lang"`
	PageTitle string `json:"page_title,omitempty"`
	Parent    *Link  `json:"parent,omitempty"`
	Broken    bool   `json:"isBroken,omitempty"`
}

// Filled reports whether the link points at a document with a uid.
func (l *Link) Filled() bool {
	return l != nil && !l.Broken && strings.TrimSpace(l.UID) != ""
}

// Slice is one typed content block of a page.
type Slice struct {
	ID        string           `json:"id"`
	SliceType string           `json:"slice_type"`
	Variation string           `json:"variation"`
	Primary   map[string]any   `json:"primary"`
	Items     []map[string]any `json:"items"`
}

// IsHome reports whether the document is the site root.
func (d *Document) IsHome() bool {
	return d != nil && d.UID == "home"
}

// ParentLink returns the filled parent link or nil.
func (d *Document) ParentLink() *Link {
	if d == nil || !d.Data.Parent.Filled() {
		return nil
	}
	return d.Data.Parent
}

// ValidUID rejects path segments that cannot name a document: empty or
// overlong ones and those carrying control characters. Any other segment is
// looked up as is.
func ValidUID(uid string) bool {
	if uid == "" || len(uid) > MaxUIDLength {
		return false
	}
	return strings.IndexFunc(uid, unicode.IsControl) < 0
}
