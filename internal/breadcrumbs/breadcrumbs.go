// Package breadcrumbs derives the navigation trail of a page from its
// parent links.
package breadcrumbs

import (
	"encoding/json"

	"github.com/goliatone/go-storefront/internal/document"
	"github.com/goliatone/go-storefront/internal/locales"
	"github.com/goliatone/go-storefront/internal/routing"
)

const (
	homeTitle     = "Home"
	unknownTitle  = "Unknown"
	unknownUID    = "unknown"
	fallbackPath  = "/"
	schemaContext = "https://schema.org"
)

// Item is one ancestor in the trail.
type Item struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	UID   string `json:"uid"`
}

// Trail lists the ancestors of the current page, root first.
type Trail struct {
	Items        []Item `json:"items"`
	CurrentTitle string `json:"currentTitle"`
	CurrentURL   string `json:"currentUrl"`
}

// Builder resolves trail URLs against a locale table.
type Builder struct {
	locales *locales.Table
}

// NewBuilder returns a Builder for table.
func NewBuilder(table *locales.Table) *Builder {
	if table == nil {
		table = locales.Default()
	}
	return &Builder{locales: table}
}

// Build returns the trail for current. home may be nil, in which case the
// trail starts at the first ancestor. The home page has no trail.
func (b *Builder) Build(current, home *document.Document, locale string) (Trail, bool) {
	if current == nil || current.IsHome() {
		return Trail{}, false
	}
	if locale == "" {
		locale = b.locales.Default()
	}

	var trail Trail
	if home != nil {
		title := fallback(home.Data.PageTitle, homeTitle)
		path, _ := routing.PathFor(locales.HomeUID, nil, locale, b.locales)
		trail.Items = append(trail.Items, Item{Title: title, URL: path, UID: locales.HomeUID})
	}

	if parent := current.ParentLink(); parent != nil {
		if grandparent := parent.Parent; grandparent.Filled() {
			trail.Items = append(trail.Items, b.linkItem(grandparent, locale))
		}
		trail.Items = append(trail.Items, b.linkItem(parent, locale))
	}

	// page_title only, never meta_title
	trail.CurrentTitle = fallback(current.Data.PageTitle, unknownTitle)
	currentPath, truncated := routing.PathFor(current.UID, current.ParentLink(), locale, b.locales)
	if truncated || current.UID == "" {
		currentPath = fallbackPath
	}
	trail.CurrentURL = currentPath
	return trail, true
}

func (b *Builder) linkItem(link *document.Link, locale string) Item {
	path := fallbackPath
	if link.UID != "" {
		if resolved, truncated := routing.PathFor(link.UID, link.Parent, locale, b.locales); !truncated {
			path = resolved
		}
	}
	return Item{
		Title: fallback(link.PageTitle, unknownTitle),
		URL:   path,
		UID:   fallback(link.UID, unknownUID),
	}
}

// ListItem is one schema.org ListItem.
type ListItem struct {
	Type     string `json:"@type"`
	Position int    `json:"position"`
	Name     string `json:"name"`
	Item     string `json:"item"`
}

// List is a schema.org BreadcrumbList.
type List struct {
	Context         string     `json:"@context"`
	Type            string     `json:"@type"`
	ItemListElement []ListItem `json:"itemListElement"`
}

// Schema returns the trail as a BreadcrumbList with absolute URLs, ending
// with the current page.
func (t Trail) Schema(siteURL string) List {
	list := List{
		Context:         schemaContext,
		Type:            "BreadcrumbList",
		ItemListElement: make([]ListItem, 0, len(t.Items)+1),
	}
	for i, item := range t.Items {
		list.ItemListElement = append(list.ItemListElement, ListItem{
			Type:     "ListItem",
			Position: i + 1,
			Name:     item.Title,
			Item:     routing.JoinURL(siteURL, item.URL),
		})
	}
	list.ItemListElement = append(list.ItemListElement, ListItem{
		Type:     "ListItem",
		Position: len(t.Items) + 1,
		Name:     t.CurrentTitle,
		Item:     routing.JoinURL(siteURL, t.CurrentURL),
	})
	return list
}

// JSONLD marshals Schema for a <script type="application/ld+json"> block.
func (t Trail) JSONLD(siteURL string) ([]byte, error) {
	return json.Marshal(t.Schema(siteURL))
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
