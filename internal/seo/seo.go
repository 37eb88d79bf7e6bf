// Package seo derives page metadata for the HTML head.
package seo

import (
	"context"

	"github.com/goliatone/go-storefront/internal/document"
	"github.com/goliatone/go-storefront/internal/hreflang"
)

const (
	NotFoundTitle       = "404 - Page Not Found"
	NotFoundDescription = "The page you are looking for could not be found."
)

// Metadata is what the layout writes into <head>.
type Metadata struct {
	Title       string
	Description string
	Canonical   string
	Languages   []hreflang.Entry
	OpenGraph   OpenGraph
	NoIndex     bool
}

// OpenGraph holds the og: properties.
type OpenGraph struct {
	Title       string
	Description string
	Images      []string
}

// NotFoundSource returns the not-found document of a locale, or nil.
type NotFoundSource interface {
	FourOhFour(ctx context.Context, locale string) *document.Document
}

// PageMetadata builds the metadata of a resolved page. The canonical URL is
// the alternate of the current locale, or "/" when the page has none.
func PageMetadata(doc *document.Document, alternates []hreflang.Entry, locale string) Metadata {
	meta := Metadata{Canonical: "/"}
	if doc == nil {
		return meta
	}
	meta.Title = doc.Data.MetaTitle
	meta.Description = doc.Data.MetaDescription
	meta.OpenGraph = OpenGraph{
		Title:  doc.Data.MetaTitle,
		Images: []string{doc.Data.MetaImage.URL},
	}
	for _, entry := range alternates {
		if entry.Lang == locale {
			meta.Canonical = entry.URL
			break
		}
	}
	meta.Languages = append([]hreflang.Entry(nil), alternates...)
	return meta
}

// NotFoundMetadata reads the not-found copy of locale, falling back to
// fixed strings when the document or its fields are missing.
func NotFoundMetadata(ctx context.Context, source NotFoundSource, locale string) Metadata {
	meta := Metadata{
		Title:       NotFoundTitle,
		Description: NotFoundDescription,
		Canonical:   "/",
		NoIndex:     true,
		OpenGraph: OpenGraph{
			Title:       NotFoundTitle,
			Description: NotFoundDescription,
		},
	}
	if source == nil {
		return meta
	}
	doc := source.FourOhFour(ctx, locale)
	if doc == nil {
		return meta
	}
	if doc.Data.MetaTitle != "" {
		meta.Title = doc.Data.MetaTitle
		meta.OpenGraph.Title = doc.Data.MetaTitle
	}
	if doc.Data.MetaDescription != "" {
		meta.Description = doc.Data.MetaDescription
		meta.OpenGraph.Description = doc.Data.MetaDescription
	}
	if doc.Data.MetaImage.URL != "" {
		meta.OpenGraph.Images = []string{doc.Data.MetaImage.URL}
	}
	return meta
}
