package http

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/goliatone/go-storefront/internal/cms"
	"github.com/goliatone/go-storefront/internal/document"
	"github.com/goliatone/go-storefront/internal/hreflang"
	"github.com/goliatone/go-storefront/internal/locales"
	"github.com/goliatone/go-storefront/internal/markdown"
	"github.com/goliatone/go-storefront/internal/routing"
	"github.com/goliatone/go-storefront/internal/seo"
	"github.com/goliatone/go-storefront/internal/slices"
	"github.com/goliatone/go-storefront/internal/storage"
)

// handlePage resolves a path to a CMS page and renders it. Every lookup or
// structure failure is served as the not-found page.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := s.logger.WithContext(ctx)

	segments := locales.SplitPath(r.URL.Path)
	locale, uid := s.locales.ParseSlug(segments)
	uid = locales.ExtractActualUID(uid, segments)
	if s.reader == nil || !document.ValidUID(uid) {
		s.renderNotFound(w, r, locale)
		return
	}

	doc, err := s.reader.GetByUID(ctx, document.TypePage, uid, locale)
	if err != nil {
		if !cms.IsNoDocuments(err) {
			logger.Error("http.page.fetch_failed", "uid", uid, "locale", locale, "error", err)
		}
		s.renderNotFound(w, r, locale)
		return
	}
	if !s.validator.Validate(doc, segments, locale) {
		logger.Debug("http.page.invalid_structure", "uid", uid, "path", r.URL.Path)
		s.renderNotFound(w, r, locale)
		return
	}

	var alternates []hreflang.Entry
	if s.alternates != nil {
		alternates, err = s.alternates.Generate(ctx, doc, locale)
		if err != nil {
			logger.Warn("http.page.hreflang_failed", "uid", uid, "error", err)
			alternates = nil
		}
	}

	var home *document.Document
	if !doc.IsHome() && s.singles != nil {
		home = s.singles.HomePage(ctx, locale)
	}
	trail, hasTrail := s.breadcrumbs.Build(doc, home, locale)

	body, err := s.slices.Zone(ctx, doc.Data.Slices, slices.ContextFor(doc, locale))
	if err != nil {
		logger.Error("http.page.render_failed", "uid", uid, "locale", locale, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	view := s.newPageView(ctx, locale, seo.PageMetadata(doc, alternates, locale), body)
	if raw, err := slices.FAQSchema(doc.Data.Slices).JSONLD(); err == nil {
		view.addJSONLD(raw)
	}
	if hasTrail {
		view.Trail = &trail
		if raw, err := trail.JSONLD(s.siteURL); err == nil {
			view.addJSONLD(raw)
		}
	}
	s.render(w, r, http.StatusOK, view)
}

// fixedNotFound serves an already loaded not-found document.
type fixedNotFound struct {
	doc *document.Document
}

func (f fixedNotFound) FourOhFour(context.Context, string) *document.Document {
	return f.doc
}

// renderNotFound serves the 404 page of locale: the CMS not-found document
// when it has content, the bundled markdown page otherwise.
func (s *Server) renderNotFound(w http.ResponseWriter, r *http.Request, locale string) {
	ctx := r.Context()
	var doc *document.Document
	if s.singles != nil {
		doc = s.singles.FourOhFour(ctx, locale)
	}
	meta := seo.NotFoundMetadata(ctx, fixedNotFound{doc: doc}, locale)

	var body template.HTML
	if doc != nil && len(doc.Data.Slices) > 0 {
		out, err := s.slices.Zone(ctx, doc.Data.Slices, slices.ContextFor(doc, locale))
		if err != nil {
			s.logger.WithContext(ctx).Warn("http.not_found.render_failed", "locale", locale, "error", err)
		} else {
			body = out
		}
	}
	if body == "" {
		if page, ok := s.pages.Get(markdown.PageNotFound); ok {
			body = page.HTML
		} else {
			body = template.HTML("<h1>" + template.HTMLEscapeString(meta.Title) + "</h1>")
		}
	}
	s.render(w, r, http.StatusNotFound, s.newPageView(ctx, locale, meta, body))
}

func (s *Server) handleSuccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	locale := routing.LocaleFromRequest(r, s.locales)
	meta := seo.Metadata{Title: "Payment Successful!", Canonical: "/success", NoIndex: true}

	var body strings.Builder
	if page, ok := s.pages.Get(markdown.PageSuccess); ok {
		meta.Title = page.Title
		meta.Description = page.Description
		body.WriteString(string(page.HTML))
	} else {
		fmt.Fprintf(&body, "<h1>%s</h1>", template.HTMLEscapeString(meta.Title))
	}

	if sessionID := strings.TrimSpace(r.URL.Query().Get("session_id")); sessionID != "" && s.orders != nil {
		order, err := s.orders.FindOrder(ctx, sessionID)
		switch {
		case err == nil:
			fmt.Fprintf(&body, `<p class="order-summary" data-session-id="%s">Items in your order: %d</p>`,
				template.HTMLEscapeString(order.SessionID), order.ItemsCount)
		case storage.IsOrderNotFound(err):
		default:
			s.logger.WithContext(ctx).Warn("http.success.order_lookup_failed", "session_id", sessionID, "error", err)
		}
	}
	s.render(w, r, http.StatusOK, s.newPageView(ctx, locale, meta, template.HTML(body.String())))
}

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	if s.sitemap == nil {
		unavailable(w)
		return
	}
	body, err := s.sitemap.Get(r.Context())
	if err != nil {
		s.logger.WithContext(r.Context()).Error("http.sitemap.failed", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
