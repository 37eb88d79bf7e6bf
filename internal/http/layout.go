package http

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/goliatone/go-storefront/internal/breadcrumbs"
	"github.com/goliatone/go-storefront/internal/document"
	"github.com/goliatone/go-storefront/internal/locales"
	"github.com/goliatone/go-storefront/internal/seo"
	"github.com/goliatone/go-storefront/internal/slices"
)

//go:embed templates/*.html
var templateFS embed.FS

var layoutTemplate = template.Must(template.ParseFS(templateFS, "templates/layout.html"))

// pageView is the data of templates/layout.html.
type pageView struct {
	Lang         string
	Meta         seo.Metadata
	JSONLD       []template.JS
	Navbar       template.HTML
	Footer       template.HTML
	CookieBanner template.HTML
	Trail        *breadcrumbs.Trail
	Body         template.HTML
}

func (v *pageView) addJSONLD(raw []byte) {
	if len(raw) > 0 {
		v.JSONLD = append(v.JSONLD, template.JS(raw))
	}
}

// newPageView fills the shared chrome of locale around body.
func (s *Server) newPageView(ctx context.Context, locale string, meta seo.Metadata, body template.HTML) *pageView {
	view := &pageView{
		Lang: locales.FormatTag(locale),
		Meta: meta,
		Body: body,
	}
	if s.singles == nil {
		return view
	}
	view.Navbar = s.chrome(ctx, s.singles.Navbar(ctx, locale), locale)
	view.Footer = s.chrome(ctx, s.singles.Footer(ctx, locale), locale)
	view.CookieBanner = s.chrome(ctx, s.singles.CookieBanner(ctx, locale), locale)
	return view
}

// chrome renders the slices of a singleton. Failures leave the region empty.
func (s *Server) chrome(ctx context.Context, doc *document.Document, locale string) template.HTML {
	if doc == nil || len(doc.Data.Slices) == 0 {
		return ""
	}
	out, err := s.slices.Zone(ctx, doc.Data.Slices, slices.ContextFor(doc, locale))
	if err != nil {
		s.logger.WithContext(ctx).Warn("http.chrome.render_failed", "type", doc.Type, "locale", locale, "error", err)
		return ""
	}
	return out
}

// render executes the layout into a buffer so a template failure never
// leaves a half written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, view *pageView) {
	var buf bytes.Buffer
	if err := layoutTemplate.Execute(&buf, view); err != nil {
		s.logger.WithContext(r.Context()).Error("http.layout.render_failed", "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
