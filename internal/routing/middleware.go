package routing

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-storefront/internal/locales"
)

const (
	HeaderLangCode = "x-lang-code"
	HeaderLocale   = "x-locale"
)

// Middleware annotates page requests with the resolved locale so handlers
// and templates do not recompute it. Scanner paths for .well-known and
// devtools are answered with an empty 404.
func Middleware(table *locales.Table, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if strings.Contains(path, ".well-known") || strings.Contains(path, "devtools") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if !strings.HasPrefix(path, "/api/") {
			locale := table.LocaleFromSlug(locales.SplitPath(path))
			lang := locales.LanguageCode(locale)
			r.Header.Set(HeaderLangCode, lang)
			r.Header.Set(HeaderLocale, locale)
			w.Header().Set(HeaderLangCode, lang)
			w.Header().Set(HeaderLocale, locale)
		}
		next.ServeHTTP(w, r)
	})
}

// LocaleFromRequest returns the locale set by Middleware, or the default.
func LocaleFromRequest(r *http.Request, table *locales.Table) string {
	if r != nil {
		if locale := r.Header.Get(HeaderLocale); table.IsValid(locale) {
			return locale
		}
	}
	return table.Default()
}
