package routing

import (
	"strings"

	"github.com/goliatone/go-storefront/internal/document"
	"github.com/goliatone/go-storefront/internal/locales"
)

// MaxParentDepth bounds every walk up a parent chain. Chains deeper than
// this, including cycles, are treated as if the page had no parent.
const MaxParentDepth = 8

// Ancestors returns the uids from the root-most ancestor down to link.
// The second result is true when the chain exceeded maxDepth; the uid list
// is nil in that case.
func Ancestors(link *document.Link, maxDepth int) ([]string, bool) {
	if maxDepth <= 0 {
		maxDepth = MaxParentDepth
	}
	var uids []string
	for current := link; current.Filled(); current = current.Parent {
		if len(uids) == maxDepth {
			return nil, true
		}
		uids = append(uids, current.UID)
	}
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}
	return uids, false
}

// PathFor builds the site-relative path of a page from its uid and parent
// chain. Home resolves to "/" in the default locale and "/<locale>"
// elsewhere. The bool reports a truncated parent chain.
func PathFor(uid string, parent *document.Link, locale string, table *locales.Table) (string, bool) {
	prefix := ""
	if !table.IsDefault(locale) {
		prefix = "/" + locale
	}
	if uid == locales.HomeUID {
		if prefix == "" {
			return "/", false
		}
		return prefix, false
	}

	ancestors, truncated := Ancestors(parent, MaxParentDepth)
	segments := append(ancestors, uid)
	return prefix + "/" + strings.Join(segments, "/"), truncated
}

// URLFor joins siteURL with the page path.
func URLFor(siteURL, uid string, parent *document.Link, locale string, table *locales.Table) (string, bool) {
	path, truncated := PathFor(uid, parent, locale, table)
	return JoinURL(siteURL, path), truncated
}

// DocumentPath resolves the path of a document in its own language.
func DocumentPath(doc *document.Document, table *locales.Table) (string, bool) {
	if doc == nil {
		return "/", false
	}
	lang := doc.Lang
	if lang == "" {
		lang = table.Default()
	}
	return PathFor(doc.UID, doc.ParentLink(), lang, table)
}

// JoinURL appends path to base without doubling the slash.
func JoinURL(base, path string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if path == "" || path == "/" {
		return base + "/"
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

// StaticParams lists the path segments of every page, for prerendering and
// cache warmups. Home expands to the root and one entry per locale.
func StaticParams(docs []*document.Document, table *locales.Table) [][]string {
	var params [][]string
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		switch parent := doc.ParentLink(); {
		case doc.IsHome():
			params = append(params, []string{})
			for _, code := range table.Codes() {
				params = append(params, []string{code})
			}
		case parent != nil:
			params = append(params, []string{parent.UID, doc.UID})
		default:
			params = append(params, []string{doc.UID})
		}
	}
	return params
}
