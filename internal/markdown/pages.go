// Package markdown renders the static pages that live outside the CMS, such
// as the checkout success page and the fallback not-found body.
package markdown

import (
	"embed"
	"html/template"
	"io/fs"
	"path"
	"sort"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	PageSuccess  = "success"
	PageNotFound = "not-found"
)

//go:embed pages/*.md
var embedded embed.FS

// Page is a rendered static page.
type Page struct {
	Name        string
	Title       string
	Description string
	HTML        template.HTML
}

// Pages is the set of static pages, rendered once at load.
type Pages struct {
	pages map[string]Page
}

// Embedded loads the pages compiled into the binary.
func Embedded() (*Pages, error) {
	sub, err := fs.Sub(embedded, "pages")
	if err != nil {
		return nil, err
	}
	return Load(sub, ParseOptions{})
}

// Load renders every .md file at the root of fsys. The page name is the
// file name without its extension.
func Load(fsys fs.FS, opts ParseOptions) (*Pages, error) {
	names, err := fs.Glob(fsys, "*.md")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	parser := NewParser(opts)
	out := &Pages{pages: make(map[string]Page, len(names))}
	for _, file := range names {
		source, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, err
		}
		meta, body, err := ParseFrontMatter(source)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "static page "+file).
				WithTextCode("STATIC_PAGE_INVALID")
		}
		rendered, err := parser.Parse(body)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "static page "+file).
				WithTextCode("STATIC_PAGE_INVALID")
		}
		name := strings.TrimSuffix(path.Base(file), path.Ext(file))
		out.pages[name] = Page{
			Name:        name,
			Title:       meta.Title,
			Description: meta.Description,
			HTML:        template.HTML(rendered),
		}
	}
	return out, nil
}

// Get returns the page called name.
func (p *Pages) Get(name string) (Page, bool) {
	if p == nil {
		return Page{}, false
	}
	page, ok := p.pages[name]
	return page, ok
}

// Names lists the loaded pages in name order.
func (p *Pages) Names() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.pages))
	for name := range p.pages {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
