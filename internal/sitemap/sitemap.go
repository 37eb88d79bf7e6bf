// Package sitemap lists every public URL of the storefront.
package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"strconv"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-storefront/internal/cms"
	"github.com/goliatone/go-storefront/internal/document"
	"github.com/goliatone/go-storefront/internal/hreflang"
	"github.com/goliatone/go-storefront/internal/locales"
	"github.com/goliatone/go-storefront/internal/logging"
	"github.com/goliatone/go-storefront/internal/routing"
	"github.com/goliatone/go-storefront/pkg/interfaces"
)

const (
	ChangeDaily  = "daily"
	ChangeWeekly = "weekly"

	xmlns = "http://www.sitemaps.org/schemas/sitemap/0.9"
)

// Entry is one sitemap URL.
type Entry struct {
	URL          string
	LastModified time.Time
	ChangeFreq   string
	Priority     float64
}

// Alternates yields the hreflang entries of a page.
type Alternates interface {
	Generate(ctx context.Context, item *document.Document, locale string) ([]hreflang.Entry, error)
}

// Builder collects sitemap entries from the CMS.
type Builder struct {
	siteURL    string
	reader     cms.Reader
	alternates Alternates
	locales    *locales.Table
	logger     interfaces.Logger
	now        func() time.Time
}

// NewBuilder returns a Builder. logger and now may be nil.
func NewBuilder(siteURL string, reader cms.Reader, alternates Alternates, table *locales.Table, logger interfaces.Logger, now func() time.Time) *Builder {
	if table == nil {
		table = locales.Default()
	}
	if logger == nil {
		logger = logging.NoOp()
	}
	if now == nil {
		now = time.Now
	}
	return &Builder{siteURL: siteURL, reader: reader, alternates: alternates, locales: table, logger: logger, now: now}
}

// Build lists the root URL of every locale followed by every language
// version of every page.
func (b *Builder) Build(ctx context.Context) ([]Entry, error) {
	pages, err := b.reader.GetAllByType(ctx, document.TypePage)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "list pages for sitemap")
	}

	now := b.now().UTC()
	entries := []Entry{{URL: routing.JoinURL(b.siteURL, "/"), LastModified: now, ChangeFreq: ChangeDaily, Priority: 1}}
	for _, code := range b.locales.Codes() {
		if b.locales.IsDefault(code) {
			continue
		}
		entries = append(entries, Entry{URL: routing.JoinURL(b.siteURL, code), LastModified: now, ChangeFreq: ChangeDaily, Priority: 1})
	}

	logger := b.logger.WithContext(ctx)
	for _, page := range pages {
		if page == nil || page.IsHome() {
			continue
		}
		links, err := b.alternates.Generate(ctx, page, page.Lang)
		if err != nil {
			logger.Warn("sitemap.hreflang_failed", "uid", page.UID, "error", err)
			continue
		}
		for _, link := range links {
			if link.Lang == locales.XDefault {
				continue
			}
			entries = append(entries, Entry{
				URL:          link.URL,
				LastModified: b.lastModified(ctx, page, link.Lang),
				ChangeFreq:   ChangeWeekly,
				Priority:     0.8,
			})
		}
	}
	return entries, nil
}

func (b *Builder) lastModified(ctx context.Context, page *document.Document, lang string) time.Time {
	if lang == page.Lang {
		return page.LastPublicationDate
	}
	for _, alt := range page.AlternateLanguages {
		if alt.Lang != lang || alt.UID == "" {
			continue
		}
		doc, err := b.reader.GetByUID(ctx, document.TypePage, alt.UID, lang)
		if err != nil {
			b.logger.WithContext(ctx).Warn("sitemap.alternate.fetch_failed", "uid", alt.UID, "lang", lang, "error", err)
			break
		}
		return doc.LastPublicationDate
	}
	return page.LastPublicationDate
}

type urlset struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []xmlURL `xml:"url"`
}

type xmlURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// Render encodes entries as a sitemaps.org urlset. Duplicate locations keep
// the first entry.
func Render(entries []Entry) ([]byte, error) {
	set := urlset{Xmlns: xmlns, URLs: make([]xmlURL, 0, len(entries))}
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if _, ok := seen[entry.URL]; ok {
			continue
		}
		seen[entry.URL] = struct{}{}
		u := xmlURL{Loc: entry.URL, ChangeFreq: entry.ChangeFreq}
		if !entry.LastModified.IsZero() {
			u.LastMod = entry.LastModified.UTC().Format(time.RFC3339)
		}
		if entry.Priority > 0 {
			u.Priority = strconv.FormatFloat(entry.Priority, 'f', 1, 64)
		}
		set.URLs = append(set.URLs, u)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "encode sitemap")
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Cache holds the last rendered sitemap.
type Cache struct {
	builder *Builder

	mu       sync.RWMutex
	body     []byte
	built    time.Time
	building sync.Mutex
}

// NewCache returns an empty cache over builder.
func NewCache(builder *Builder) *Cache {
	return &Cache{builder: builder}
}

// Refresh rebuilds and stores the sitemap.
func (c *Cache) Refresh(ctx context.Context) error {
	c.building.Lock()
	defer c.building.Unlock()

	entries, err := c.builder.Build(ctx)
	if err != nil {
		return err
	}
	body, err := Render(entries)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.body = body
	c.built = c.builder.now()
	c.mu.Unlock()
	c.builder.logger.WithContext(ctx).Info("sitemap.refreshed", "urls", len(entries))
	return nil
}

// Get returns the cached sitemap, building it first when empty.
func (c *Cache) Get(ctx context.Context) ([]byte, error) {
	c.mu.RLock()
	body := c.body
	c.mu.RUnlock()
	if body != nil {
		return body, nil
	}
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.body, nil
}

// BuiltAt reports when the cached sitemap was built.
func (c *Cache) BuiltAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.built
}
