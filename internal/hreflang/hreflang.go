// Package hreflang builds the alternate-language link set of a page.
package hreflang

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/goliatone/go-storefront/internal/cms"
	"github.com/goliatone/go-storefront/internal/document"
	"github.com/goliatone/go-storefront/internal/locales"
	"github.com/goliatone/go-storefront/internal/logging"
	"github.com/goliatone/go-storefront/internal/routing"
	"github.com/goliatone/go-storefront/pkg/interfaces"
)

const (
	DefaultTTL      = 5 * time.Minute
	DefaultCapacity = 1024
)

// ErrNilContent is returned when Generate is called without a document.
var ErrNilContent = errors.New("hreflang: content is required")

// Entry is one <link rel="alternate" hreflang> value.
type Entry struct {
	Lang string `json:"hreflang"`
	URL  string `json:"href"`
}

// Config controls URL building and caching.
type Config struct {
	SiteURL  string
	TTL      time.Duration
	Capacity int
}

// Dependencies lists the collaborators of a Generator.
type Dependencies struct {
	Reader  cms.Reader
	Locales *locales.Table
	Logger  interfaces.Logger
}

// Option customises a Generator.
type Option func(*Generator)

// WithClock overrides the clock used to age cache entries.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

type cacheEntry struct {
	entries   []Entry
	createdAt time.Time
}

// Generator computes hreflang entries and memoises them per document
// revision. It is safe for concurrent use.
type Generator struct {
	cfg     Config
	reader  cms.Reader
	locales *locales.Table
	logger  interfaces.Logger
	now     func() time.Time

	mu    sync.Mutex
	cache *lru.Cache[string, cacheEntry]
}

// New builds a Generator.
func New(cfg Config, deps Dependencies, opts ...Option) (*Generator, error) {
	if deps.Reader == nil {
		return nil, errors.New("hreflang: cms reader is required")
	}
	if deps.Locales == nil {
		deps.Locales = locales.Default()
	}
	if deps.Logger == nil {
		deps.Logger = logging.NoOp()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}

	cache, err := lru.New[string, cacheEntry](cfg.Capacity)
	if err != nil {
		return nil, err
	}
	g := &Generator{
		cfg:     cfg,
		reader:  deps.Reader,
		locales: deps.Locales,
		logger:  deps.Logger,
		now:     time.Now,
		cache:   cache,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// Generate returns the alternate links for item viewed in currentLocale.
// Alternates that cannot be fetched are skipped.
func (g *Generator) Generate(ctx context.Context, item *document.Document, currentLocale string) ([]Entry, error) {
	if item == nil {
		return nil, ErrNilContent
	}
	if currentLocale == "" {
		currentLocale = g.locales.Default()
	}
	key := cacheKey(item, currentLocale)
	if cached, ok := g.lookup(key); ok {
		return cached, nil
	}

	logger := g.logger.WithContext(ctx)
	entries := make([]Entry, 0, len(item.AlternateLanguages)+2)
	entries = append(entries, Entry{
		Lang: currentLocale,
		URL:  g.url(ctx, item.UID, item.ParentLink(), currentLocale),
	})

	for _, alt := range item.AlternateLanguages {
		if alt.Lang == "" || alt.UID == "" {
			continue
		}
		sibling, err := g.reader.GetByUID(ctx, document.TypePage, alt.UID, alt.Lang)
		if err != nil {
			logger.Warn("hreflang.alternate.fetch_failed", "uid", alt.UID, "lang", alt.Lang, "error", err)
			continue
		}
		entries = append(entries, Entry{
			Lang: alt.Lang,
			URL:  g.url(ctx, sibling.UID, sibling.ParentLink(), alt.Lang),
		})
	}

	if item.IsHome() && len(item.AlternateLanguages) == 0 {
		for _, code := range g.locales.Codes() {
			if code == currentLocale {
				continue
			}
			entries = append(entries, Entry{Lang: code, URL: g.url(ctx, locales.HomeUID, nil, code)})
		}
	}

	for _, entry := range entries {
		if g.locales.IsDefault(entry.Lang) {
			entries = append(entries, Entry{Lang: locales.XDefault, URL: entry.URL})
			break
		}
	}

	g.store(key, entries)
	return clone(entries), nil
}

// Purge drops every cached result.
func (g *Generator) Purge() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache.Purge()
}

// Len reports the number of cached results, expired ones included.
func (g *Generator) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cache.Len()
}

func (g *Generator) url(ctx context.Context, uid string, parent *document.Link, locale string) string {
	path, truncated := routing.PathFor(uid, parent, locale, g.locales)
	if truncated {
		g.logger.WithContext(ctx).Warn("hreflang.parent_chain.truncated", "uid", uid, "locale", locale, "max_depth", routing.MaxParentDepth)
	}
	return routing.JoinURL(g.cfg.SiteURL, path)
}

func (g *Generator) lookup(key string) ([]Entry, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cached, ok := g.cache.Get(key)
	if !ok {
		return nil, false
	}
	if g.now().Sub(cached.createdAt) >= g.cfg.TTL {
		g.cache.Remove(key)
		return nil, false
	}
	return clone(cached.entries), true
}

func (g *Generator) store(key string, entries []Entry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache.Add(key, cacheEntry{entries: clone(entries), createdAt: g.now()})
}

func cacheKey(item *document.Document, locale string) string {
	modified := ""
	if !item.LastPublicationDate.IsZero() {
		modified = item.LastPublicationDate.UTC().Format(time.RFC3339Nano)
	}
	return strings.Join([]string{item.UID, locale, modified}, "|")
}

func clone(entries []Entry) []Entry {
	return append([]Entry(nil), entries...)
}
