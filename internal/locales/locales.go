package locales

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

const (
	// HomeUID is the uid of the root page in every locale.
	HomeUID = "home"
	// XDefault is the hreflang value for the fallback alternate.
	XDefault = "x-default"
	// FallbackTag is used when a price or total is formatted without a locale.
	FallbackTag = "en-US"
)

var (
	ErrNoLocales          = errors.New("locales: at least one locale is required")
	ErrDuplicateLocale    = errors.New("locales: duplicate locale")
	ErrDefaultUnsupported = errors.New("locales: default locale is not supported")
)

// Table is the closed set of locales served by the site. It is immutable
// once built and safe for concurrent use.
type Table struct {
	codes    []string
	index    map[string]struct{}
	names    map[string]string
	fallback string
}

// Default returns the table used when configuration does not override it.
func Default() *Table {
	table, _ := New([]string{"sv-se"}, "sv-se", map[string]string{"sv-se": "Svenska"})
	return table
}

// New validates and builds a table. Codes are trimmed and lowercased.
func New(codes []string, defaultCode string, names map[string]string) (*Table, error) {
	if len(codes) == 0 {
		return nil, ErrNoLocales
	}

	t := &Table{
		codes: make([]string, 0, len(codes)),
		index: make(map[string]struct{}, len(codes)),
		names: make(map[string]string, len(names)),
	}
	for _, code := range codes {
		normalized := normalize(code)
		if normalized == "" {
			continue
		}
		if _, exists := t.index[normalized]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLocale, normalized)
		}
		t.index[normalized] = struct{}{}
		t.codes = append(t.codes, normalized)
	}
	if len(t.codes) == 0 {
		return nil, ErrNoLocales
	}

	t.fallback = normalize(defaultCode)
	if _, ok := t.index[t.fallback]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrDefaultUnsupported, defaultCode)
	}

	for code, name := range names {
		t.names[normalize(code)] = strings.TrimSpace(name)
	}
	return t, nil
}

// Default returns the master locale.
func (t *Table) Default() string { return t.fallback }

// Codes returns the supported locales in configuration order.
func (t *Table) Codes() []string { return slices.Clone(t.codes) }

// IsValid reports whether code is one of the supported locales. The check is
// exact: URL segments are matched as written.
func (t *Table) IsValid(code string) bool {
	_, ok := t.index[code]
	return ok
}

// IsDefault reports whether code is the master locale.
func (t *Table) IsDefault(code string) bool { return code == t.fallback }

// Name returns the display name for code, or the code itself.
func (t *Table) Name(code string) string {
	if name := t.names[code]; name != "" {
		return name
	}
	return code
}

// LocaleFromSlug returns the first segment when it is a supported locale and
// the default locale otherwise.
func (t *Table) LocaleFromSlug(segments []string) string {
	if len(segments) > 0 && t.IsValid(segments[0]) {
		return segments[0]
	}
	return t.fallback
}

// ParseSlug resolves the locale and page uid addressed by the path segments.
//
//	[]                     -> (default, "home")
//	["sv-se"]              -> ("sv-se", "home")
//	["sv-se", "about", ..] -> ("sv-se", "about")
//	["about", ..]          -> (default, "about")
func (t *Table) ParseSlug(segments []string) (locale, uid string) {
	switch {
	case len(segments) == 0:
		return t.fallback, HomeUID
	case t.IsValid(segments[0]):
		if len(segments) > 1 && segments[1] != "" {
			return segments[0], segments[1]
		}
		return segments[0], HomeUID
	default:
		return t.fallback, segments[0]
	}
}

// LanguageCode returns the language part of a locale: "sv-se" -> "sv".
func LanguageCode(code string) string {
	lang, _, _ := strings.Cut(code, "-")
	return lang
}

// ExtractActualUID returns the uid of the page addressed by a nested path.
// Nested pages are addressed by their last segment.
func ExtractActualUID(uid string, segments []string) string {
	if uid == HomeUID {
		return HomeUID
	}
	if len(segments) > 0 {
		return segments[len(segments)-1]
	}
	return uid
}

// SplitPath splits a URL path into its non-empty segments.
func SplitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}

// FormatTag normalises a locale into BCP-47 casing: "sv-se" -> "sv-SE".
// An empty value yields FallbackTag.
func FormatTag(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return FallbackTag
	}
	if tag, err := language.Parse(code); err == nil {
		return tag.String()
	}
	parts := strings.Split(code, "-")
	for i, part := range parts {
		if i == 0 {
			parts[i] = strings.ToLower(part)
		} else {
			parts[i] = strings.ToUpper(part)
		}
	}
	return strings.Join(parts, "-")
}

// Tag parses code into a language.Tag, falling back to FallbackTag.
func Tag(code string) language.Tag {
	if tag, err := language.Parse(FormatTag(code)); err == nil {
		return tag
	}
	return language.MustParse(FallbackTag)
}

func normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
