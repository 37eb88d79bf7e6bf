package cms

import (
	"context"

	"github.com/goliatone/go-storefront/internal/document"
	"github.com/goliatone/go-storefront/internal/locales"
	"github.com/goliatone/go-storefront/internal/logging"
	"github.com/goliatone/go-storefront/pkg/interfaces"
)

// Singles loads the site-wide documents (navigation, footer, cookie banner,
// not-found copy) and the home page. A missing document is not an error:
// the accessor returns nil and only unexpected failures are logged.
type Singles struct {
	reader        Reader
	defaultLocale string
	logger        interfaces.Logger
}

// NewSingles builds a Singles accessor.
func NewSingles(reader Reader, defaultLocale string, logger interfaces.Logger) *Singles {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Singles{reader: reader, defaultLocale: defaultLocale, logger: logger}
}

func (s *Singles) Navbar(ctx context.Context, locale string) *document.Document {
	return s.single(ctx, document.TypeNavbar, locale)
}

func (s *Singles) Footer(ctx context.Context, locale string) *document.Document {
	return s.single(ctx, document.TypeFooter, locale)
}

func (s *Singles) CookieBanner(ctx context.Context, locale string) *document.Document {
	return s.single(ctx, document.TypeCookieBanner, locale)
}

func (s *Singles) FourOhFour(ctx context.Context, locale string) *document.Document {
	return s.single(ctx, document.TypeFourOhFour, locale)
}

// HomePage returns the home page in locale, or nil.
func (s *Singles) HomePage(ctx context.Context, locale string) *document.Document {
	locale = s.locale(locale)
	doc, err := s.reader.GetByUID(ctx, document.TypePage, locales.HomeUID, locale)
	if err != nil {
		s.report(ctx, err, document.TypePage, locale)
		return nil
	}
	return doc
}

func (s *Singles) single(ctx context.Context, docType, locale string) *document.Document {
	locale = s.locale(locale)
	doc, err := s.reader.GetSingle(ctx, docType, locale)
	if err != nil {
		s.report(ctx, err, docType, locale)
		return nil
	}
	return doc
}

func (s *Singles) report(ctx context.Context, err error, docType, locale string) {
	if IsNoDocuments(err) {
		return
	}
	s.logger.WithContext(ctx).Error("cms.single.fetch_failed", "type", docType, "locale", locale, "error", err)
}

func (s *Singles) locale(locale string) string {
	if locale == "" {
		return s.defaultLocale
	}
	return locale
}
