package logging

import (
	"context"

	"github.com/goliatone/go-storefront/pkg/interfaces"
)

const (
	rootModule     = "storefront"
	cmsModule      = "storefront.cms"
	hreflangModule = "storefront.hreflang"
	paymentsModule = "storefront.payments"
	mailerModule   = "storefront.mailer"
	cartModule     = "storefront.cart"
	sitemapModule  = "storefront.sitemap"
	httpModule     = "storefront.http"
	jobsModule     = "storefront.jobs"
	storageModule  = "storefront.storage"
)

// ModuleLogger returns a logger scoped to module. Without a provider it
// returns a no-op logger. The module name is attached as the "module" field.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// CMSLogger scopes entries for the content client and single documents.
func CMSLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, cmsModule)
}

// HreflangLogger scopes entries for alternate URL generation.
func HreflangLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, hreflangModule)
}

// PaymentsLogger scopes entries for checkout and catalog lookups.
func PaymentsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, paymentsModule)
}

// MailerLogger scopes entries for the contact relay.
func MailerLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, mailerModule)
}

// CartLogger scopes entries for cart persistence.
func CartLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, cartModule)
}

// SitemapLogger scopes entries for sitemap builds.
func SitemapLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, sitemapModule)
}

// HTTPLogger scopes entries for request handling.
func HTTPLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, httpModule)
}

// JobsLogger scopes entries for scheduled jobs.
func JobsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, jobsModule)
}

// StorageLogger scopes entries for the order and submission ledger.
func StorageLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, storageModule)
}

// NoOp returns a logger that drops every entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
