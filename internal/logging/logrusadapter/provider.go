package logrusadapter

import (
	"context"
	"fmt"
	"io"
	"maps"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-storefront/internal/logging"
	"github.com/goliatone/go-storefront/pkg/interfaces"
)

// Config selects the level and formatter of the logrus backend.
type Config struct {
	Level  string
	Format string
	Output io.Writer
}

// Provider serves loggers backed by a single logrus instance.
type Provider struct {
	base *logrus.Logger
}

// NewProvider configures a logrus logger. Format is json (default) or text.
func NewProvider(cfg Config) (*Provider, error) {
	base := logrus.New()
	if cfg.Output != nil {
		base.SetOutput(cfg.Output)
	}

	if level := strings.TrimSpace(cfg.Level); level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("logrus: %w", err)
		}
		base.SetLevel(parsed)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	case "text", "console":
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	default:
		return nil, fmt.Errorf("logrus: unsupported format %q", cfg.Format)
	}
	return &Provider{base: base}, nil
}

// GetLogger returns an entry tagged with the logger name.
func (p *Provider) GetLogger(name string) interfaces.Logger {
	if p == nil || p.base == nil {
		return logging.NoOp()
	}
	return &entryLogger{entry: p.base.WithField("logger", name)}
}

type entryLogger struct {
	entry *logrus.Entry
}

var (
	_ interfaces.Logger       = (*entryLogger)(nil)
	_ interfaces.FieldsLogger = (*entryLogger)(nil)
)

func (l *entryLogger) Trace(msg string, args ...any) { l.with(args).Trace(msg) }
func (l *entryLogger) Debug(msg string, args ...any) { l.with(args).Debug(msg) }
func (l *entryLogger) Info(msg string, args ...any)  { l.with(args).Info(msg) }
func (l *entryLogger) Warn(msg string, args ...any)  { l.with(args).Warn(msg) }
func (l *entryLogger) Error(msg string, args ...any) { l.with(args).Error(msg) }
func (l *entryLogger) Fatal(msg string, args ...any) { l.with(args).Fatal(msg) }

func (l *entryLogger) WithFields(fields map[string]any) interfaces.Logger {
	if len(fields) == 0 {
		return l
	}
	return &entryLogger{entry: l.entry.WithFields(logrus.Fields(maps.Clone(fields)))}
}

func (l *entryLogger) WithContext(ctx context.Context) interfaces.Logger {
	if ctx == nil {
		return l
	}
	next := &entryLogger{entry: l.entry.WithContext(ctx)}
	if fields := logging.ContextFields(ctx); len(fields) > 0 {
		return next.WithFields(fields)
	}
	return next
}

func (l *entryLogger) with(args []any) *logrus.Entry {
	if len(args) == 0 {
		return l.entry
	}
	fields := logrus.Fields{}
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok || key == "" {
			key = fmt.Sprintf("arg_%d", i)
		}
		if i+1 >= len(args) {
			fields[key] = nil
			break
		}
		if err, isErr := args[i+1].(error); isErr && key == "error" {
			fields[logrus.ErrorKey] = err.Error()
			continue
		}
		fields[key] = args[i+1]
	}
	return l.entry.WithFields(fields)
}
