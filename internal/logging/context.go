package logging

import (
	"context"
	"maps"
)

type contextKey string

const (
	contextFieldsKey    contextKey = "storefront.logging.fields"
	contextRequestIDKey contextKey = "storefront.logging.request_id"
)

// ContextWithFields returns a context carrying structured fields that
// loggers merge into every entry written with that context.
func ContextWithFields(ctx context.Context, fields map[string]any) context.Context {
	if ctx == nil || len(fields) == 0 {
		return ctx
	}
	merged := ContextFields(ctx)
	if merged == nil {
		merged = make(map[string]any, len(fields))
	}
	maps.Copy(merged, fields)
	return context.WithValue(ctx, contextFieldsKey, merged)
}

// ContextFields returns a copy of the fields stored on ctx.
func ContextFields(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	fields, ok := ctx.Value(contextFieldsKey).(map[string]any)
	if !ok || len(fields) == 0 {
		return nil
	}
	return maps.Clone(fields)
}

// WithRequestID stores the request id on ctx and mirrors it as a log field.
func WithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil || id == "" {
		return ctx
	}
	ctx = context.WithValue(ctx, contextRequestIDKey, id)
	return ContextWithFields(ctx, map[string]any{"request_id": id})
}

// RequestIDFromContext returns the id set by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(contextRequestIDKey).(string)
	return id
}
