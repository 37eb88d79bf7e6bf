// Package slices renders the typed content blocks of a CMS page.
package slices

import (
	"context"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-storefront/internal/document"
	"github.com/goliatone/go-storefront/internal/logging"
	"github.com/goliatone/go-storefront/pkg/interfaces"
)

// RenderContext is the page level data every slice may read.
type RenderContext struct {
	StripeProductID string
	Sizes           []string
	PreviousPrice   float64
	Locale          string
	SliceIndex      int
}

// ContextFor builds the render context of a page.
func ContextFor(doc *document.Document, locale string) RenderContext {
	rc := RenderContext{Locale: locale}
	if doc != nil {
		rc.StripeProductID = doc.Data.StripeProductID
		rc.Sizes = doc.Data.Sizes
		rc.PreviousPrice = doc.Data.PreviousPrice
	}
	return rc
}

// Renderer turns one slice into HTML.
type Renderer interface {
	Render(ctx context.Context, rc RenderContext, slice document.Slice) (template.HTML, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, rc RenderContext, slice document.Slice) (template.HTML, error)

func (f RendererFunc) Render(ctx context.Context, rc RenderContext, slice document.Slice) (template.HTML, error) {
	return f(ctx, rc, slice)
}

// Registry maps slice types to renderers.
type Registry struct {
	mu        sync.RWMutex
	renderers map[string]Renderer
	logger    interfaces.Logger
}

// NewRegistry returns a registry with the built-in renderers installed.
func NewRegistry(logger interfaces.Logger) *Registry {
	if logger == nil {
		logger = logging.NoOp()
	}
	r := &Registry{
		renderers: make(map[string]Renderer),
		logger:    logger,
	}
	registerBuiltins(r)
	return r
}

// Register installs renderer for sliceType, replacing any previous one.
func (r *Registry) Register(sliceType string, renderer Renderer) error {
	name := strings.TrimSpace(sliceType)
	if name == "" || renderer == nil {
		return goerrors.New("slice type and renderer are required", goerrors.CategoryBadInput).
			WithTextCode("INVALID_RENDERER")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderers[name] = renderer
	return nil
}

// Lookup returns the renderer of sliceType.
func (r *Registry) Lookup(sliceType string) (Renderer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	renderer, ok := r.renderers[sliceType]
	return renderer, ok
}

// Types lists the registered slice types in name order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.renderers))
	for name := range r.renderers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Zone renders slices in order. Each slice sees its own index in the render
// context. Unknown slice types become an HTML comment.
func (r *Registry) Zone(ctx context.Context, slices []document.Slice, rc RenderContext) (template.HTML, error) {
	var b strings.Builder
	for i, slice := range slices {
		renderer, ok := r.Lookup(slice.SliceType)
		if !ok {
			r.logger.WithContext(ctx).Debug("slices.unknown_type", "slice_type", slice.SliceType, "index", i)
			fmt.Fprintf(&b, "<!-- unsupported slice %q -->", template.HTMLEscapeString(slice.SliceType))
			continue
		}
		sliceCtx := rc
		sliceCtx.SliceIndex = i
		out, err := renderer.Render(ctx, sliceCtx, slice)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "render slice "+slice.SliceType).
				WithTextCode("SLICE_RENDER_FAILED").
				WithMetadata(map[string]any{"index": i})
		}
		b.WriteString(string(out))
	}
	return template.HTML(b.String()), nil
}
