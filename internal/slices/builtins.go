package slices

import (
	"bytes"
	"context"
	"html/template"
	"strconv"
	"strings"

	"github.com/goliatone/go-storefront/internal/document"
)

const (
	TypeRichText       = "rich_text"
	TypeFAQSplitLayout = "faq_split_layout"
	TypeProductsGrid   = "products_grid"
	TypeHeroBasic      = "hero_basic"
)

var builtinTemplates = template.Must(template.New("slices").Parse(`
{{define "rich_text"}}<section class="slice slice-rich-text{{if .Tinted}} tinted{{end}}" data-slice-type="{{.Type}}" data-slice-variation="{{.Variation}}" data-slice-index="{{.Index}}"><div class="container">{{.Content}}</div></section>{{end}}
{{define "intro"}}{{if .Callout}}<p class="callout">{{.Callout}}</p>{{end}}{{.Title}}{{.Description}}{{end}}
{{define "faq_split_layout"}}<section class="slice slice-faq{{if .Tinted}} tinted{{end}}" data-slice-type="{{.Type}}" data-slice-variation="{{.Variation}}" data-slice-index="{{.Index}}"><div class="intro">{{template "intro" .Intro}}</div><dl class="faqs">{{range .FAQs}}<div class="faq" id="{{.Anchor}}"><dt>{{.Question}}</dt><dd>{{.Answer}}</dd></div>{{end}}</dl></section>{{end}}
{{define "products_grid"}}<section class="slice slice-products-grid{{if .Tinted}} tinted{{end}}" data-slice-type="{{.Type}}" data-slice-variation="{{.Variation}}" data-slice-index="{{.Index}}" data-locale="{{.Locale}}"{{if .ProductID}} data-stripe-product-id="{{.ProductID}}"{{end}}{{if .Sizes}} data-sizes="{{.Sizes}}"{{end}}{{if .PreviousPrice}} data-previous-price="{{.PreviousPrice}}"{{end}}{{if .Parent}} data-parent="{{.Parent}}"{{end}}{{if .Tag}} data-tag="{{.Tag}}"{{end}}{{if .Limit}} data-limit="{{.Limit}}"{{end}}><div class="intro">{{template "intro" .Intro}}</div><ul class="products">{{range .Products}}<li data-product-uid="{{.}}"></li>{{end}}</ul>{{if .LoadMore}}<button type="button" class="load-more">{{.LoadMore}}</button>{{end}}</section>{{end}}
{{define "hero_basic"}}<section class="slice slice-hero{{if .Overlay}} overlay{{end}}{{if .Blur}} blur{{end}}{{if .Dark}} dark-texts{{end}}" data-slice-type="{{.Type}}" data-slice-variation="{{.Variation}}" data-slice-index="{{.Index}}">{{if .Image.URL}}<img src="{{.Image.URL}}" alt="{{.Image.Alt}}"{{if .Eager}} fetchpriority="high"{{else}} loading="lazy"{{end}}>{{end}}<div class="intro">{{template "intro" .Intro}}</div></section>{{end}}
`))

type intro struct {
	Callout     string
	Title       template.HTML
	Description template.HTML
}

type sectionView struct {
	Type      string
	Variation string
	Index     int
	Tinted    bool
}

func registerBuiltins(r *Registry) {
	r.renderers[TypeRichText] = RendererFunc(renderRichText)
	r.renderers[TypeFAQSplitLayout] = RendererFunc(renderFAQ)
	r.renderers[TypeProductsGrid] = RendererFunc(renderProductsGrid)
	r.renderers[TypeHeroBasic] = RendererFunc(renderHero)
}

func section(rc RenderContext, slice document.Slice) sectionView {
	return sectionView{
		Type:      slice.SliceType,
		Variation: slice.Variation,
		Index:     rc.SliceIndex,
		Tinted:    boolField(slice.Primary, "tinted_background"),
	}
}

func introOf(primary map[string]any) intro {
	callout, _ := primary["callout"].(string)
	return intro{
		Callout:     callout,
		Title:       template.HTML(RichTextHTML(primary["title"])),
		Description: template.HTML(RichTextHTML(primary["description"])),
	}
}

func execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := builtinTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func renderRichText(_ context.Context, rc RenderContext, slice document.Slice) (template.HTML, error) {
	return execute(TypeRichText, struct {
		sectionView
		Content template.HTML
	}{section(rc, slice), template.HTML(RichTextHTML(slice.Primary["content"]))})
}

type faqView struct {
	Anchor   string
	Question string
	Answer   template.HTML
}

func renderFAQ(_ context.Context, rc RenderContext, slice document.Slice) (template.HTML, error) {
	pairs := faqPairs(slice)
	views := make([]faqView, 0, len(pairs))
	seen := make(map[string]int, len(pairs))
	for i, pair := range pairs {
		views = append(views, faqView{
			Anchor:   faqAnchor(pair.question, i, seen),
			Question: pair.question,
			Answer:   template.HTML(pair.answerHTML),
		})
	}
	return execute(TypeFAQSplitLayout, struct {
		sectionView
		Intro intro
		FAQs  []faqView
	}{section(rc, slice), introOf(slice.Primary), views})
}

func renderProductsGrid(_ context.Context, rc RenderContext, slice document.Slice) (template.HTML, error) {
	var uids []string
	if group, ok := slice.Primary["products"].([]any); ok {
		for _, entry := range group {
			item, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			link, ok := item["product"].(map[string]any)
			if !ok || boolField(link, "isBroken") {
				continue
			}
			if uid := stringField(link, "uid"); uid != "" {
				uids = append(uids, uid)
			}
		}
	}

	tag := ""
	if link, ok := slice.Primary["tag_to_fetch_from"].(map[string]any); ok {
		tag = stringField(link, "id")
	}

	previous := ""
	if rc.PreviousPrice > 0 {
		previous = strconv.FormatFloat(rc.PreviousPrice, 'f', -1, 64)
	}

	return execute(TypeProductsGrid, struct {
		sectionView
		Intro         intro
		Locale        string
		ProductID     string
		Sizes         string
		PreviousPrice string
		Parent        string
		Tag           string
		Limit         int
		Products      []string
		LoadMore      string
	}{
		sectionView:   section(rc, slice),
		Intro:         introOf(slice.Primary),
		Locale:        rc.Locale,
		ProductID:     rc.StripeProductID,
		Sizes:         strings.Join(rc.Sizes, ","),
		PreviousPrice: previous,
		Parent:        stringField(slice.Primary, "parent_to_fetch_from"),
		Tag:           tag,
		Limit:         intField(slice.Primary, "items_to_fetch"),
		Products:      uids,
		LoadMore:      stringField(slice.Primary, "load_more_button_label"),
	})
}

func renderHero(_ context.Context, rc RenderContext, slice document.Slice) (template.HTML, error) {
	var image document.Image
	if media, ok := slice.Primary["media"].(map[string]any); ok {
		image = document.Image{URL: stringField(media, "url"), Alt: stringField(media, "alt")}
	}
	return execute(TypeHeroBasic, struct {
		sectionView
		Intro   intro
		Image   document.Image
		Overlay bool
		Blur    bool
		Dark    bool
		Eager   bool
	}{
		sectionView: section(rc, slice),
		Intro:       introOf(slice.Primary),
		Image:       image,
		Overlay:     boolField(slice.Primary, "add_overlay"),
		Blur:        boolField(slice.Primary, "add_blur"),
		Dark:        boolField(slice.Primary, "dark_texts"),
		Eager:       rc.SliceIndex == 0,
	})
}
