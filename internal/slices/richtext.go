package slices

import (
	"html"
	"sort"
	"strings"
)

// Block is one structured text node as returned by the CMS.
type Block struct {
	Type  string
	Text  string
	URL   string
	Alt   string
	Spans []Span
}

// Span marks a run of a block's text. Start and End are rune offsets.
type Span struct {
	Start int
	End   int
	Type  string
	URL   string
}

// ParseRichText converts a decoded JSON structured text field into blocks.
// Values of any other shape yield nil.
func ParseRichText(value any) []Block {
	raw, ok := value.([]any)
	if !ok {
		return nil
	}
	blocks := make([]Block, 0, len(raw))
	for _, entry := range raw {
		node, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		block := Block{
			Type: stringField(node, "type"),
			Text: stringField(node, "text"),
			URL:  stringField(node, "url"),
			Alt:  stringField(node, "alt"),
		}
		if spans, ok := node["spans"].([]any); ok {
			for _, s := range spans {
				sm, ok := s.(map[string]any)
				if !ok {
					continue
				}
				span := Span{
					Start: intField(sm, "start"),
					End:   intField(sm, "end"),
					Type:  stringField(sm, "type"),
				}
				if data, ok := sm["data"].(map[string]any); ok {
					span.URL = stringField(data, "url")
				}
				block.Spans = append(block.Spans, span)
			}
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// RichTextHTML renders a structured text field. Consecutive list items are
// grouped into a single list element.
func RichTextHTML(value any) string {
	blocks := ParseRichText(value)
	if len(blocks) == 0 {
		return ""
	}

	var b strings.Builder
	openList := ""
	closeList := func() {
		if openList != "" {
			b.WriteString("</" + openList + ">")
			openList = ""
		}
	}

	for _, block := range blocks {
		list := ""
		switch block.Type {
		case "list-item":
			list = "ul"
		case "o-list-item":
			list = "ol"
		}
		if list != openList {
			closeList()
			if list != "" {
				b.WriteString("<" + list + ">")
				openList = list
			}
		}

		switch block.Type {
		case "heading1", "heading2", "heading3", "heading4", "heading5", "heading6":
			tag := "h" + block.Type[len("heading"):]
			b.WriteString("<" + tag + ">" + renderSpans(block.Text, block.Spans) + "</" + tag + ">")
		case "list-item", "o-list-item":
			b.WriteString("<li>" + renderSpans(block.Text, block.Spans) + "</li>")
		case "preformatted":
			b.WriteString("<pre>" + html.EscapeString(block.Text) + "</pre>")
		case "image":
			if block.URL != "" {
				b.WriteString(`<img src="` + html.EscapeString(block.URL) + `" alt="` + html.EscapeString(block.Alt) + `">`)
			}
		default:
			b.WriteString("<p>" + renderSpans(block.Text, block.Spans) + "</p>")
		}
	}
	closeList()
	return b.String()
}

// AsText joins the text of every block with a space, like the CMS helper of
// the same name.
func AsText(value any) string {
	blocks := ParseRichText(value)
	parts := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if text := strings.TrimSpace(block.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func renderSpans(text string, spans []Span) string {
	runes := []rune(text)
	if len(spans) == 0 {
		return html.EscapeString(text)
	}

	valid := make([]Span, 0, len(spans))
	for _, span := range spans {
		if span.Start < 0 || span.End > len(runes) || span.Start >= span.End {
			continue
		}
		if openTag(span) == "" {
			continue
		}
		valid = append(valid, span)
	}
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Start != valid[j].Start {
			return valid[i].Start < valid[j].Start
		}
		return valid[i].End > valid[j].End
	})

	var b strings.Builder
	var stack []Span
	next := 0
	for pos := 0; pos <= len(runes); pos++ {
		// close every span ending here, reopening any inner span that
		// still continues
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].End != pos {
				continue
			}
			reopen := append([]Span(nil), stack[i+1:]...)
			for j := len(stack) - 1; j >= i; j-- {
				b.WriteString(closeTag(stack[j]))
			}
			stack = append(stack[:i], reopen...)
			for _, span := range reopen {
				b.WriteString(openTag(span))
			}
		}
		if pos == len(runes) {
			break
		}
		for next < len(valid) && valid[next].Start == pos {
			stack = append(stack, valid[next])
			b.WriteString(openTag(valid[next]))
			next++
		}
		b.WriteString(html.EscapeString(string(runes[pos])))
	}
	return b.String()
}

func openTag(span Span) string {
	switch span.Type {
	case "strong":
		return "<strong>"
	case "em":
		return "<em>"
	case "hyperlink":
		if span.URL == "" {
			return ""
		}
		return `<a href="` + html.EscapeString(span.URL) + `">`
	}
	return ""
}

func closeTag(span Span) string {
	switch span.Type {
	case "strong":
		return "</strong>"
	case "em":
		return "</em>"
	case "hyperlink":
		return "</a>"
	}
	return ""
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func boolField(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}
