package slices

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/goliatone/go-slug"

	"github.com/goliatone/go-storefront/internal/document"
)

type faqPair struct {
	question   string
	answerHTML string
}

// FAQPage is the schema.org FAQPage document.
type FAQPage struct {
	Context    string     `json:"@context"`
	Type       string     `json:"@type"`
	MainEntity []Question `json:"mainEntity"`
}

// Question is one FAQ entry.
type Question struct {
	Type           string `json:"@type"`
	Name           string `json:"name"`
	AcceptedAnswer Answer `json:"acceptedAnswer"`
}

type Answer struct {
	Type string `json:"@type"`
	Text string `json:"text"`
}

// faqPairs keeps the faqs whose question and answer both carry text.
func faqPairs(slice document.Slice) []faqPair {
	group, ok := slice.Primary["faqs"].([]any)
	if !ok {
		return nil
	}
	pairs := make([]faqPair, 0, len(group))
	for _, entry := range group {
		item, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		question := AsText(item["question"])
		if question == "" || AsText(item["answer"]) == "" {
			continue
		}
		pairs = append(pairs, faqPair{question: question, answerHTML: RichTextHTML(item["answer"])})
	}
	return pairs
}

// faqAnchor slugs question into a fragment id. Questions that slug to
// nothing fall back to their position, and repeats get a numeric suffix.
func faqAnchor(question string, index int, seen map[string]int) string {
	anchor := "faq-" + strconv.Itoa(index+1)
	if normalized, err := slug.Normalize(question); err == nil {
		anchor = "faq-" + normalized
	}
	seen[anchor]++
	if n := seen[anchor]; n > 1 {
		anchor += "-" + strconv.Itoa(n)
	}
	return anchor
}

// FAQSchema collects every faq of the faq_split_layout slices into one
// FAQPage. It returns nil when the page has no questions.
func FAQSchema(slices []document.Slice) *FAQPage {
	var questions []Question
	for _, slice := range slices {
		if slice.SliceType != TypeFAQSplitLayout {
			continue
		}
		for _, pair := range faqPairs(slice) {
			questions = append(questions, Question{
				Type: "Question",
				Name: pair.question,
				AcceptedAnswer: Answer{
					Type: "Answer",
					Text: plainText(pair.answerHTML),
				},
			})
		}
	}
	if len(questions) == 0 {
		return nil
	}
	return &FAQPage{
		Context:    "https://schema.org",
		Type:       "FAQPage",
		MainEntity: questions,
	}
}

// JSONLD encodes the schema, or returns nil for a nil page.
func (p *FAQPage) JSONLD() ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// plainText strips markup, separating block elements with a space.
func plainText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	var parts []string
	doc.Find("p, h1, h2, h3, h4, h5, h6, li, pre").Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("li").Length() > 0 {
			return
		}
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return strings.TrimSpace(doc.Text())
	}
	return strings.Join(parts, " ")
}
