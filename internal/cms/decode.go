package cms

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-storefront/internal/document"
)

// The CMS publishes timestamps as 2006-01-02T15:04:05-0700.
var timeLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
	time.RFC3339,
}

type apiDocument struct {
	ID                  string                       `json:"id"`
	UID                 string                       `json:"uid"`
	Type                string                       `json:"type"`
	Lang                string                       `json:"lang"`
	LastPublicationDate string                       `json:"last_publication_date"`
	AlternateLanguages  []document.AlternateLanguage `json:"alternate_languages"`
	Data                json.RawMessage              `json:"data"`
}

type apiLink struct {
	ID       string `json:"id"`
	UID      string `json:"uid"`
	Type     string `json:"type"`
	Lang     string `json:"lang"`
	IsBroken bool   `json:"isBroken"`
	Data     *struct {
		PageTitle string   `json:"page_title"`
		Parent    *apiLink `json:"parent"`
	} `json:"data"`
}

type apiPageData struct {
	PageTitle       string           `json:"page_title"`
	MetaTitle       string           `json:"meta_title"`
	MetaDescription string           `json:"meta_description"`
	MetaImage       document.Image   `json:"meta_image"`
	Parent          *apiLink         `json:"parent"`
	Slices          []document.Slice `json:"slices"`
	StripeProductID string           `json:"stripe_product_id"`
	Sizes           json.RawMessage  `json:"sizes"`
	PreviousPrice   *float64         `json:"previous_price"`
	LocalizedSlug   bool             `json:"localized_slug"`
}

type searchResponse struct {
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
	Results    []apiDocument `json:"results"`
}

type apiInfo struct {
	Refs []struct {
		ID          string `json:"id"`
		Ref         string `json:"ref"`
		IsMasterRef bool   `json:"isMasterRef"`
	} `json:"refs"`
}

// DecodeDocument converts one raw CMS document into the storefront model.
func DecodeDocument(raw []byte) (*document.Document, error) {
	var doc apiDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return convert(doc)
}

func convert(doc apiDocument) (*document.Document, error) {
	out := &document.Document{
		ID:                 doc.ID,
		UID:                doc.UID,
		Type:               doc.Type,
		Lang:               doc.Lang,
		AlternateLanguages: doc.AlternateLanguages,
	}
	if doc.LastPublicationDate != "" {
		published, err := parseTime(doc.LastPublicationDate)
		if err != nil {
			return nil, err
		}
		out.LastPublicationDate = published
	}
	if len(doc.Data) == 0 || string(doc.Data) == "null" {
		return out, nil
	}

	var data apiPageData
	if err := json.Unmarshal(doc.Data, &data); err != nil {
		return nil, fmt.Errorf("decode %s %q data: %w", doc.Type, doc.UID, err)
	}
	var raw map[string]any
	if err := json.Unmarshal(doc.Data, &raw); err != nil {
		return nil, fmt.Errorf("decode %s %q data: %w", doc.Type, doc.UID, err)
	}

	out.Data = document.PageData{
		PageTitle:       data.PageTitle,
		MetaTitle:       data.MetaTitle,
		MetaDescription: data.MetaDescription,
		MetaImage:       data.MetaImage,
		Parent:          convertLink(data.Parent),
		Slices:          data.Slices,
		StripeProductID: data.StripeProductID,
		Sizes:           decodeSizes(data.Sizes),
		LocalizedSlug:   data.LocalizedSlug,
		Raw:             raw,
	}
	if data.PreviousPrice != nil {
		out.Data.PreviousPrice = *data.PreviousPrice
	}
	return out, nil
}

func convertLink(link *apiLink) *document.Link {
	if link == nil || (link.ID == "" && link.UID == "") {
		return nil
	}
	out := &document.Link{
		ID:     link.ID,
		UID:    link.UID,
		Type:   link.Type,
		Lang:   link.Lang,
		Broken: link.IsBroken,
	}
	if link.Data != nil {
		out.PageTitle = link.Data.PageTitle
		out.Parent = convertLink(link.Data.Parent)
	}
	return out
}

// decodeSizes accepts either a list of strings or a group of {size} rows.
func decodeSizes(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var plain []string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return compact(plain)
	}
	var rows []struct {
		Size string `json:"size"`
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil
	}
	sizes := make([]string, 0, len(rows))
	for _, row := range rows {
		sizes = append(sizes, row.Size)
	}
	return compact(sizes)
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseTime(value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse publication date %q", value)
}
