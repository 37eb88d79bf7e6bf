package main

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/goliatone/go-storefront/internal/cms"
	"github.com/goliatone/go-storefront/internal/document"
)

//go:embed demo/*.json
var demoFS embed.FS

// demoReader serves the bundled Swedish sample shop.
func demoReader(masterLang string) (cms.Reader, error) {
	names, err := fs.Glob(demoFS, "demo/*.json")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	docs := make([]*document.Document, 0, len(names))
	for _, name := range names {
		raw, err := demoFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		doc, err := cms.DecodeDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("demo document %s: %w", name, err)
		}
		docs = append(docs, doc)
	}
	return cms.NewMemoryReader(masterLang, docs...), nil
}
